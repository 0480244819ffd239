package letter

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Kind is a justification letter type.
type Kind string

const (
	MedicalLeave Kind = "MedicalLeave"
	ShiftSwap    Kind = "ShiftSwap"
	Tardiness    Kind = "Tardiness"
)

// Kinds lists every letter type in display order.
var Kinds = []Kind{MedicalLeave, ShiftSwap, Tardiness}

var ErrUnknownKind = errors.New("unknown letter type")

var kindAliases = map[string]Kind{
	"medicalleave": MedicalLeave,
	"medical":      MedicalLeave,
	"atestado":     MedicalLeave,
	"shiftswap":    ShiftSwap,
	"swap":         ShiftSwap,
	"troca":        ShiftSwap,
	"tardiness":    Tardiness,
	"late":         Tardiness,
	"atraso":       Tardiness,
}

// ParseKind accepts a type name case-insensitively, ignoring separators, plus
// a few short Portuguese and English aliases.
func ParseKind(s string) (Kind, error) {
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

type valueType int

const (
	typeText valueType = iota
	typeDate
	typeDayCount
)

type field struct {
	name     string
	typ      valueType
	optional bool
}

// schema is the required-variable table of one letter type. When
// discriminator is set its value selects one of variants, whose fields are
// checked after the common ones.
type schema struct {
	fields        []field
	discriminator string
	variants      map[string][]field
	aliases       map[string]string
}

const (
	durationDays  = "days"
	durationHours = "hours"
)

var schemas = map[Kind]schema{
	MedicalLeave: {
		fields: []field{
			{name: "employeeName", typ: typeText},
			{name: "role", typ: typeText},
			{name: "startDate", typ: typeDate},
		},
		discriminator: "durationKind",
		variants: map[string][]field{
			durationDays:  {{name: "days", typ: typeDayCount}},
			durationHours: {{name: "hoursToken", typ: typeText}},
		},
		aliases: map[string]string{"dias": durationDays, "horas": durationHours},
	},
	ShiftSwap: {
		fields: []field{
			{name: "coveringEmployeeName", typ: typeText},
			{name: "coveringWorkDate", typ: typeDate},
			{name: "coveredEmployeeName", typ: typeText},
			{name: "compensationDate", typ: typeDate},
			{name: "role", typ: typeText, optional: true},
		},
	},
	Tardiness: {
		fields: []field{
			{name: "employeeName", typ: typeText},
			{name: "role", typ: typeText},
			{name: "date", typ: typeDate},
			{name: "reason", typ: typeText},
		},
	},
}

// RequiredFields describes the variables kind needs, in checking order. A
// variant field is written as "days (durationKind=days)".
func RequiredFields(kind Kind) ([]string, error) {
	s, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	var out []string
	for _, f := range s.fields {
		if f.optional {
			out = append(out, f.name+" (optional)")
			continue
		}
		out = append(out, f.name)
	}
	if s.discriminator != "" {
		out = append(out, s.discriminator)
		for _, v := range slices.Sorted(maps.Keys(s.variants)) {
			for _, f := range s.variants[v] {
				out = append(out, fmt.Sprintf("%s (%s=%s)", f.name, s.discriminator, v))
			}
		}
	}
	return out, nil
}

// ValidationError names every missing or invalid variable, in schema order.
type ValidationError struct {
	Kind   Kind
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s letter: missing or invalid fields: %s", e.Kind, strings.Join(e.Fields, ", "))
}
