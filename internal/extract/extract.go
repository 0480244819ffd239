// Package extract pulls structured fields out of corrected report text with
// ordered, labeled-pattern rules. It never guesses: a field no rule matches is
// left nil, and malformed labels only mean fewer fields.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rondalog/rondalog/internal/dates"
	"github.com/rondalog/rondalog/internal/model"
	"github.com/rondalog/rondalog/internal/shift"
)

// Label alternatives, folded (lower case, no accents). Longer alternatives
// come first so "localizacao" is not read as "local".
const (
	dateLabels     = `data|date|dia`
	timeLabels     = `horario|hora|time`
	locationLabels = `localizacao|location|local|endereco`
	incidentLabels = `ocorrencia|natureza|incidente|incident|tipo`
	shiftLabels    = `turno|plantao|shift`
)

// labelPattern anchors a label at a line start or after a non-word rune.
func labelPattern(labels, value string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)(?:^|[^\p{L}\p{N}])(?:` + labels + `)[ \t]*:[ \t]*` + value)
}

var (
	dateRule     = labelPattern(dateLabels, `(\d{1,4}[/.\-]\d{1,2}[/.\-]\d{1,4})`)
	timeRule     = labelPattern(timeLabels, `(\d{1,2})(?::(\d{2})|h(\d{2})?)`)
	locationRule = labelPattern(locationLabels, `([^\n]*)`)
	incidentRule = labelPattern(incidentLabels, `([^\n]*)`)
	shiftRule    = labelPattern(shiftLabels, `([^\n]*)`)

	// anyLabel finds the next label on the same line, where a free-text value
	// stops.
	anyLabel = regexp.MustCompile(`[ \t,;](?:` + strings.Join([]string{
		dateLabels, timeLabels, locationLabels, incidentLabels, shiftLabels,
	}, "|") + `)[ \t]*:`)
)

// Extractor resolves fields and categories. It holds only read-only tables
// and is safe for concurrent use.
type Extractor struct {
	keywords *KeywordTable
}

// New returns an Extractor using kw for category fallbacks, or the default
// table when kw is nil.
func New(kw *KeywordTable) *Extractor {
	if kw == nil {
		kw = DefaultKeywordTable()
	}
	return &Extractor{keywords: kw}
}

// Extract reads correctedText and fills whatever fields its rules find.
// The catalog is only read.
func (e *Extractor) Extract(correctedText string, catalog model.Catalog) model.ExtractedFields {
	folded, idx := foldIndexed(correctedText)
	var f model.ExtractedFields

	if m := dateRule.FindStringSubmatchIndex(folded); m != nil && !digitAt(folded, m[3]) {
		if d, err := dates.ParseNumeric(folded[m[2]:m[3]]); err == nil {
			f.Date = &d
		}
	}

	if m := timeRule.FindStringSubmatchIndex(folded); m != nil && !digitAt(folded, m[1]) {
		if t, ok := parseClock(folded, m); ok {
			f.Time = &t
		}
	}

	if v, ok := freeText(correctedText, folded, idx, locationRule); ok {
		f.Location = &v
	}

	if v, ok := freeText(correctedText, folded, idx, incidentRule); ok {
		f.Incident = &v
		if id, ok := e.ResolveCategory(v, catalog); ok {
			f.CategoryID = &id
		}
	}

	if v, ok := freeText(correctedText, folded, idx, shiftRule); ok {
		if code, err := shift.ParseCode(v); err == nil {
			f.ShiftCode = &code
		}
	}

	return f
}

// Extract runs the default extractor.
func Extract(correctedText string, catalog model.Catalog) model.ExtractedFields {
	return New(nil).Extract(correctedText, catalog)
}

// ResolveCategory maps a free-text label to a catalog id. Direct containment
// in either direction is tried first, then the keyword table in order. Ties
// go to the earliest catalog entry.
func (e *Extractor) ResolveCategory(label string, catalog model.Catalog) (string, bool) {
	label = strings.TrimSpace(fold(label))
	if label == "" || len(catalog) == 0 {
		return "", false
	}

	names := make([]string, len(catalog))
	for i, cat := range catalog {
		names[i] = strings.TrimSpace(fold(cat.DisplayName))
	}

	for i, name := range names {
		if name != "" && (strings.Contains(name, label) || strings.Contains(label, name)) {
			return catalog[i].ID, true
		}
	}

	for _, rule := range e.keywords.Rules {
		if !containsAny(label, rule.Match) {
			continue
		}
		for i, name := range names {
			if containsAny(name, rule.Resolve) {
				return catalog[i].ID, true
			}
		}
	}
	return "", false
}

// freeText returns the trimmed value after a label, cut at the next label on
// the same line, with accents from the original text.
func freeText(original, folded string, idx []int, rule *regexp.Regexp) (string, bool) {
	m := rule.FindStringSubmatchIndex(folded)
	if m == nil {
		return "", false
	}
	start, end := m[2], m[3]
	if next := anyLabel.FindStringIndex(folded[start:end]); next != nil {
		end = start + next[0]
	}
	v := strings.TrimSpace(original[idx[start]:idx[end]])
	v = strings.TrimSpace(strings.TrimRight(v, ".;,"))
	return v, v != ""
}

func parseClock(folded string, m []int) (model.TimeOfDay, bool) {
	hour, _ := strconv.Atoi(folded[m[2]:m[3]])
	minute := 0
	switch {
	case m[4] >= 0:
		minute, _ = strconv.Atoi(folded[m[4]:m[5]])
	case m[6] >= 0:
		minute, _ = strconv.Atoi(folded[m[6]:m[7]])
	}
	return model.NewTimeOfDay(hour, minute)
}

func digitAt(s string, i int) bool {
	return i < len(s) && s[i] >= '0' && s[i] <= '9'
}
