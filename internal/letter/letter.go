// Package letter validates justification-letter requests against a per-type
// schema table and delegates the prose to a remote generator. There is no
// local fallback: a failed generation is returned to the caller.
package letter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rondalog/rondalog/internal/ai"
	"github.com/rondalog/rondalog/internal/dates"
)

const defaultTimeout = 60 * time.Second

// Generator is the remote letter-generation contract.
type Generator interface {
	GenerateLetter(ctx context.Context, req ai.LetterRequest) (*ai.LetterResponse, error)
}

// Letter is a generated letter together with the variables it was written
// from.
type Letter struct {
	Kind      Kind
	Variables map[string]string
	Text      string
}

// Composer validates letter requests and asks the generator for the text.
type Composer struct {
	gen     Generator
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

func NewComposer(gen Generator, timeout time.Duration, logger *slog.Logger) *Composer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Composer{gen: gen, timeout: timeout, now: time.Now, logger: logger}
}

// Compose validates vars for kind and generates the letter. Validation
// failures are a *ValidationError and happen before any remote call; remote
// failures are returned wrapped, never replaced with local text.
func (c *Composer) Compose(ctx context.Context, kind Kind, vars map[string]any) (*Letter, error) {
	normalized, err := Validate(kind, vars, c.now())
	if err != nil {
		return nil, err
	}
	if c.gen == nil {
		return nil, fmt.Errorf("generating %s letter: no letter generator configured", kind)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.gen.GenerateLetter(ctx, ai.LetterRequest{Type: string(kind), Variables: normalized})
	if err == nil && (resp == nil || strings.TrimSpace(resp.LetterText) == "") {
		err = &ai.MalformedResponseError{Reason: "empty letterText"}
	}
	if err != nil {
		c.logger.Error("letter generation failed", "kind", kind, "error", err, "elapsed", time.Since(start))
		return nil, fmt.Errorf("generating %s letter: %w", kind, err)
	}

	c.logger.Debug("letter generated", "kind", kind, "elapsed", time.Since(start))
	return &Letter{Kind: kind, Variables: normalized, Text: strings.TrimSpace(resp.LetterText)}, nil
}

// Validate checks vars against the schema of kind and returns them as strings,
// dates written DD/MM/YYYY, plus derived variables. ref resolves relative
// dates such as "ontem".
func Validate(kind Kind, vars map[string]any, ref time.Time) (map[string]string, error) {
	s, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	out := make(map[string]string)
	var bad []string
	check := func(fields []field) {
		for _, f := range fields {
			v, ok := coerce(f, vars[f.name], ref)
			switch {
			case ok:
				out[f.name] = v
			case f.optional && isBlank(vars[f.name]):
			default:
				bad = append(bad, f.name)
			}
		}
	}

	check(s.fields)
	if s.discriminator != "" {
		raw, _ := text(vars[s.discriminator])
		key := strings.ToLower(raw)
		if alias, ok := s.aliases[key]; ok {
			key = alias
		}
		if variant, ok := s.variants[key]; ok {
			out[s.discriminator] = key
			check(variant)
		} else {
			bad = append(bad, s.discriminator)
		}
	}

	if len(bad) > 0 {
		return nil, &ValidationError{Kind: kind, Fields: bad}
	}
	enrich(kind, out)
	return out, nil
}

// enrich adds the day list and end date of a day-based medical leave.
func enrich(kind Kind, vars map[string]string) {
	if kind != MedicalLeave || vars["durationKind"] != durationDays {
		return
	}
	start, err := dates.ParseNumeric(vars["startDate"])
	if err != nil {
		return
	}
	days, _ := strconv.Atoi(vars["days"])
	exp, err := dates.Expand(start, days)
	if err != nil {
		return
	}
	vars["dateList"] = exp.Prose
	vars["endDate"] = exp.Dates[len(exp.Dates)-1].Display()
}

func coerce(f field, v any, ref time.Time) (string, bool) {
	switch f.typ {
	case typeDate:
		s, ok := text(v)
		if !ok {
			return "", false
		}
		d, err := dates.Parse(s, ref)
		if err != nil {
			return "", false
		}
		return d.Display(), true
	case typeDayCount:
		n, ok := positiveInt(v)
		if !ok || n > dates.MaxDayCount {
			return "", false
		}
		return strconv.Itoa(n), true
	default:
		return text(v)
	}
}

// text renders strings and numbers; blank strings and other types fail.
func text(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	}
	return "", false
}

func positiveInt(v any) (int, bool) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt32 {
			return 0, false
		}
		n = int(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, false
		}
		n = int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		n = i
	default:
		return 0, false
	}
	return n, n > 0
}

func isBlank(v any) bool {
	_, ok := text(v)
	return !ok
}

// ParseVariables turns key=value pairs, as typed on the command line, into a
// variable map.
func ParseVariables(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("variable %q: want name=value", p)
		}
		vars[k] = v
	}
	return vars, nil
}
