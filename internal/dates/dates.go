// Package dates expands absence periods into the prose date lists used in
// justification letters and parses the date formats staff actually type.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	naturaldate "github.com/tj/go-naturaldate"

	"github.com/rondalog/rondalog/internal/model"
)

// Conjunction joins the last date of an enumeration.
const Conjunction = "e"

// MaxDayCount bounds one expansion to a year of absence.
const MaxDayCount = 366

var (
	ErrInvalidDayCount = errors.New("day count must be between 1 and 366")
	ErrInvalidDate     = errors.New("invalid date")
)

// Expansion is the ordered list of days covered by a range and its prose form.
type Expansion struct {
	Dates []model.Date
	Prose string
}

func (e Expansion) String() string {
	return e.Prose
}

// Expand lists dayCount consecutive days starting at start. A single day is
// written DD/MM/YYYY; longer spans list day numbers and end with the full last
// date, e.g. "10, 11 e 12/03/2024". Only the last date carries month and year,
// even when the span crosses a month. dayCount is capped at MaxDayCount.
func Expand(start model.Date, dayCount int) (Expansion, error) {
	if !start.Valid() {
		return Expansion{}, fmt.Errorf("%w: %v", ErrInvalidDate, start)
	}
	if dayCount <= 0 || dayCount > MaxDayCount {
		return Expansion{}, fmt.Errorf("%w, got %d", ErrInvalidDayCount, dayCount)
	}

	days := make([]model.Date, dayCount)
	for i := range days {
		days[i] = start.AddDays(i)
	}
	return Expansion{Dates: days, Prose: prose(days)}, nil
}

// ExpandProse is Expand returning only the prose.
func ExpandProse(start model.Date, dayCount int) (string, error) {
	e, err := Expand(start, dayCount)
	if err != nil {
		return "", err
	}
	return e.Prose, nil
}

func prose(days []model.Date) string {
	last := days[len(days)-1]
	if len(days) == 1 {
		return last.Display()
	}

	heads := make([]string, 0, len(days)-1)
	for _, d := range days[:len(days)-1] {
		heads = append(heads, fmt.Sprintf("%02d", d.Day))
	}
	return strings.Join(heads, ", ") + " " + Conjunction + " " + last.Display()
}

var numericDate = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2}|\d{4})$`)
var isoDate = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

// numericLike input is never handed to the natural-language parser.
var numericLike = regexp.MustCompile(`^[\d/.\-\s]+$`)

// ParseNumeric parses DD/MM/YYYY (also with - or . separators, and two-digit
// years) and ISO YYYY-MM-DD. It rejects days that do not exist.
func ParseNumeric(s string) (model.Date, error) {
	s = strings.TrimSpace(s)
	if m := isoDate.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3], s)
	}
	if m := numericDate.FindStringSubmatch(s); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return build(year, m[2], m[1], s)
	}
	return model.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func build(year, month, day, raw string) (model.Date, error) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	date, ok := model.NewDate(y, time.Month(mo), d)
	if !ok {
		return model.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return date, nil
}

var relativeWords = map[string]int{
	"hoje":      0,
	"today":     0,
	"ontem":     -1,
	"anteontem": -2,
	"amanhã":    1,
	"amanha":    1,
}

// Parse accepts the numeric formats of ParseNumeric, a few Portuguese relative
// words, and English natural-language dates ("yesterday", "last friday")
// resolved against ref, looking into the past.
func Parse(s string, ref time.Time) (model.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if d, err := ParseNumeric(s); err == nil {
		return d, nil
	} else if numericLike.MatchString(s) {
		return model.Date{}, err
	}
	if offset, ok := relativeWords[strings.ToLower(s)]; ok {
		return model.DateOf(ref).AddDays(offset), nil
	}

	t, err := naturaldate.Parse(s, ref, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return model.Date{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, s, err)
	}
	// The parser echoes ref back for input it does not understand.
	if t.Equal(ref) {
		return model.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return model.DateOf(t), nil
}
