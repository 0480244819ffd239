package shift

import (
	"fmt"
	"time"

	"github.com/rondalog/rondalog/internal/model"
)

// Interval is a concrete, half-open [Start, End) shift on a given day.
type Interval struct {
	Date  model.Date
	Code  model.ShiftCode
	Start time.Time
	End   time.Time
}

// Contains reports whether at falls inside the half-open interval.
func (iv Interval) Contains(at time.Time) bool {
	return !at.Before(iv.Start) && at.Before(iv.End)
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s %s [%s, %s)", iv.Date.Display(), iv.Code,
		iv.Start.Format("02/01 15:04"), iv.End.Format("02/01 15:04"))
}

// WindowFor computes the instants bounding shift code on day d in loc. A night
// shift ends at 06:00 of the following day. The code's parity must agree with
// d.
func WindowFor(d model.Date, code model.ShiftCode, loc *time.Location) (Interval, error) {
	if !d.Valid() {
		return Interval{}, fmt.Errorf("invalid date %v", d)
	}
	w, err := Lookup(code)
	if err != nil {
		return Interval{}, err
	}
	if ParityOf(d) != w.Parity {
		return Interval{}, fmt.Errorf("%w: %s is rostered on %s days, %s is %s",
			ErrParityMismatch, code, w.Parity, d.Display(), ParityOf(d))
	}
	if loc == nil {
		loc = time.Local
	}

	start := time.Date(d.Year, d.Month, d.Day, w.StartHour, 0, 0, 0, loc)
	endDay := d
	if w.EndHour <= w.StartHour {
		endDay = d.AddDays(1)
	}
	end := time.Date(endDay.Year, endDay.Month, endDay.Day, w.EndHour, 0, 0, 0, loc)

	return Interval{Date: d, Code: code, Start: start, End: end}, nil
}

// WindowForPeriod derives the code from d's parity and returns its window.
func WindowForPeriod(d model.Date, p model.Period, loc *time.Location) (Interval, error) {
	return WindowFor(d, CodeFor(d, p), loc)
}

// Span returns the day and night windows of days consecutive days starting at
// from, in chronological order.
func Span(from model.Date, days int, loc *time.Location) ([]Interval, error) {
	if days <= 0 {
		return nil, fmt.Errorf("day count must be positive, got %d", days)
	}
	out := make([]Interval, 0, days*2)
	for i := 0; i < days; i++ {
		d := from.AddDays(i)
		for _, p := range []model.Period{model.PeriodDay, model.PeriodNight} {
			iv, err := WindowForPeriod(d, p, loc)
			if err != nil {
				return nil, err
			}
			out = append(out, iv)
		}
	}
	return out, nil
}

// Containing returns the shift interval that contains at. Times before 06:00
// belong to the night shift that started the previous evening.
func Containing(at time.Time) Interval {
	loc := at.Location()
	d := model.DateOf(at)
	period := Classify(model.ClockOf(at))
	if period == model.PeriodNight && at.Hour() < dayStartHour {
		d = d.AddDays(-1)
	}
	// Derived code always matches d's parity, so this cannot fail.
	iv, _ := WindowForPeriod(d, period, loc)
	return iv
}

// EndingAt returns the interval whose end is exactly at, or false when at is
// not a shift boundary.
func EndingAt(at time.Time) (Interval, bool) {
	prev := Containing(at.Add(-time.Minute))
	if prev.End.Equal(at) {
		return prev, true
	}
	return Interval{}, false
}
