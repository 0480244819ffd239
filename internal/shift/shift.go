// Package shift maps wall-clock times to duty shifts and shifts back to the
// concrete time windows they cover.
//
// Crews rotate on alternating calendar days, so besides the day/night split
// every shift carries the parity of its day: DiurnoPar is the day shift of an
// even-numbered day, NoturnoImpar the night shift of an odd-numbered one.
package shift

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rondalog/rondalog/internal/model"
)

const (
	dayStartHour = 6
	dayEndHour   = 18
)

var (
	ErrUnknownCode    = errors.New("unknown shift code")
	ErrParityMismatch = errors.New("shift parity does not match the date")
)

// Parity is the day-of-month parity a shift is rostered on.
type Parity int

const (
	Even Parity = iota
	Odd
)

func (p Parity) String() string {
	if p == Odd {
		return "odd"
	}
	return "even"
}

// ParityOf returns the parity of d's day of month.
func ParityOf(d model.Date) Parity {
	if d.Day%2 == 0 {
		return Even
	}
	return Odd
}

// Window is the static description of one roster slot. A window whose end
// hour is not after its start hour runs into the next calendar day.
type Window struct {
	Code      model.ShiftCode
	Period    model.Period
	StartHour int
	EndHour   int
	Parity    Parity
}

// Windows is the roster table, in model.ShiftCodes order.
var Windows = []Window{
	{Code: model.DiurnoPar, Period: model.PeriodDay, StartHour: dayStartHour, EndHour: dayEndHour, Parity: Even},
	{Code: model.DiurnoImpar, Period: model.PeriodDay, StartHour: dayStartHour, EndHour: dayEndHour, Parity: Odd},
	{Code: model.NoturnoPar, Period: model.PeriodNight, StartHour: dayEndHour, EndHour: dayStartHour, Parity: Even},
	{Code: model.NoturnoImpar, Period: model.PeriodNight, StartHour: dayEndHour, EndHour: dayStartHour, Parity: Odd},
}

// Lookup returns the static window for code.
func Lookup(code model.ShiftCode) (Window, error) {
	for _, w := range Windows {
		if w.Code == code {
			return w, nil
		}
	}
	return Window{}, fmt.Errorf("%w: %q", ErrUnknownCode, code)
}

// ParseCode accepts a shift code case-insensitively, with or without
// separators ("noturno_par", "Noturno Par", "NOTURNOPAR").
func ParseCode(s string) (model.ShiftCode, error) {
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, code := range model.ShiftCodes {
		if strings.ToLower(string(code)) == key {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCode, s)
}

// Classify splits the day at 06:00 and 18:00: [06:00, 18:00) is Day,
// everything else Night.
func Classify(t model.TimeOfDay) model.Period {
	if t.Hour >= dayStartHour && t.Hour < dayEndHour {
		return model.PeriodDay
	}
	return model.PeriodNight
}

// CodeFor combines a period with the parity of d.
func CodeFor(d model.Date, p model.Period) model.ShiftCode {
	even := ParityOf(d) == Even
	switch {
	case p == model.PeriodDay && even:
		return model.DiurnoPar
	case p == model.PeriodDay:
		return model.DiurnoImpar
	case even:
		return model.NoturnoPar
	default:
		return model.NoturnoImpar
	}
}

// ClassifyPatrol returns the roster code for an event at t on day d. Parity is
// taken from d as given, so 02:00 on the 11th is NoturnoImpar.
func ClassifyPatrol(d model.Date, t model.TimeOfDay) model.ShiftCode {
	return CodeFor(d, Classify(t))
}
