package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/rondalog/rondalog/internal/shift"
)

// Event is a roster entry, typically "Vigilante: Maria" on a shift.
type Event struct {
	Summary   string
	StartTime time.Time
	EndTime   time.Time
}

// Fetch retrieves and parses iCalendar events from a URL or file path,
// returning events that overlap with the given time window.
func Fetch(ctx context.Context, source string, windowStart, windowEnd time.Time) ([]Event, error) {
	var r io.ReadCloser

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching roster: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("roster fetch returned status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening roster file: %w", err)
		}
		r = f
	}
	defer r.Close()

	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing roster: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(nil)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(nil)
			if err != nil {
				continue
			}

			if start.Before(windowEnd) && end.After(windowStart) {
				summary, _ := event.Props.Text(ical.PropSummary)
				if summary != "" {
					events = append(events, Event{
						Summary:   summary,
						StartTime: start,
						EndTime:   end,
					})
				}
			}
		}
	}

	return events, nil
}

// During returns the events overlapping iv.
func During(events []Event, iv shift.Interval) []Event {
	var out []Event
	for _, e := range events {
		if e.StartTime.Before(iv.End) && e.EndTime.After(iv.Start) {
			out = append(out, e)
		}
	}
	return out
}

// Summaries joins event summaries with "; ".
func Summaries(events []Event) string {
	if len(events) == 0 {
		return ""
	}
	summaries := make([]string, len(events))
	for i, e := range events {
		summaries[i] = e.Summary
	}
	return strings.Join(summaries, "; ")
}

// WriteWindows encodes shift windows as a VCALENDAR with one VEVENT each, so
// the roster can be imported into any calendar client.
func WriteWindows(w io.Writer, windows []shift.Interval, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//rondalog//shift windows//PT")

	for _, iv := range windows {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s@rondalog", iv.Date, iv.Code))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, iv.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, iv.End.UTC())
		event.Props.SetText(ical.PropSummary, fmt.Sprintf("%s %s", iv.Code, iv.Date.Display()))
		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding shift windows: %w", err)
	}
	return nil
}
