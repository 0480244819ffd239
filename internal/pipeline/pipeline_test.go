package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/rondalog/rondalog/internal/ai"
	"github.com/rondalog/rondalog/internal/model"
	"github.com/rondalog/rondalog/internal/normalize"
)

var catalog = model.Catalog{
	{ID: "acidente", DisplayName: "Acidente de Trânsito"},
	{ID: "furto-roubo", DisplayName: "Furto/Roubo"},
}

type failingCorrector struct{}

func (failingCorrector) Correct(context.Context, ai.CorrectionRequest) (*ai.CorrectionResponse, error) {
	return nil, &ai.RemoteServiceError{Status: 405}
}

type fakeSource struct {
	text       string
	err        error
	start, end time.Time
}

func (f *fakeSource) Retrieve(_ context.Context, start, end time.Time) (string, error) {
	f.start, f.end = start, end
	return f.text, f.err
}

func TestProcessFillsDraft(t *testing.T) {
	p := New(normalize.New(failingCorrector{}), nil, nil)
	raw := model.RawReport{
		Text:   "data:10/03/2024\nhora:07:15\nlocal: portao 2\nocorrencia: furto de bateria",
		Source: model.SourceManual,
	}

	rec, err := p.Process(context.Background(), raw, catalog)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !rec.Correction.UsedFallback {
		t.Fatal("UsedFallback = false, want true after a 405")
	}
	if rec.ID == "" || rec.RawText != raw.Text {
		t.Fatalf("record identity not filled: %+v", rec)
	}

	day := model.PeriodDay
	code := model.DiurnoPar
	want := model.ExtractedFields{
		Date:       &model.Date{Year: 2024, Month: time.March, Day: 10},
		Time:       &model.TimeOfDay{Hour: 7, Minute: 15},
		Location:   ptr("portão 2"),
		Incident:   ptr("furto de bateria"),
		ShiftCode:  &code,
		CategoryID: ptr("furto-roubo"),
	}
	if diff := cmp.Diff(want, rec.Fields); diff != "" {
		t.Fatalf("Fields mismatch (-want +got):\n%s", diff)
	}
	if rec.Period == nil || *rec.Period != day {
		t.Fatalf("Period = %v, want Day", rec.Period)
	}
	if len(rec.Missing) != 0 {
		t.Fatalf("Missing = %v, want none", rec.Missing)
	}
}

func TestProcessExtractionMissIsNotAnError(t *testing.T) {
	p := New(normalize.New(nil), nil, nil)
	rec, err := p.Process(context.Background(), model.RawReport{Text: "ronda feita sem alteracao"}, catalog)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if rec.Correction.CorrectedText != "Ronda feita sem alteração." {
		t.Fatalf("CorrectedText = %q", rec.Correction.CorrectedText)
	}
	if rec.Source != model.SourceManual {
		t.Fatalf("Source = %q, want manual default", rec.Source)
	}
	want := []string{model.FieldDate, model.FieldTime, model.FieldLocation, model.FieldShiftCode, model.FieldCategoryID}
	if diff := cmp.Diff(want, rec.Missing); diff != "" {
		t.Fatalf("Missing mismatch (-want +got):\n%s", diff)
	}
	if rec.Period != nil {
		t.Fatalf("Period = %v, want nil without a time", *rec.Period)
	}
}

func TestProcessTimeWithoutDateGivesPeriodOnly(t *testing.T) {
	p := New(normalize.New(nil), nil, nil)
	rec, err := p.Process(context.Background(), model.RawReport{Text: "Hora: 23:00 portão fechado"}, catalog)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if rec.Period == nil || *rec.Period != model.PeriodNight {
		t.Fatalf("Period = %v, want Night", rec.Period)
	}
	if rec.Fields.ShiftCode != nil {
		t.Fatalf("ShiftCode = %v, want nil without a date", *rec.Fields.ShiftCode)
	}
}

func TestProcessNamedShiftKeepsCode(t *testing.T) {
	p := New(normalize.New(nil), nil, nil)
	rec, err := p.Process(context.Background(), model.RawReport{Text: "Turno: noturno impar\nData: 10/03/2024"}, catalog)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if rec.Fields.ShiftCode == nil || *rec.Fields.ShiftCode != model.NoturnoImpar {
		t.Fatalf("ShiftCode = %v, want NoturnoImpar", rec.Fields.ShiftCode)
	}
	if rec.Period == nil || *rec.Period != model.PeriodNight {
		t.Fatalf("Period = %v, want Night", rec.Period)
	}
}

func TestProcessTimeOverridesContradictingLabel(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantCode   *model.ShiftCode
		wantPeriod model.Period
	}{
		{
			name:       "date and time reclassify",
			text:       "Turno: noturno par\nData: 10/03/2024\nHora: 07:15",
			wantCode:   ptr(model.DiurnoPar),
			wantPeriod: model.PeriodDay,
		},
		{
			name:       "time without date clears the label",
			text:       "Turno: noturno par\nHora: 07:15",
			wantCode:   nil,
			wantPeriod: model.PeriodDay,
		},
		{
			name:       "agreeing label kept",
			text:       "Turno: noturno par\nHora: 22:00",
			wantCode:   ptr(model.NoturnoPar),
			wantPeriod: model.PeriodNight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := New(normalize.New(nil), nil, slog.New(slog.NewTextHandler(&buf, nil)))
			rec, err := p.Process(context.Background(), model.RawReport{Text: tt.text}, catalog)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if diff := cmp.Diff(tt.wantCode, rec.Fields.ShiftCode); diff != "" {
				t.Fatalf("ShiftCode mismatch (-want +got):\n%s", diff)
			}
			if rec.Period == nil || *rec.Period != tt.wantPeriod {
				t.Fatalf("Period = %v, want %v", rec.Period, tt.wantPeriod)
			}
			warned := strings.Contains(buf.String(), "shift label contradicts report time")
			if warned != (tt.wantCode == nil || *tt.wantCode != model.NoturnoPar) {
				t.Fatalf("warning logged = %v, log:\n%s", warned, buf.String())
			}
		})
	}
}

func TestProcessEmptyReport(t *testing.T) {
	p := New(normalize.New(nil), nil, nil)
	for _, text := range []string{"", " \n\t "} {
		_, err := p.Process(context.Background(), model.RawReport{Text: text}, catalog)
		if !errors.Is(err, ErrEmptyReport) {
			t.Fatalf("Process(%q) error = %v, want ErrEmptyReport", text, err)
		}
	}
}

func TestProcessShiftScopesRetrieval(t *testing.T) {
	loc := time.UTC
	src := &fakeSource{text: "22:10 João: ronda no patio ok\n23:40 João: portao trancado"}
	p := New(normalize.New(nil), nil, nil)

	d := model.Date{Year: 2024, Month: time.March, Day: 10}
	rec, err := p.ProcessShift(context.Background(), src, d, model.NoturnoPar, loc, catalog)
	if err != nil {
		t.Fatalf("ProcessShift: %v", err)
	}
	if rec.Source != model.SourceChatExport {
		t.Fatalf("Source = %q, want chat_export", rec.Source)
	}
	wantStart := time.Date(2024, time.March, 10, 18, 0, 0, 0, loc)
	wantEnd := time.Date(2024, time.March, 11, 6, 0, 0, 0, loc)
	if !src.start.Equal(wantStart) || !src.end.Equal(wantEnd) {
		t.Fatalf("window = [%v, %v), want [%v, %v)", src.start, src.end, wantStart, wantEnd)
	}

	if _, err := p.ProcessShift(context.Background(), src, d, model.NoturnoImpar, loc, catalog); err == nil {
		t.Fatal("ProcessShift accepted an odd code on an even day")
	}

	src.err = errors.New("export missing")
	if _, err := p.ProcessShift(context.Background(), src, d, model.DiurnoPar, loc, catalog); err == nil {
		t.Fatal("ProcessShift swallowed a retrieval error")
	}
}

func ptr[T any](v T) *T { return &v }

func TestRefreshAfterEdit(t *testing.T) {
	rec := &model.DraftRecord{Missing: model.ExtractedFields{}.MissingFields()}
	rec.Fields.Date = &model.Date{Year: 2024, Month: time.March, Day: 10}
	rec.Fields.Time = &model.TimeOfDay{Hour: 21, Minute: 30}

	Refresh(rec)

	if rec.Fields.ShiftCode == nil || *rec.Fields.ShiftCode != model.NoturnoPar {
		t.Fatalf("ShiftCode = %v, want NoturnoPar", rec.Fields.ShiftCode)
	}
	if rec.Period == nil || *rec.Period != model.PeriodNight {
		t.Fatalf("Period = %v, want Night", rec.Period)
	}
	want := []string{model.FieldLocation, model.FieldCategoryID}
	if diff := cmp.Diff(want, rec.Missing); diff != "" {
		t.Fatalf("Missing mismatch (-want +got):\n%s", diff)
	}
}
