package tui

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rondalog/rondalog/internal/model"
)

var testCatalog = model.Catalog{
	{ID: "acidente", DisplayName: "Acidente de Trânsito"},
	{ID: "furto-roubo", DisplayName: "Furto/Roubo"},
	{ID: "verificacao", DisplayName: "Verificação"},
}

func sampleDraft() *model.DraftRecord {
	code := model.DiurnoPar
	period := model.PeriodDay
	loc := "portão 2"
	return &model.DraftRecord{
		ID:      "d1",
		Source:  model.SourceManual,
		RawText: "data:10/03/2024 hora:07:15 local: portao 2",
		Correction: model.CorrectionResult{
			CorrectedText: "Data: 10/03/2024 Hora: 07:15 Local: portão 2.",
			UsedFallback:  true,
		},
		Fields: model.ExtractedFields{
			Date:      &model.Date{Year: 2024, Month: time.March, Day: 10},
			Time:      &model.TimeOfDay{Hour: 7, Minute: 15},
			Location:  &loc,
			ShiftCode: &code,
		},
		Period:  &period,
		Missing: []string{model.FieldCategoryID},
	}
}

type fakeProcessor struct {
	draft *model.DraftRecord
	err   error
	got   model.RawReport
}

func (f *fakeProcessor) Process(_ context.Context, raw model.RawReport, _ model.Catalog) (*model.DraftRecord, error) {
	f.got = raw
	return f.draft, f.err
}

type fakeSaver struct {
	saved []*model.DraftRecord
	err   error
}

func (f *fakeSaver) InsertDraft(rec *model.DraftRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, rec)
	return nil
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEditDateRederivesShift(t *testing.T) {
	d := sampleDraft()
	m := newEditModel(d, testCatalog)
	m.field = editDate
	m.textInput.SetValue("11/03/2024")

	if err := m.applyEdit(); err != nil {
		t.Fatalf("applyEdit: %v", err)
	}
	if d.Fields.ShiftCode == nil || *d.Fields.ShiftCode != model.DiurnoImpar {
		t.Fatalf("ShiftCode = %v, want DiurnoImpar", d.Fields.ShiftCode)
	}
}

func TestEditRejectsBadTime(t *testing.T) {
	d := sampleDraft()
	m := newEditModel(d, testCatalog)
	m.field = editTime
	m.textInput.SetValue("25:00")

	if err := m.applyEdit(); err == nil {
		t.Fatal("applyEdit accepted 25:00")
	}
	if d.Fields.Time.String() != "07:15" {
		t.Fatalf("Time changed to %s", d.Fields.Time)
	}
}

func TestEditEmptyValueClearsField(t *testing.T) {
	d := sampleDraft()
	m := newEditModel(d, testCatalog)
	m.field = editLocation
	m.textInput.SetValue("  ")

	if err := m.applyEdit(); err != nil {
		t.Fatalf("applyEdit: %v", err)
	}
	if d.Fields.Location != nil {
		t.Fatalf("Location = %q, want nil", *d.Fields.Location)
	}
	if !slices.Contains(d.Missing, model.FieldLocation) {
		t.Fatalf("Missing = %v, want location listed", d.Missing)
	}
}

func TestEditCategoryPicker(t *testing.T) {
	d := sampleDraft()
	m := newEditModel(d, testCatalog)
	m.field = editCategory
	m.filter("roubo")

	if len(m.filtered) != 1 {
		t.Fatalf("filtered = %v, want one match", m.filtered)
	}
	if err := m.applyEdit(); err != nil {
		t.Fatalf("applyEdit: %v", err)
	}
	if d.Fields.CategoryID == nil || *d.Fields.CategoryID != "furto-roubo" {
		t.Fatalf("CategoryID = %v, want furto-roubo", d.Fields.CategoryID)
	}
	if len(d.Missing) != 0 {
		t.Fatalf("Missing = %v, want none", d.Missing)
	}

	m.filter("nada disso")
	if err := m.applyEdit(); err == nil {
		t.Fatal("applyEdit accepted an empty pick list")
	}
}

func TestAppProcessAndAccept(t *testing.T) {
	proc := &fakeProcessor{draft: sampleDraft()}
	saver := &fakeSaver{}
	app := NewApp(proc, saver, testCatalog, "DiurnoPar 10/03/2024", "data:10/03/2024")

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if app.state != loadingView || cmd == nil {
		t.Fatalf("state = %v after submit, want loading", app.state)
	}

	app.Update(app.process(app.input.Value(), app.input.wantEmail)())
	if app.state != reviewView {
		t.Fatalf("state = %v, want review (error %q)", app.state, app.errMsg)
	}
	if !proc.got.WantsEmailVariant || proc.got.Source != model.SourceManual {
		t.Fatalf("raw report = %+v", proc.got)
	}

	_, cmd = app.Update(key("a"))
	app.Update(cmd())

	if len(saver.saved) != 1 || saver.saved[0].ID != "d1" {
		t.Fatalf("saved = %v, want the draft", saver.saved)
	}
	if res := app.GetResult(); res == nil || res.Skipped || res.Draft == nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestAppProcessingErrorIsShown(t *testing.T) {
	app := NewApp(&fakeProcessor{err: errors.New("report is empty")}, nil, testCatalog, "", "")
	app.Update(processedMsg{err: errors.New("report is empty")})

	if app.state != confirmationView || app.errMsg == "" {
		t.Fatalf("state = %v, errMsg = %q", app.state, app.errMsg)
	}
}

func TestAppWithDraftSkip(t *testing.T) {
	app := NewApp(&fakeProcessor{}, &fakeSaver{}, testCatalog, "", "").WithDraft(sampleDraft())
	if app.state != reviewView {
		t.Fatalf("state = %v, want review", app.state)
	}
	if app.input.Value() == "" {
		t.Fatal("retry input not prefilled with the raw text")
	}

	app.Update(key("s"))
	if res := app.GetResult(); res == nil || !res.Skipped {
		t.Fatalf("result = %+v, want skipped", res)
	}
}

func TestShiftStyleFollowsPeriod(t *testing.T) {
	day, night := model.PeriodDay, model.PeriodNight
	tests := []struct {
		period *model.Period
		want   any
	}{
		{&day, dayShiftStyle.GetForeground()},
		{&night, nightShiftStyle.GetForeground()},
		{nil, lipgloss.NewStyle().GetForeground()},
	}
	for _, tt := range tests {
		if got := shiftStyle(tt.period).GetForeground(); got != tt.want {
			t.Errorf("shiftStyle(%v) foreground = %v, want %v", tt.period, got, tt.want)
		}
	}
}
