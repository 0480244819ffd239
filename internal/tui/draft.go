package tui

import (
	"strings"

	"github.com/rondalog/rondalog/internal/model"
)

type draftModel struct {
	draft   *model.DraftRecord
	catalog model.Catalog
}

func newDraftModel(d *model.DraftRecord, catalog model.Catalog) draftModel {
	return draftModel{draft: d, catalog: catalog}
}

func (m draftModel) View() string {
	var sb strings.Builder
	d := m.draft

	sb.WriteString(screenTitleStyle.Render("Draft Record"))
	sb.WriteString("\n")

	if d.Correction.UsedFallback {
		sb.WriteString(fallbackStyle.Render("Correction service unavailable: local correction applied"))
		sb.WriteString("\n\n")
	}

	sb.WriteString(d.Correction.CorrectedText)
	sb.WriteString("\n\n")

	for _, row := range fieldRows(d, m.catalog) {
		value := row.value
		switch {
		case value == "":
			value = emptyValueStyle.Render("-")
		case row.label == "Shift":
			value = shiftStyle(d.Period).Render(value)
		}
		sb.WriteString("  " + fieldLabelStyle.Render(row.label) + " " + value + "\n")
	}

	if len(d.Missing) > 0 {
		sb.WriteString("\n")
		sb.WriteString(missingStyle.Render("Missing: "))
		sb.WriteString(strings.Join(d.Missing, ", "))
		sb.WriteString("\n")
	}

	if d.Correction.EmailVariant != "" {
		sb.WriteString("\n")
		sb.WriteString(fieldLabelStyle.Render("Email"))
		sb.WriteString("\n")
		sb.WriteString(emailVariantStyle.Render(d.Correction.EmailVariant))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(keyHintStyle.Render("[a]ccept • [e]dit • [r]etry • [s]kip"))

	return reportPanelStyle.Render(sb.String())
}

type fieldRow struct {
	label string
	value string
}

func fieldRows(d *model.DraftRecord, catalog model.Catalog) []fieldRow {
	f := d.Fields
	rows := []fieldRow{
		{"Date", ""},
		{"Time", ""},
		{"Location", deref(f.Location)},
		{"Incident", deref(f.Incident)},
		{"Shift", ""},
		{"Category", ""},
	}
	if f.Date != nil {
		rows[0].value = f.Date.Display()
	}
	if f.Time != nil {
		rows[1].value = f.Time.String()
	}
	if f.ShiftCode != nil {
		rows[4].value = string(*f.ShiftCode)
		if d.Period != nil {
			rows[4].value += " (" + string(*d.Period) + ")"
		}
	} else if d.Period != nil {
		rows[4].value = string(*d.Period)
	}
	if f.CategoryID != nil {
		rows[5].value = *f.CategoryID
		if cat, ok := catalog.Lookup(*f.CategoryID); ok {
			rows[5].value = cat.DisplayName
		}
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
