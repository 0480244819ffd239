package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rondalog/rondalog/internal/dates"
	"github.com/rondalog/rondalog/internal/model"
	"github.com/rondalog/rondalog/internal/pipeline"
)

type editField int

const (
	editDate editField = iota
	editTime
	editLocation
	editCategory
)

var editFieldNames = []string{"Date", "Time", "Location", "Category"}

type editModel struct {
	draft     *model.DraftRecord
	catalog   model.Catalog
	field     editField
	textInput textinput.Model
	editing   bool
	filtered  []model.Category
	pick      int
	errMsg    string
	now       func() time.Time
}

func newEditModel(d *model.DraftRecord, catalog model.Catalog) editModel {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 50

	return editModel{
		draft:     d,
		catalog:   catalog,
		textInput: ti,
		now:       time.Now,
	}
}

func (m editModel) Update(msg tea.Msg) (editModel, tea.Cmd) {
	if m.editing {
		return m.updateEditing(msg)
	}
	return m.updateNavigating(msg)
}

func (m editModel) updateNavigating(msg tea.Msg) (editModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "up", "k":
			if m.field > 0 {
				m.field--
			}
		case "down", "j", "tab":
			m.field = (m.field + 1) % editField(len(editFieldNames))
		case "enter":
			m.editing = true
			m.errMsg = ""
			m.textInput.SetValue(m.current())
			switch m.field {
			case editDate:
				m.textInput.Placeholder = "DD/MM/YYYY or ontem"
			case editTime:
				m.textInput.Placeholder = "HH:MM"
			case editLocation:
				m.textInput.Placeholder = "Location"
			case editCategory:
				m.textInput.SetValue("")
				m.textInput.Placeholder = "Search category..."
				m.filtered = m.catalog
				m.pick = 0
			}
			return m, m.textInput.Focus()
		}
	}
	return m, nil
}

func (m editModel) updateEditing(msg tea.Msg) (editModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			if err := m.applyEdit(); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
			m.editing = false
			m.errMsg = ""
			m.textInput.Blur()
			return m, nil
		case "esc":
			m.editing = false
			m.errMsg = ""
			m.textInput.Blur()
			return m, nil
		case "up":
			if m.field == editCategory && m.pick > 0 {
				m.pick--
			}
			return m, nil
		case "down":
			if m.field == editCategory && m.pick < len(m.filtered)-1 {
				m.pick++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)

	if m.field == editCategory {
		m.filter(m.textInput.Value())
	}

	return m, cmd
}

func (m *editModel) filter(query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	m.filtered = nil
	for _, c := range m.catalog {
		if strings.Contains(strings.ToLower(c.DisplayName), query) || strings.Contains(c.ID, query) {
			m.filtered = append(m.filtered, c)
		}
	}
	if m.pick >= len(m.filtered) {
		m.pick = 0
	}
}

// current returns the value being edited in its display form.
func (m editModel) current() string {
	f := m.draft.Fields
	switch m.field {
	case editDate:
		if f.Date != nil {
			return f.Date.Display()
		}
	case editTime:
		if f.Time != nil {
			return f.Time.String()
		}
	case editLocation:
		return deref(f.Location)
	}
	return ""
}

// applyEdit writes the input into the draft. An empty value clears the field.
func (m *editModel) applyEdit() error {
	f := &m.draft.Fields
	value := strings.TrimSpace(m.textInput.Value())

	switch m.field {
	case editDate:
		if value == "" {
			f.Date = nil
		} else {
			d, err := dates.Parse(value, m.now())
			if err != nil {
				return err
			}
			f.Date = &d
		}
		f.ShiftCode = nil
	case editTime:
		if value == "" {
			f.Time = nil
		} else {
			var t model.TimeOfDay
			if err := t.UnmarshalText([]byte(value)); err != nil {
				return fmt.Errorf("time must be HH:MM")
			}
			f.Time = &t
		}
		f.ShiftCode = nil
	case editLocation:
		if value == "" {
			f.Location = nil
		} else {
			f.Location = &value
		}
	case editCategory:
		if len(m.filtered) == 0 {
			return fmt.Errorf("no category matches %q", value)
		}
		id := m.filtered[m.pick].ID
		f.CategoryID = &id
	}

	pipeline.Refresh(m.draft)
	return nil
}

func (m editModel) View() string {
	var sb strings.Builder

	sb.WriteString(screenTitleStyle.Render("Edit Draft"))
	sb.WriteString("\n")

	rows := fieldRows(m.draft, m.catalog)
	values := []string{rows[0].value, rows[1].value, rows[2].value, rows[5].value}

	for i, name := range editFieldNames {
		prefix := "  "
		if editField(i) == m.field {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%-10s %s", prefix, name, values[i])
		if editField(i) == m.field {
			line = fieldCursorStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if m.editing {
		sb.WriteString("\n")
		sb.WriteString(m.textInput.View())
		sb.WriteString("\n")

		if m.field == editCategory {
			limit := min(len(m.filtered), 8)
			for i, c := range m.filtered[:limit] {
				line := fmt.Sprintf("  %s", c.DisplayName)
				if i == m.pick {
					line = categoryPickStyle.Render("> " + c.DisplayName)
				} else {
					line = categoryRowStyle.Render(line)
				}
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}

	if m.errMsg != "" {
		sb.WriteString("\n")
		sb.WriteString(failureStyle.Render(m.errMsg))
		sb.WriteString("\n")
	}

	if len(m.draft.Missing) > 0 {
		sb.WriteString("\n")
		sb.WriteString(missingStyle.Render("Missing: " + strings.Join(m.draft.Missing, ", ")))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(keyHintStyle.Render("Enter: edit field • j/k: nav • empty value clears • Esc: done editing"))

	return reportPanelStyle.Render(sb.String())
}
