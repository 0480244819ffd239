package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

type inputModel struct {
	textarea  textarea.Model
	shiftInfo string
	wantEmail bool
	width     int
	height    int
}

func newInputModel(shiftInfo string, prefill string) inputModel {
	ta := textarea.New()
	ta.Placeholder = "Describe the patrol or incident (Data:, Hora:, Local:, Ocorrência:)..."
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(70)
	ta.SetHeight(8)
	ta.ShowLineNumbers = false

	if prefill != "" {
		ta.SetValue(prefill)
	}

	return inputModel{
		textarea:  ta,
		shiftInfo: shiftInfo,
	}
}

func (m inputModel) Update(msg tea.Msg) (inputModel, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = ws.Width, ws.Height
		if ws.Width > 4 {
			m.textarea.SetWidth(min(ws.Width-4, 100))
		}
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	header := screenTitleStyle.Render("rondalog: patrol report")
	shiftLabel := onDutyStyle.Render(m.shiftInfo)
	email := "off"
	if m.wantEmail {
		email = "on"
	}
	help := keyHintStyle.Render("Ctrl+S: submit • Ctrl+E: email variant (" + email + ") • Ctrl+C: cancel")

	return header + "\n" + shiftLabel + "\n" + m.textarea.View() + "\n" + help
}

func (m inputModel) Value() string {
	return m.textarea.Value()
}
