package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rondalog/rondalog/internal/model"
)

// Palette. Adaptive so the report stays readable on light terminals.
var (
	accent   = lipgloss.AdaptiveColor{Light: "#1D4E89", Dark: "#6CA6E8"}
	muted    = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"}
	caution  = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#E3B341"}
	danger   = lipgloss.AdaptiveColor{Light: "#B3261E", Dark: "#F2726B"}
	good     = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#56D364"}
	dayShift = lipgloss.AdaptiveColor{Light: "#B35900", Dark: "#FFB454"}
	nightSky = lipgloss.AdaptiveColor{Light: "#4B3C99", Dark: "#A899F5"}
)

var (
	screenTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	onDutyStyle      = lipgloss.NewStyle().Foreground(muted).Italic(true)
	reportPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(accent).
				Padding(0, 1)

	savedStyle    = lipgloss.NewStyle().Foreground(good).Bold(true)
	failureStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
	fallbackStyle = lipgloss.NewStyle().Foreground(caution)
	missingStyle  = lipgloss.NewStyle().Foreground(caution).Bold(true)

	fieldLabelStyle   = lipgloss.NewStyle().Foreground(accent).Width(10)
	emptyValueStyle   = lipgloss.NewStyle().Foreground(muted)
	emailVariantStyle = lipgloss.NewStyle().Foreground(muted).PaddingLeft(2)
	fieldCursorStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	categoryPickStyle = lipgloss.NewStyle().Foreground(good).Bold(true)
	categoryRowStyle  = lipgloss.NewStyle().Foreground(muted)
	keyHintStyle      = lipgloss.NewStyle().Foreground(muted).MarginTop(1)

	dayShiftStyle   = lipgloss.NewStyle().Foreground(dayShift)
	nightShiftStyle = lipgloss.NewStyle().Foreground(nightSky)
)

// shiftStyle colours a shift value by its period.
func shiftStyle(p *model.Period) lipgloss.Style {
	if p == nil {
		return lipgloss.NewStyle()
	}
	if *p == model.PeriodNight {
		return nightShiftStyle
	}
	return dayShiftStyle
}
