package ui

import "github.com/charmbracelet/lipgloss"

var (
	cyan   = lipgloss.Color("#00E5FF")
	green  = lipgloss.Color("#2AFFAA")
	red    = lipgloss.Color("#FF5555")
	yellow = lipgloss.Color("#FFB500")
	muted  = lipgloss.Color("#6C7280")
	text   = lipgloss.Color("#ECEFF4")
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(cyan).Bold(true).MarginBottom(1)
	subtitleStyle = lipgloss.NewStyle().Foreground(muted)
	labelStyle    = lipgloss.NewStyle().Foreground(muted).Width(18)
	valueStyle    = lipgloss.NewStyle().Foreground(text)
	selectedStyle = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	positiveStyle = lipgloss.NewStyle().Foreground(green)
	negativeStyle = lipgloss.NewStyle().Foreground(red)
	staleStyle    = lipgloss.NewStyle().Foreground(muted).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(red).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(yellow)
	frameStyle    = lipgloss.NewStyle().Padding(1, 2)
)

// evStyle colours an EV cell by sign.
func evStyle(ev *float64) lipgloss.Style {
	switch {
	case ev == nil:
		return subtitleStyle
	case *ev > 0:
		return positiveStyle
	case *ev < 0:
		return negativeStyle
	default:
		return valueStyle
	}
}
