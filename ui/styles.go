package ui

import "github.com/charmbracelet/lipgloss"

var (
	fuchsia = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	cream   = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	gray    = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	red     = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	yellow  = lipgloss.AdaptiveColor{Light: "#C8A000", Dark: "#ECFD65"}

	titleStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Padding(0, 1).
			Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 3).
			MarginRight(2)

	buttonActiveStyle = buttonStyle.
				Background(fuchsia).
				Underline(true)

	subtleStyle = lipgloss.NewStyle().Foreground(gray)
	errorStyle  = lipgloss.NewStyle().Foreground(red)
	warnStyle   = lipgloss.NewStyle().Foreground(yellow)

	appStyle = lipgloss.NewStyle().Padding(1, 2)
)
