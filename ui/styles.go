package ui

import "github.com/charmbracelet/lipgloss"

const ellipsis = "…"

var (
	grayStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF8800"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)
