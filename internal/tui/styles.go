package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	primaryColor   = lipgloss.Color("39")  // Blue
	secondaryColor = lipgloss.Color("245") // Gray
	errorColor     = lipgloss.Color("196") // Red
	successColor   = lipgloss.Color("82")  // Green
	warningColor   = lipgloss.Color("214") // Orange
)

// Styles
var (
	spinnerStyle = lipgloss.NewStyle().Foreground(primaryColor)

	modelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	providerStyle = lipgloss.NewStyle().Foreground(secondaryColor)

	counterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	logStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true)

	retryStyle = lipgloss.NewStyle().Foreground(warningColor)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)
)
