package cli

import "github.com/charmbracelet/lipgloss"

const asciiLogo = `
                   _                     _
  _ __    __ _   | |   ___     __ _    __| |
 | '_ \  / _` + "`" + ` |  | |  / _ \   / _` + "`" + ` |  / _` + "`" + ` |
 | |_) || (_| |  | | | (_) | | (_| | | (_| |
 | .__/  \__, |  |_|  \___/   \__,_|  \__,_|
 |_|     |___/`

// Color palette - keeping it minimal and accessible.
var (
	colorPrimary = lipgloss.Color("39")  // Blue
	colorSuccess = lipgloss.Color("34")  // Green
	colorWarning = lipgloss.Color("214") // Orange
	colorError   = lipgloss.Color("196") // Red
	colorMuted   = lipgloss.Color("245") // Gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)
)
