package ui

import "github.com/charmbracelet/lipgloss"

// Basic ANSI palette so output follows the user's terminal theme.
const (
	red    lipgloss.Color = "1"
	green  lipgloss.Color = "2"
	yellow lipgloss.Color = "3"
	cyan   lipgloss.Color = "6"
	white  lipgloss.Color = "7"
	gray   lipgloss.Color = "8"
)

// Styles shared by the prompt surface and the CLI commands.
var (
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	WarningStyle = lipgloss.NewStyle().Foreground(yellow)
	InfoStyle    = lipgloss.NewStyle().Foreground(cyan)
	TitleStyle   = lipgloss.NewStyle().Foreground(white).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(gray)
)
