package main

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for terminal output.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))            // green
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))            // red
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))            // gray

	// Diff line styles.
	diffAddStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	diffDelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	diffHunkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // cyan
)
