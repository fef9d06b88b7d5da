package tui

import "github.com/charmbracelet/lipgloss"

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	userStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	modelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)
