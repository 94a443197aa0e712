package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06B6D4"))
)

func levelStyle(level string) lipgloss.Style {
	switch level {
	case "warn":
		return warnStyle
	case "error":
		return errorStyle
	case "success":
		return successStyle
	default:
		return cellStyle
	}
}

func printTitle(s string) {
	fmt.Println(titleStyle.Render(s))
	fmt.Println()
}
