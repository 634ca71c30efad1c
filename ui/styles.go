package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// The palette sticks to the 16-color ANSI range so the UI follows the
// user's terminal theme instead of imposing one.
var (
	dimColor       = lipgloss.Color("7")
	accentColor    = lipgloss.Color("12")
	successColor   = lipgloss.Color("10")
	warningColor   = lipgloss.Color("11")
	dangerColor    = lipgloss.Color("9")
	highlightColor = lipgloss.Color("13")
)

var (
	UserStyle      = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	AssistantStyle = lipgloss.NewStyle().Foreground(accentColor)
	DimStyle       = lipgloss.NewStyle().Foreground(dimColor)
	TitleStyle     = lipgloss.NewStyle().Bold(true)
	StatusStyle    = lipgloss.NewStyle().Foreground(dimColor)
	SelectedStyle  = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	HighlightStyle = lipgloss.NewStyle().Foreground(highlightColor).Bold(true)

	// ToolStyle marks tool activity: transcript marker lines and the
	// executing-tool indicator in the title bar.
	ToolStyle = lipgloss.NewStyle().Foreground(warningColor)
)

// FormatFooter builds a modal footer from key/description pairs:
// FormatFooter("j/k", "Navigate", "Esc", "Close"). Keys stay in the
// default color, descriptions get the accent.
func FormatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)

	var b strings.Builder
	for i := 0; i+1 < len(parts); i += 2 {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(parts[i])
		b.WriteString(" ")
		b.WriteString(descStyle.Render(parts[i+1]))
	}
	return b.String()
}
