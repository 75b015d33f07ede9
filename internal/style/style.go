// Package style holds the terminal styles for run output. Only the
// presentation layer uses it; the engine logs plain events.
package style

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("6")
	colorError  = lipgloss.Color("1")
	colorWarn   = lipgloss.Color("3")
	colorMuted  = lipgloss.Color("8")
)

var (
	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccent)

	Emphasis = lipgloss.NewStyle().
			Bold(true)

	Announce = lipgloss.NewStyle().
			Underline(true)

	Muted = lipgloss.NewStyle().
		Faint(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	WarnText = lipgloss.NewStyle().
			Foreground(colorWarn)

	DebugText = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// FormatLevel renders a zerolog console level tag. Informational lines
// stay bare, matching plain run output; only problems get a prefix.
func FormatLevel(i any) string {
	level, _ := i.(string)
	switch level {
	case "error", "fatal":
		return ErrorText.Render("ERROR")
	case "warn":
		return WarnText.Render("WARN")
	case "debug", "trace":
		return DebugText.Render(strings.ToUpper(level))
	default:
		return ""
	}
}

// FormatMessage renders a console message untouched.
func FormatMessage(i any) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("%s", i)
}
