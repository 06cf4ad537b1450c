package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication. ANSI codes keep output readable on
// both light and dark terminals.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// SuccessStyle renders online targets and completed actions.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle renders offline targets and failures.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// WarningStyle renders values over an alert threshold.
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

// InfoStyle renders informational text.
func InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorInfo)
}

// MutedStyle renders secondary text such as hosts and timings.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// BoldStyle renders headings.
func BoldStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
}

// DisableColors switches every style to plain text (for --no-color and
// NO_COLOR).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ColorsDisabled reports whether styles currently render without color.
func ColorsDisabled() bool {
	return lipgloss.ColorProfile() == termenv.Ascii
}

// PrintWarning writes a warning line to stderr.
func PrintWarning(msg string) {
	FprintWarning(os.Stderr, msg)
}

// FprintWarning writes a warning line to w.
func FprintWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, WarningStyle().Render(SymbolWarning)+" "+msg)
}
