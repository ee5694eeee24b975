// Package tui provides terminal user interface components for aegir.
//
// This package provides a centralized style system using Lip Gloss for consistent
// output styling. All colors use AdaptiveColor for light/dark terminal support.
//
// # Semantic Colors
//
// Five semantic colors are exported for use across components:
//   - ColorPrimary (Blue): running routines, progress, informational text
//   - ColorSuccess (Green): completed routines and successful commands
//   - ColorWarning (Yellow): stopping routines and warnings
//   - ColorError (Red): failures
//   - ColorMuted (Gray): idle states and secondary text
//
// # NO_COLOR Support
//
// Call CheckNoColor() at the start of commands to respect the NO_COLOR environment
// variable. Colors are also disabled when TERM=dumb.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/mrz1836/aegir/internal/constants"
)

// DefaultBoxWidth is the width used for prompts when the terminal size is unknown.
const DefaultBoxWidth = 60

//nolint:gochecknoglobals // Intentional package-level constants for styling API
var (
	// ColorPrimary is blue, used for active states and informational text.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for success states and completed routines.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for warnings and stopping routines.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red, used for errors.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for dim states and secondary text.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting to text.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies dim/faint formatting to text.
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// RoutineStateColors returns the semantic color for each routine state.
func RoutineStateColors() map[constants.RoutineState]lipgloss.AdaptiveColor {
	return map[constants.RoutineState]lipgloss.AdaptiveColor{
		constants.RoutineNotStarted: ColorMuted,
		constants.RoutineRunning:    ColorPrimary,
		constants.RoutineStopping:   ColorWarning,
		constants.RoutineComplete:   ColorSuccess,
	}
}

// RoutineStateIcon returns the icon for a routine state.
func RoutineStateIcon(state constants.RoutineState) string {
	icons := map[constants.RoutineState]string{
		constants.RoutineNotStarted: "○",
		constants.RoutineRunning:    "●",
		constants.RoutineStopping:   "⟳",
		constants.RoutineComplete:   "✓",
	}
	if icon, ok := icons[state]; ok {
		return icon
	}
	return "?"
}

// FormatRoutineState renders a state as icon + text, colored when the
// terminal supports it.
func FormatRoutineState(state constants.RoutineState) string {
	text := RoutineStateIcon(state) + " " + state.String()
	if !HasColorSupport() {
		return text
	}
	color, ok := RoutineStateColors()[state]
	if !ok {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

// TableStyles holds lipgloss styles for table rendering.
type TableStyles struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Dim    lipgloss.Style
}

// NewTableStyles creates styles for table rendering.
func NewTableStyles() *TableStyles {
	return &TableStyles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		Cell: lipgloss.NewStyle(),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
	}
}

// OutputStyles holds common output styles.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
}

// NewOutputStyles creates common output styles using AdaptiveColor for light/dark terminal support.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(ColorWarning),
		Info: lipgloss.NewStyle().
			Foreground(ColorPrimary),
		Dim: lipgloss.NewStyle().
			Foreground(ColorMuted),
	}
}

// CheckNoColor respects the NO_COLOR environment variable.
// Call this at the start of commands that output styled text.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns true if the terminal supports colors.
// Returns false if NO_COLOR is set (any value including empty string) or TERM=dumb.
// This follows the NO_COLOR standard: https://no-color.org/
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}
