package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

// ProgressBar wraps the bubbles progress bar with aegir styling.
// Supports adaptive width and NO_COLOR compatibility.
type ProgressBar struct {
	bar   progress.Model
	width int
}

// NewProgressBar creates a new progress bar.
// Uses a ColorPrimary gradient when colors are available, solid fill otherwise.
func NewProgressBar(width int) *ProgressBar {
	var bar progress.Model
	if HasColorSupport() {
		bar = progress.New(
			progress.WithWidth(width),
			progress.WithScaledGradient("#0087AF", "#00D7FF"),
		)
	} else {
		bar = progress.New(
			progress.WithWidth(width),
			progress.WithSolidFill("#808080"),
		)
	}
	return &ProgressBar{bar: bar, width: width}
}

// Render returns the progress bar for the given fraction (0.0-1.0).
// Uses ViewAs for static rendering (no animation).
func (pb *ProgressBar) Render(percent float64) string {
	percent = max(0, min(percent, 1))
	return pb.bar.ViewAs(percent)
}

// Width returns the current width of the progress bar.
func (pb *ProgressBar) Width() int {
	return pb.width
}

// SetWidth updates the progress bar width.
func (pb *ProgressBar) SetWidth(w int) {
	pb.width = w
	pb.bar.Width = w
}

// FormatCounter formats progress as "current/total" (e.g., "3/7").
func FormatCounter(current, total int) string {
	return fmt.Sprintf("%d/%d", current, total)
}
