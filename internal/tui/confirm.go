package tui

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/mrz1836/aegir/internal/errors"
)

// TerminalEdgeMargin is the number of columns left between a prompt and the
// terminal edge.
const TerminalEdgeMargin = 4

// MinPromptWidth is the narrowest a prompt is drawn.
const MinPromptWidth = 40

// Theme returns a Huh theme using the aegir colors.
func Theme() *huh.Theme {
	CheckNoColor()

	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(ColorPrimary)
	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary)
	t.Focused.FocusedButton = t.Focused.FocusedButton.Background(ColorPrimary)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorError)
	t.Focused.Description = t.Focused.Description.Foreground(ColorMuted)

	t.Blurred.Base = t.Blurred.Base.BorderForeground(ColorMuted)
	t.Blurred.Title = t.Blurred.Title.Foreground(ColorMuted)

	return t
}

// Confirm presents a yes/no prompt. It returns ErrNonInteractiveMode when
// stdin is not a terminal and ErrOperationCanceled when the user aborts.
func Confirm(message string, defaultYes bool) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.ErrNonInteractiveMode
	}

	confirmed := defaultYes
	field := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	_, accessible := os.LookupEnv("ACCESSIBLE")
	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(Theme()).
		WithWidth(promptWidth()).
		WithAccessible(accessible)

	if err := form.Run(); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return false, errors.ErrOperationCanceled
		}
		return false, fmt.Errorf("confirm prompt failed: %w", err)
	}
	return confirmed, nil
}

// promptWidth fits a prompt to the terminal, falling back to DefaultBoxWidth.
func promptWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultBoxWidth
	}
	return max(min(width-TerminalEdgeMargin, DefaultBoxWidth), MinPromptWidth)
}
