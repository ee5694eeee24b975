package cli

import (
	"os"

	"golang.org/x/term"

	"github.com/mrz1836/aegir/internal/tui"
)

// terminalCheck reports whether stdin is interactive. Tests replace it.
//
//nolint:gochecknoglobals // Test injection point - standard Go testing pattern
var terminalCheck = isTerminal

// isTerminal returns true if stdin is a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirmPrompt asks a yes/no question. Tests replace it.
//
//nolint:gochecknoglobals // Test injection point - standard Go testing pattern
var confirmPrompt = tui.Confirm
