package cli

import (
	stderrors "errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/tui"
)

// outputFormatOf returns the value of the global --output flag, or text when
// the command is used outside the root command.
func outputFormatOf(cmd *cobra.Command) string {
	if f := cmd.Flag("output"); f != nil {
		return f.Value.String()
	}
	return OutputText
}

// handleCommandError reports err in the requested format. In JSON mode the
// error is written to w and ErrJSONErrorOutput is returned instead, keeping
// the exit code of the original error.
func handleCommandError(format string, w io.Writer, err error) error {
	if err == nil || format != OutputJSON {
		return err
	}
	tui.NewOutput(w, format).Error(err)
	if errors.IsExitCode2Error(err) {
		return errors.NewExitCode2Error(errors.ErrJSONErrorOutput)
	}
	return errors.ErrJSONErrorOutput
}

// silenceJSONError stops cobra from printing an error that was already
// written as JSON. The error is still returned for the exit code.
func silenceJSONError(cmd *cobra.Command, err error) error {
	if stderrors.Is(err, errors.ErrJSONErrorOutput) {
		cmd.SilenceErrors = true
	}
	return err
}

// planInputError marks plan problems as invalid user input so the exit code
// survives JSON error output, which replaces the error.
func planInputError(err error) error {
	if isInputError(err) {
		return errors.NewExitCode2Error(err)
	}
	return err
}
