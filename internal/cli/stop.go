package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/aegir/internal/config"
	"github.com/mrz1836/aegir/internal/control"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/tui"
)

// stopResult is the JSON form of a stop request.
type stopResult struct {
	Status string `json:"status"`
	Pipe   string `json:"pipe"`
}

// AddStopCommand adds the stop command to the root command.
func AddStopCommand(root *cobra.Command) {
	root.AddCommand(newStopCmd())
}

func newStopCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running routine",
		Long: `Ask the running routine to stop. No new captures are started; captures
already in progress finish and are saved before the routine exits.

Use --force to skip the confirmation prompt.

Examples:
  aegir stop
  aegir stop --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runStop(cmd.Context(), cmd, os.Stdout, force)
			return silenceJSONError(cmd, err)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// runStop executes the stop command.
func runStop(ctx context.Context, cmd *cobra.Command, w io.Writer, force bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	format := outputFormatOf(cmd)
	tui.CheckNoColor()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return handleCommandError(format, w, err)
	}
	return handleCommandError(format, w, executeStop(w, cfg, force, format))
}

// executeStop confirms when interactive, then writes STOP to the inbound pipe.
func executeStop(w io.Writer, cfg *config.Config, force bool, format string) error {
	out := tui.NewOutput(w, format)

	if !force && format != OutputJSON && terminalCheck() {
		confirmed, err := confirmPrompt("Stop the running routine?", true)
		if stderrors.Is(err, errors.ErrOperationCanceled) || (err == nil && !confirmed) {
			out.Info("Stop canceled")
			return nil
		}
		if err != nil {
			return err
		}
	}

	if err := control.SendStop(cfg.Control.InPipe); err != nil {
		return err
	}
	logger := GetLogger()
	logger.Info().Str("pipe", cfg.Control.InPipe).Msg("stop request sent")

	if format == OutputJSON {
		return out.JSON(stopResult{Status: "stop_requested", Pipe: cfg.Control.InPipe})
	}
	out.Success("Stop requested; in-flight captures will finish first")
	return nil
}
