package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mrz1836/aegir/internal/config"
	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/control"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/tui"
)

// statusOptions holds the flags of the status command.
type statusOptions struct {
	watch   bool
	timeout time.Duration
}

// AddStatusCommand adds the status command to the root command.
func AddStatusCommand(root *cobra.Command) {
	root.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	opts := statusOptions{timeout: 3 * constants.DefaultStatusInterval}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the running routine",
		Long: `Read the status line the running routine publishes every second:
elapsed time, images dispatched and captured, and the persistence backlog.

With --watch the status is followed live until you press 'q'.

Examples:
  aegir status
  aegir status --watch
  aegir status --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runStatus(cmd.Context(), cmd, os.Stdout, opts)
			return silenceJSONError(cmd, err)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "follow the status live")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "how long to wait for a status line")

	return cmd
}

// runStatus executes the status command.
func runStatus(ctx context.Context, cmd *cobra.Command, w io.Writer, opts statusOptions) error {
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

	if opts.watch {
		if format == OutputJSON {
			return errors.NewExitCode2Error(fmt.Errorf("%w: --watch requires text output", errors.ErrInvalidOutputFormat))
		}
		if !terminalCheck() {
			return errors.NewExitCode2Error(fmt.Errorf("%w: --watch requires a terminal", errors.ErrNonInteractiveMode))
		}
		return watchStatus(ctx, w, cfg, opts)
	}

	return handleCommandError(format, w, executeStatus(ctx, w, cfg, opts, format))
}

// executeStatus prints a single status line.
func executeStatus(ctx context.Context, w io.Writer, cfg *config.Config, opts statusOptions, format string) error {
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	s, err := control.ReadStatus(ctx, cfg.Control.OutPipe)
	if err != nil {
		return err
	}

	out := tui.NewOutput(w, format)
	if format == OutputJSON {
		return out.JSON(s)
	}
	out.Table(tui.StatusHeaders, tui.StatusTable(s))
	return nil
}

// watchStatus runs the live status view.
func watchStatus(ctx context.Context, w io.Writer, cfg *config.Config, opts statusOptions) error {
	reader, err := control.OpenStatusReader(cfg.Control.OutPipe, cfg.Control.PollInterval)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	watchCfg := tui.DefaultWatchConfig()
	if opts.timeout > 0 {
		watchCfg.Timeout = opts.timeout
	}
	if cfg.Control.StatusInterval > 0 {
		watchCfg.RetryInterval = cfg.Control.StatusInterval
	}

	model := tui.NewWatchModel(ctx, reader, watchCfg)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(w))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("status view failed: %w", err)
	}
	return nil
}
