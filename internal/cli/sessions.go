package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/aegir/internal/config"
	"github.com/mrz1836/aegir/internal/session"
	"github.com/mrz1836/aegir/internal/tui"
)

// sessionHeaders are the columns of `aegir sessions`.
//
//nolint:gochecknoglobals // fixed table layout
var sessionHeaders = []string{"NAME", "ROUTINE", "IMAGES", "STARTED", "UPDATED"}

// AddSessionsCommand adds the sessions command to the root command.
func AddSessionsCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Long: `List the sessions recorded in the sessions directory, newest first.

Examples:
  aegir sessions
  aegir sessions --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runSessions(cmd.Context(), cmd, os.Stdout)
			return silenceJSONError(cmd, err)
		},
	})
}

// runSessions executes the sessions command.
func runSessions(ctx context.Context, cmd *cobra.Command, w io.Writer) error {
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
	return handleCommandError(format, w, executeSessions(w, cfg, format))
}

func executeSessions(w io.Writer, cfg *config.Config, format string) error {
	list, err := session.ReadList(cfg.Data.SessionsDir)
	if err != nil {
		return err
	}

	sessions := sortSessions(list)
	out := tui.NewOutput(w, format)

	if format == OutputJSON {
		return out.JSON(sessions)
	}
	if len(sessions) == 0 {
		out.Info("No sessions recorded yet. Start one with 'aegir run --routine <name>'.")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, d := range sessions {
		rows = append(rows, []string{
			d.Name,
			d.Routine,
			fmt.Sprint(d.ImageCount),
			d.StartTime.Local().Format("2006-01-02 15:04"),
			tui.RelativeTime(d.LastUpdated),
		})
	}
	out.Table(sessionHeaders, rows)
	return nil
}

// sortSessions orders sessions newest first, then by name.
func sortSessions(list map[string]session.Details) []session.Details {
	sessions := make([]session.Details, 0, len(list))
	for _, d := range list {
		sessions = append(sessions, d)
	}
	slices.SortFunc(sessions, func(a, b session.Details) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return sessions
}
