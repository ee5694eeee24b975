package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/aegir/internal/config"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/plan"
	"github.com/mrz1836/aegir/internal/sweep"
	"github.com/mrz1836/aegir/internal/tui"
)

// defaultSequenceLimit is the number of sequence rows `plan show` prints.
const defaultSequenceLimit = 20

// planShowResult is the JSON form of `plan show`.
type planShowResult struct {
	Plan     plan.Plan          `json:"plan"`
	File     string             `json:"file"`
	Summary  []plan.SummaryLine `json:"summary"`
	Estimate string             `json:"estimate"`
	Settings []sweep.Setting    `json:"settings"`
	Omitted  int                `json:"omitted"`
}

// planValidateResult is the JSON form of `plan validate`.
type planValidateResult struct {
	File   string `json:"file"`
	Name   string `json:"name"`
	Valid  bool   `json:"valid"`
	Images int    `json:"images"`
}

// AddPlanCommand adds the plan command group to the root command.
func AddPlanCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect and validate routine plans",
		Long: `Inspect the routine plans aegir can run.

Examples:
  aegir plan list
  aegir plan show reef-survey
  aegir plan validate ./routines/night.yaml`,
	}

	addPlanShowCmd(cmd)
	addPlanValidateCmd(cmd)
	addPlanListCmd(cmd)

	root.AddCommand(cmd)
}

func addPlanShowCmd(parent *cobra.Command) {
	var limit int

	cmd := &cobra.Command{
		Use:   "show <routine>",
		Short: "Show a plan, its capture sequence and expected duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runPlanShow(cmd.Context(), cmd, os.Stdout, args[0], limit)
			return silenceJSONError(cmd, err)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultSequenceLimit, "sequence rows to show (0 for all)")

	parent.AddCommand(cmd)
}

func addPlanValidateCmd(parent *cobra.Command) {
	parent.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check a plan file for errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runPlanValidate(cmd.Context(), cmd, os.Stdout, args[0])
			return silenceJSONError(cmd, err)
		},
	})
}

func addPlanListCmd(parent *cobra.Command) {
	parent.AddCommand(&cobra.Command{
		Use:     "list",
		Short:   "List the plans in the routines directory",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runPlanList(cmd.Context(), cmd, os.Stdout)
			return silenceJSONError(cmd, err)
		},
	})
}

// runPlanShow executes `plan show`.
func runPlanShow(ctx context.Context, cmd *cobra.Command, w io.Writer, name string, limit int) error {
	format := outputFormatOf(cmd)
	tui.CheckNoColor()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return handleCommandError(format, w, err)
	}
	return handleCommandError(format, w, executePlanShow(w, cfg, name, limit, format))
}

func executePlanShow(w io.Writer, cfg *config.Config, name string, limit int, format string) error {
	p, path, err := plan.Resolve(cfg.Data.RoutinesDir, name, GetLogger())
	if err != nil {
		return planInputError(err)
	}
	seq, err := p.Sequence()
	if err != nil {
		return planInputError(err)
	}

	rows, omitted := tui.SequenceTable(seq, limit)
	out := tui.NewOutput(w, format)

	if format == OutputJSON {
		return out.JSON(planShowResult{
			Plan:     p,
			File:     path,
			Summary:  p.Summary(seq),
			Estimate: p.Estimate(seq).String(),
			Settings: seq.Settings[:len(rows)],
			Omitted:  omitted,
		})
	}

	lines := p.Summary(seq)
	summary := make([][]string, 0, len(lines)+2)
	summary = append(summary, []string{"File", path})
	for _, line := range lines {
		summary = append(summary, []string{line.Label, line.Value})
	}
	summary = append(summary, []string{"Estimated duration", tui.FormatElapsed(p.Estimate(seq))})
	out.Table([]string{"FIELD", "VALUE"}, summary)

	_, _ = fmt.Fprintln(w)
	out.Table(tui.SequenceHeaders, rows)
	if omitted > 0 {
		out.Info(fmt.Sprintf("%d more settings not shown (use --limit 0 to show all)", omitted))
	}
	return nil
}

// runPlanValidate executes `plan validate`. Invalid plans exit with code 2.
func runPlanValidate(_ context.Context, cmd *cobra.Command, w io.Writer, path string) error {
	format := outputFormatOf(cmd)
	tui.CheckNoColor()
	return handleCommandError(format, w, executePlanValidate(w, path, format))
}

func executePlanValidate(w io.Writer, path, format string) error {
	p, err := plan.LoadFile(path)
	if err != nil {
		return planValidationError(err)
	}
	seq, err := p.Sequence()
	if err != nil {
		return planValidationError(err)
	}

	out := tui.NewOutput(w, format)
	if format == OutputJSON {
		return out.JSON(planValidateResult{File: path, Name: p.Name, Valid: true, Images: seq.Len()})
	}
	out.Success(fmt.Sprintf("%s is valid: routine %q, %d settings", path, p.Name, seq.Len()))
	return nil
}

// planValidationError maps every load failure of a named file to exit code 2.
func planValidationError(err error) error {
	return errors.NewExitCode2Error(err)
}

// runPlanList executes `plan list`.
func runPlanList(ctx context.Context, cmd *cobra.Command, w io.Writer) error {
	format := outputFormatOf(cmd)
	tui.CheckNoColor()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return handleCommandError(format, w, err)
	}
	return handleCommandError(format, w, executePlanList(w, cfg, format))
}

func executePlanList(w io.Writer, cfg *config.Config, format string) error {
	plans, err := plan.List(cfg.Data.RoutinesDir)
	if err != nil {
		return err
	}

	out := tui.NewOutput(w, format)
	if format == OutputJSON {
		return out.JSON(plans)
	}
	if len(plans) == 0 {
		out.Info(fmt.Sprintf("No plans in %s", cfg.Data.RoutinesDir))
		return nil
	}

	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		images, estimate := "-", "-"
		if seq, err := p.Sequence(); err == nil {
			images = fmt.Sprint(seq.Len())
			estimate = tui.FormatElapsed(p.Estimate(seq))
		}
		rows = append(rows, []string{p.Name, string(p.IntervalMode), images, estimate})
	}
	out.Table([]string{"NAME", "MODE", "IMAGES", "ESTIMATE"}, rows)
	return nil
}
