package cli

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/errors"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitError        = 1
	ExitInvalidInput = 2
	// ExitAborted follows the shell convention for a run ended by SIGINT.
	ExitAborted = 130
)

// Values of the --output flag.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	Output  string
	Verbose bool
	Quiet   bool
}

// globalFlagNames are bound to viper so AEGIR_OUTPUT, AEGIR_VERBOSE and
// AEGIR_QUIET work like the flags.
//
//nolint:gochecknoglobals // fixed flag set
var globalFlagNames = []string{"output", "verbose", "quiet"}

// inputErrors are the sentinels that mean the user asked for something
// aegir cannot run: exit code 2.
//
//nolint:gochecknoglobals // fixed sentinel set
var inputErrors = []error{
	errors.ErrInvalidOutputFormat,
	errors.ErrInvalidPlan,
	errors.ErrUnknownPlanKey,
	errors.ErrInvalidPlanValue,
	errors.ErrRoutineNotFound,
}

// cobraInputMessages match the messages of cobra's own argument and flag
// validation, which carry no sentinel.
//
//nolint:gochecknoglobals // fixed message set
var cobraInputMessages = []string{
	"unknown flag",
	"unknown shorthand flag",
	"flag needs an argument",
	"invalid argument",
	"if any flags in the group",
	"required flag",
	"unknown command",
	"accepts ",
}

// AddGlobalFlags registers the global flags on the root command.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "log warnings and errors only")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds the global flags to v under the AEGIR_ env prefix.
// Flags are looked up on the root so this works from any subcommand.
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	rootFlags := cmd.Root().PersistentFlags()
	for _, name := range globalFlagNames {
		if err := v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
			return err
		}
	}
	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	return nil
}

// ValidOutputFormats returns the accepted --output values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat reports whether format is an accepted --output value.
func IsValidOutputFormat(format string) bool {
	return slices.Contains(ValidOutputFormats(), format)
}

// ExitCodeForError maps a command error to the process exit code: 2 for
// invalid input (bad flags, arguments, or plans), 130 for a run aborted by
// a second interrupt, and 1 for everything else.
func ExitCodeForError(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.IsExitCode2Error(err), isInputError(err):
		return ExitInvalidInput
	case stderrors.Is(err, context.Canceled):
		return ExitAborted
	case isCobraInputError(err.Error()):
		return ExitInvalidInput
	default:
		return ExitError
	}
}

func isInputError(err error) bool {
	return slices.ContainsFunc(inputErrors, func(target error) bool {
		return stderrors.Is(err, target)
	})
}

func isCobraInputError(msg string) bool {
	return slices.ContainsFunc(cobraInputMessages, func(pattern string) bool {
		return strings.Contains(msg, pattern)
	})
}
