package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// Using a slice (not a map) because errors.Is() requires proper error chain traversal.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Plans
	// ===================
	{
		err: ErrUnknownPlanKey,
		info: ErrorInfo{
			Message: "The routine file contains a key aegir does not recognize.",
			Action:  "Check the key spelling against 'aegir plan validate' output.",
		},
	},
	{
		err: ErrInvalidPlanValue,
		info: ErrorInfo{
			Message: "The routine file contains a value of the wrong type.",
			Action:  "Fix the value reported above and run 'aegir plan validate' again.",
		},
	},
	{
		err: ErrInvalidPlan,
		info: ErrorInfo{
			Message: "The routine plan cannot produce a capture sequence.",
			Action:  "Make sure integration_time and gain are not empty lists.",
		},
	},
	{
		err: ErrRoutineNotFound,
		info: ErrorInfo{
			Message: "No routine file matched the requested name.",
			Action:  "Pass a file path or a name that matches the 'name' key of a file in the routines directory.",
		},
	},

	// ===================
	// Devices
	// ===================
	{
		err: ErrDeviceUnavailable,
		info: ErrorInfo{
			Message: "The camera or sensor could not be opened.",
			Action:  "Check the device connection or run with --simulate.",
		},
	},
	{
		err: ErrCaptureExhausted,
		info: ErrorInfo{
			Message: "The camera kept returning empty frames.",
		},
	},
	{
		err: ErrCaptureFailed,
		info: ErrorInfo{
			Message: "The camera reported an error during capture.",
		},
	},
	{
		err: ErrSensorUnavailable,
		info: ErrorInfo{
			Message: "An environmental sensor could not be read.",
		},
	},

	// ===================
	// Routine
	// ===================
	{
		err: ErrTooManyTickErrors,
		info: ErrorInfo{
			Message: "The scheduler failed repeatedly and stopped the routine.",
			Action:  "Inspect the log file for the failing tick and restart the routine.",
		},
	},
	{
		err: ErrRoutineNotRunning,
		info: ErrorInfo{
			Message: "No routine is running.",
			Action:  "Start one with 'aegir run --routine <name>'.",
		},
	},
	{
		err: ErrRoutineAlreadyRunning,
		info: ErrorInfo{
			Message: "Another routine is already running on this host.",
			Action:  "Stop it with 'aegir stop' or point control.in_pipe at a different directory.",
		},
	},
	{
		err: ErrSessionLocked,
		info: ErrorInfo{
			Message: "Another aegir process is writing to this session.",
			Action:  "Stop the other process or choose a different --session name.",
		},
	},
	{
		err: ErrSessionCorrupt,
		info: ErrorInfo{
			Message: "The existing session metadata could not be read.",
			Action:  "Move the session directory aside or choose a different --session name.",
		},
	},

	// ===================
	// Control channel
	// ===================
	{
		err: ErrControlChannel,
		info: ErrorInfo{
			Message: "The control pipes could not be opened.",
			Action:  "Check control.in_pipe and control.out_pipe in your config.",
		},
	},
	{
		err: ErrNoStatus,
		info: ErrorInfo{
			Message: "No status was received from a running routine.",
			Action:  "Check that 'aegir run' is active on this host.",
		},
	},

	// ===================
	// Configuration
	// ===================
	{
		err: ErrConfigNil,
		info: ErrorInfo{
			Message: "Configuration is missing.",
		},
	},
	{
		err: ErrConfigInvalidData,
		info: ErrorInfo{
			Message: "The data directory configuration is invalid.",
			Action:  "Check the 'data' section of ~/.aegir/config.yaml.",
		},
	},
	{
		err: ErrConfigInvalidControl,
		info: ErrorInfo{
			Message: "The control channel configuration is invalid.",
			Action:  "Check the 'control' section of ~/.aegir/config.yaml.",
		},
	},
	{
		err: ErrConfigInvalidPipeline,
		info: ErrorInfo{
			Message: "The pipeline configuration is invalid.",
			Action:  "Check the 'pipeline' section of ~/.aegir/config.yaml.",
		},
	},
	{
		err: ErrConfigInvalidDevice,
		info: ErrorInfo{
			Message: "The device configuration is invalid.",
			Action:  "Check the 'device' section of ~/.aegir/config.yaml.",
		},
	},
	{
		err: ErrConfigInvalidLog,
		info: ErrorInfo{
			Message: "The log configuration is invalid.",
			Action:  "Check the 'log' section of ~/.aegir/config.yaml.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Unknown output format.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrNonInteractiveMode,
		info: ErrorInfo{
			Message: "This command needs a terminal to ask for confirmation.",
			Action:  "Re-run with --force to skip the prompt.",
		},
	},
	{
		err: ErrOperationCanceled,
		info: ErrorInfo{
			Message: "Operation canceled.",
		},
	},
}

//nolint:gochecknoglobals // Built once from errorInfoEntries
var errorInfoMap = buildErrorInfoMap()

func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// It first tries a direct map lookup for unwrapped sentinel errors,
// then falls back to errors.Is() traversal for wrapped errors.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve or work around the issue.
//
// For errors that have no clear action, the action string will be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
