// Package errors provides centralized error handling for aegir.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrInvalidPlan indicates that a routine plan could not be turned into
	// a usable capture sequence (empty settings, malformed values).
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrUnknownPlanKey indicates that a plan file contains a key that is not
	// part of the plan schema.
	ErrUnknownPlanKey = errors.New("unknown plan key")

	// ErrInvalidPlanValue indicates that a plan key carries a value of the
	// wrong type or outside its allowed set.
	ErrInvalidPlanValue = errors.New("invalid plan value")

	// ErrRoutineNotFound indicates that no plan file matched the requested routine.
	ErrRoutineNotFound = errors.New("routine not found")

	// ErrCaptureFailed indicates that the camera returned an error for a capture
	// request. It aborts only the current item.
	ErrCaptureFailed = errors.New("capture failed")

	// ErrCaptureExhausted indicates that too many null captures were returned
	// for a single settings item.
	ErrCaptureExhausted = errors.New("capture attempts exhausted")

	// ErrSensorUnavailable indicates that an environmental reading failed after
	// its retry. Readers substitute a zero value.
	ErrSensorUnavailable = errors.New("sensor unavailable")

	// ErrDeviceUnavailable indicates that the camera or sensor could not be
	// opened when the routine started.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrTickError indicates an unexpected failure inside one scheduler tick.
	ErrTickError = errors.New("scheduler tick failed")

	// ErrTooManyTickErrors indicates that the scheduler hit its limit of
	// consecutive tick failures and gave up.
	ErrTooManyTickErrors = errors.New("too many consecutive tick errors")

	// ErrRoutineNotRunning indicates an operation that needs a started routine.
	ErrRoutineNotRunning = errors.New("routine not running")

	// ErrRoutineAlreadyRunning indicates that another process holds the control pipes.
	ErrRoutineAlreadyRunning = errors.New("routine already running")

	// ErrBacklogClosed indicates a put on a backlog that has been closed.
	ErrBacklogClosed = errors.New("backlog closed")

	// ErrSessionLocked indicates that another process holds the session directory.
	ErrSessionLocked = errors.New("session locked by another process")

	// ErrSessionCorrupt indicates that an existing session.json could not be read back.
	ErrSessionCorrupt = errors.New("session metadata corrupt")

	// ErrControlChannel indicates that a control pipe could not be created or opened.
	ErrControlChannel = errors.New("control channel unavailable")

	// ErrNoListener indicates that nothing is reading the outbound control pipe.
	// Status writes treat it as a dropped message.
	ErrNoListener = errors.New("no control listener")

	// ErrNoStatus indicates that no status line was available on the control channel.
	ErrNoStatus = errors.New("no status available")

	// ErrMalformedStatus indicates a status line that could not be parsed.
	ErrMalformedStatus = errors.New("malformed status line")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidData indicates an invalid data directory configuration value.
	ErrConfigInvalidData = errors.New("invalid data configuration")

	// ErrConfigInvalidControl indicates an invalid control channel configuration value.
	ErrConfigInvalidControl = errors.New("invalid control configuration")

	// ErrConfigInvalidPipeline indicates an invalid pipeline configuration value.
	ErrConfigInvalidPipeline = errors.New("invalid pipeline configuration")

	// ErrConfigInvalidDevice indicates an invalid device configuration value.
	ErrConfigInvalidDevice = errors.New("invalid device configuration")

	// ErrConfigInvalidLog indicates an invalid log configuration value.
	ErrConfigInvalidLog = errors.New("invalid log configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrNonInteractiveMode indicates that a prompt was required but stdin is not a terminal.
	ErrNonInteractiveMode = errors.New("interactive prompt required but not in terminal")

	// ErrOperationCanceled indicates that the user declined a confirmation prompt.
	ErrOperationCanceled = errors.New("operation canceled by user")

	// ErrJSONErrorOutput indicates that the error has already been written as JSON.
	// The CLI uses it to skip printing the message a second time.
	ErrJSONErrorOutput = errors.New("error output as JSON")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
// The CLI uses it for input the user can fix, such as a malformed routine file.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}
