package constants

// RoutineState represents the lifecycle of one routine run.
//
//	NotStarted → Running → Stopping → Complete
//	Running → Complete (stage already idle when the stop was observed)
type RoutineState string

const (
	// RoutineNotStarted is the state before the first tick.
	RoutineNotStarted RoutineState = "not_started"

	// RoutineRunning indicates the scheduler is dispatching captures.
	RoutineRunning RoutineState = "running"

	// RoutineStopping indicates a stop is in effect and the capture stage is draining.
	RoutineStopping RoutineState = "stopping"

	// RoutineComplete is terminal.
	RoutineComplete RoutineState = "complete"
)

// String returns the string representation of the RoutineState.
func (s RoutineState) String() string {
	return string(s)
}

// IntervalMode selects which capture event the interval is measured from.
type IntervalMode string

const (
	// IntervalFromCaptureStart measures the interval from the previous dispatch.
	IntervalFromCaptureStart IntervalMode = "capture_start"

	// IntervalFromCaptureEnd measures the interval from the previous capture completion.
	IntervalFromCaptureEnd IntervalMode = "capture_end"
)

// String returns the string representation of the IntervalMode.
func (m IntervalMode) String() string {
	return string(m)
}

// Valid reports whether m is a known interval mode.
func (m IntervalMode) Valid() bool {
	return m == IntervalFromCaptureStart || m == IntervalFromCaptureEnd
}
