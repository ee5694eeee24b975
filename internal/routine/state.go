package routine

import (
	"slices"

	"github.com/mrz1836/aegir/internal/constants"
)

// ValidTransitions defines the routine lifecycle.
//
//	NotStarted → Running
//	Running → Stopping, Complete
//	Stopping → Complete
//
// Complete is terminal.
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[constants.RoutineState][]constants.RoutineState{
	constants.RoutineNotStarted: {constants.RoutineRunning},
	constants.RoutineRunning:    {constants.RoutineStopping, constants.RoutineComplete},
	constants.RoutineStopping:   {constants.RoutineComplete},
}

// IsValidTransition reports whether a routine may move from one state to another.
func IsValidTransition(from, to constants.RoutineState) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// IsTerminal reports whether no transitions leave state.
func IsTerminal(state constants.RoutineState) bool {
	return len(ValidTransitions[state]) == 0
}
