// Package domain holds the plain data types shared between the routine,
// the control plane, and the presentation layer.
//
// Import rules:
//   - CAN import: internal/constants, std lib
//   - MUST NOT import: other internal packages
package domain

import (
	"time"

	"github.com/mrz1836/aegir/internal/constants"
)

// Snapshot is a point-in-time view of a routine's run state. Failure logs
// carry one so a failure point can be reconstructed from logs alone.
type Snapshot struct {
	State         constants.RoutineState `json:"state"`
	Elapsed       time.Duration          `json:"elapsed"`
	Dispatched    int                    `json:"dispatched"`
	Planned       int                    `json:"planned"`
	StopRequested bool                   `json:"stop_requested"`
	Complete      bool                   `json:"complete"`
	Capturing     bool                   `json:"capturing"`
	StopReason    string                 `json:"stop_reason,omitempty"`
}

// Stopping reports whether a stop is in effect but the routine has not completed.
func (s Snapshot) Stopping() bool {
	return s.State == constants.RoutineStopping
}

// RoutineStatus is what the control plane reports about a running routine.
type RoutineStatus struct {
	Routine      string        `json:"routine"`
	Session      string        `json:"session"`
	Elapsed      time.Duration `json:"elapsed"`
	Dispatched   int           `json:"dispatched"`
	Captured     int           `json:"captured"`
	Planned      int           `json:"planned"`
	BacklogDepth int           `json:"backlog_depth"`
	Stopping     bool          `json:"stopping"`
}

// Progress returns the dispatched fraction of the planned images in [0, 1].
func (s RoutineStatus) Progress() float64 {
	if s.Planned <= 0 {
		return 0
	}
	return min(float64(s.Dispatched)/float64(s.Planned), 1)
}

// Telemetry is one heartbeat reading of the instrument.
type Telemetry struct {
	Elapsed           time.Duration `json:"elapsed"`
	DeviceTemperature float64       `json:"device_temperature"`
	Depth             float64       `json:"depth"`
	WaterTemperature  float64       `json:"water_temperature"`
}
