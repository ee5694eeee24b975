// Package capture implements the capture stage: the single worker that
// turns shots from the capture backlog into stored-ready artifacts.
package capture

import (
	"time"

	"github.com/mrz1836/aegir/internal/device"
	"github.com/mrz1836/aegir/internal/sweep"
)

// Artifact is a captured frame with its environmental readings.
type Artifact struct {
	Frame *device.Frame

	// Index is the shot's position in the capture sequence.
	Index int

	// Number is assigned by the persistence stage in storage order.
	Number int

	Setting            sweep.Setting
	CapturedAt         time.Time
	Depth              float64
	Pressure           float64
	AmbientTemperature float64
	Auto               bool
	Converged          bool
	Attempts           int
	Saturation         float64
}

// Report tells the scheduler that the stage finished with one shot.
type Report struct {
	Index       int
	StartedAt   time.Time
	CompletedAt time.Time
	Err         error
}
