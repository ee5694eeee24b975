// Package device defines the camera and sensor collaborators the capture
// pipeline drives, the exposure math shared by every camera, and a
// deterministic simulator used when no hardware is attached.
package device

import (
	"context"
	"time"
)

// Frame is one captured image and the settings it was taken with.
type Frame struct {
	Sequence    int           `json:"sequence"`
	Timestamp   time.Time     `json:"timestamp"`
	Exposure    time.Duration `json:"exposure"`
	Gain        float64       `json:"gain"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	BitDepth    int           `json:"bit_depth"`
	Temperature float64       `json:"temperature"`
	Pixels      []uint16      `json:"-"`
}

// FullScale is the largest pixel value the frame's bit depth can hold.
func (f *Frame) FullScale() uint16 {
	if f.BitDepth <= 0 || f.BitDepth >= 16 {
		return 0xFFFF
	}
	return uint16(1<<f.BitDepth - 1)
}

// Request asks the camera for one capture. With Auto set and a zero
// Exposure the camera keeps its current exposure.
type Request struct {
	Exposure time.Duration
	Gain     float64
	Auto     bool
	Sequence int
}

// Camera takes pictures. A nil frame with a nil error is a transient failure
// the caller may retry.
type Camera interface {
	Capture(ctx context.Context, req Request) (*Frame, error)
}

// Sensor reads the environment around the instrument. Implementations need
// not be safe for concurrent use; Open wraps them with Serialize.
type Sensor interface {
	// Depth in metres below the surface.
	Depth(ctx context.Context) (float64, error)
	// Pressure in millibar.
	Pressure(ctx context.Context) (float64, error)
	// Temperature of the water in degrees Celsius.
	Temperature(ctx context.Context) (float64, error)
}

// Telemetry reports the state of the instrument itself.
type Telemetry interface {
	DeviceTemperature(ctx context.Context) (float64, error)
}
