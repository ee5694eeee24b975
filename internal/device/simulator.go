package device

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/mrz1836/aegir/internal/clock"
	"github.com/mrz1836/aegir/internal/constants"
)

// SimulatorOptions configure the simulated camera and sensor.
type SimulatorOptions struct {
	Width  int
	Height int

	// Brightness scales the scene. The saturated fraction of a frame grows
	// linearly with Brightness x exposure in seconds x gain.
	Brightness float64

	// StartExposure is the camera's exposure before any request changes it.
	StartExposure time.Duration

	// FailEvery makes every Nth capture return no frame. Zero disables failures.
	FailEvery int

	// Realtime makes each capture take as long as its exposure.
	Realtime bool

	Depth        float64
	FluidDensity float64
	WaterTemp    float64
	DeviceTemp   float64

	Clock clock.Clock
}

// DefaultSimulatorOptions returns a scene that converges on automatic
// exposure within a couple of attempts.
func DefaultSimulatorOptions() SimulatorOptions {
	return SimulatorOptions{
		Width:         64,
		Height:        48,
		Brightness:    constants.DefaultSceneBrightness,
		StartExposure: 100 * time.Millisecond,
		Depth:         10,
		FluidDensity:  constants.SaltWaterDensity,
		WaterTemp:     12.5,
		DeviceTemp:    31,
		Clock:         clock.RealClock{},
	}
}

// Simulator is a deterministic Camera, Sensor, and Telemetry.
type Simulator struct {
	opts SimulatorOptions

	// scene holds each pixel's relative brightness. Values follow a
	// heavy-tailed distribution so the saturated fraction is proportional
	// to the total light.
	scene []float64

	mu       sync.Mutex
	exposure time.Duration
	captures int
}

// NewSimulator builds a simulator. Zero-valued options fall back to defaults.
func NewSimulator(opts SimulatorOptions) *Simulator {
	def := DefaultSimulatorOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Brightness <= 0 {
		opts.Brightness = def.Brightness
	}
	if opts.StartExposure <= 0 {
		opts.StartExposure = def.StartExposure
	}
	if opts.FluidDensity <= 0 {
		opts.FluidDensity = def.FluidDensity
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	n := opts.Width * opts.Height
	scene := make([]float64, n)
	for i := range scene {
		u := (float64(i) + 0.5) / float64(n)
		scene[i] = 0.01 / u
	}

	return &Simulator{opts: opts, scene: scene, exposure: opts.StartExposure}
}

// Capture renders a frame at the requested settings.
func (s *Simulator) Capture(ctx context.Context, req Request) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.captures++
	count := s.captures
	if req.Exposure > 0 {
		s.exposure = req.Exposure
	}
	exposure := s.exposure
	s.mu.Unlock()

	if s.opts.FailEvery > 0 && count%s.opts.FailEvery == 0 {
		return nil, nil //nolint:nilnil // a missing frame is a transient failure
	}

	if s.opts.Realtime {
		timer := time.NewTimer(exposure)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	gain := req.Gain
	if gain <= 0 {
		gain = 1
	}

	const bitDepth = 12
	f := &Frame{
		Sequence:    req.Sequence,
		Timestamp:   s.opts.Clock.Now(),
		Exposure:    exposure,
		Gain:        gain,
		Width:       s.opts.Width,
		Height:      s.opts.Height,
		BitDepth:    bitDepth,
		Temperature: s.opts.DeviceTemp,
		Pixels:      make([]uint16, len(s.scene)),
	}
	full := float64(f.FullScale())
	light := s.opts.Brightness * exposure.Seconds() * gain
	for i, v := range s.scene {
		f.Pixels[i] = uint16(math.Min(v*light, 1) * full)
	}
	return f, nil
}

// Exposure returns the camera's current exposure.
func (s *Simulator) Exposure() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure
}

// Captures returns the number of capture calls so far.
func (s *Simulator) Captures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}

// Depth returns the configured depth.
func (s *Simulator) Depth(_ context.Context) (float64, error) {
	return s.opts.Depth, nil
}

// Pressure returns the pressure at the configured depth.
func (s *Simulator) Pressure(_ context.Context) (float64, error) {
	return PressureAtDepth(s.opts.Depth, s.opts.FluidDensity), nil
}

// Temperature returns the configured water temperature.
func (s *Simulator) Temperature(_ context.Context) (float64, error) {
	return s.opts.WaterTemp, nil
}

// DeviceTemperature returns the configured instrument temperature.
func (s *Simulator) DeviceTemperature(_ context.Context) (float64, error) {
	return s.opts.DeviceTemp, nil
}

var (
	_ Camera    = (*Simulator)(nil)
	_ Sensor    = (*Simulator)(nil)
	_ Telemetry = (*Simulator)(nil)
)
