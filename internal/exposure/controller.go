// Package exposure runs one settings item against the camera, retrying
// empty captures and steering automatic exposure into the saturation window.
package exposure

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/device"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/sweep"
)

// SaturationFunc measures the saturated fraction of a frame.
type SaturationFunc func(f *device.Frame, sampleSize int) float64

// AdjustFunc proposes the next exposure from the current one and its saturation.
type AdjustFunc func(current time.Duration, fraction float64) time.Duration

// Result is the outcome of one settings item.
type Result struct {
	Frame *device.Frame

	// Attempts counts frames evaluated for exposure, excluding empty captures.
	Attempts int

	// Converged is false when automatic exposure ran out of attempts and
	// Frame is the last best-effort capture.
	Converged bool

	Auto       bool
	Saturation float64
}

// Options tune a Controller. Zero values select the defaults.
type Options struct {
	Saturation   SaturationFunc
	Adjust       AdjustFunc
	SampleSize   int
	AttemptLimit int
	FailLimit    int
}

// Controller captures settings items. It is used by a single worker and is
// not safe for concurrent Acquire calls.
type Controller struct {
	camera device.Camera
	opts   Options
	logger zerolog.Logger
}

// NewController returns a Controller for camera.
func NewController(camera device.Camera, opts Options, logger zerolog.Logger) *Controller {
	if opts.Saturation == nil {
		opts.Saturation = device.SaturationFraction
	}
	if opts.Adjust == nil {
		opts.Adjust = device.NextExposure
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = constants.DefaultSaturationSampleSize
	}
	if opts.AttemptLimit <= 0 {
		opts.AttemptLimit = constants.AutoExposureAttemptLimit
	}
	if opts.FailLimit <= 0 {
		opts.FailLimit = constants.CaptureFailLimit
	}
	return &Controller{camera: camera, opts: opts, logger: logger}
}

// Acquire captures one item. Manual settings issue a single capture.
// Automatic settings re-capture until the saturation fraction is inside the
// window or the attempt limit is reached, in which case the last frame is
// returned with Converged false. Empty captures are retried and count
// against the item's fail limit across all attempts.
func (c *Controller) Acquire(ctx context.Context, s sweep.Setting, index int) (Result, error) {
	fails := 0
	log := c.logger.With().Int("item", index).Logger()

	if !s.Auto() {
		f, err := c.capture(ctx, device.Request{Exposure: s.Exposure, Gain: s.Gain, Sequence: index}, &fails, log)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Frame:      f,
			Attempts:   1,
			Converged:  true,
			Saturation: c.opts.Saturation(f, c.opts.SampleSize),
		}, nil
	}

	req := device.Request{Gain: s.Gain, Auto: true, Sequence: index}
	var res Result
	res.Auto = true
	for attempt := 1; attempt <= c.opts.AttemptLimit; attempt++ {
		f, err := c.capture(ctx, req, &fails, log)
		if err != nil {
			return Result{}, err
		}
		frac := c.opts.Saturation(f, c.opts.SampleSize)
		res.Frame, res.Attempts, res.Saturation = f, attempt, frac

		if device.InWindow(frac) {
			res.Converged = true
			log.Debug().Int("attempt", attempt).Dur("exposure", f.Exposure).Float64("saturation", frac).Msg("exposure converged")
			return res, nil
		}

		next := c.opts.Adjust(f.Exposure, frac)
		log.Debug().
			Int("attempt", attempt).
			Dur("exposure", f.Exposure).
			Float64("saturation", frac).
			Dur("next_exposure", next).
			Msg("saturation outside window")
		req.Exposure = next
	}

	log.Warn().
		Int("attempts", res.Attempts).
		Float64("saturation", res.Saturation).
		Dur("exposure", res.Frame.Exposure).
		Msg("auto exposure did not converge, keeping last frame")
	return res, nil
}

// capture issues req until a frame comes back. Empty captures increment fails;
// exceeding the fail limit exhausts the item.
func (c *Controller) capture(ctx context.Context, req device.Request, fails *int, log zerolog.Logger) (*device.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := c.camera.Capture(ctx, req)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCaptureFailed, "item %d: %v", req.Sequence, err)
		}
		if f != nil {
			return f, nil
		}
		*fails++
		log.Warn().Int("failed_captures", *fails).Msg("camera returned no frame")
		if *fails > c.opts.FailLimit {
			return nil, errors.Wrapf(errors.ErrCaptureExhausted, "item %d after %d empty captures", req.Sequence, *fails)
		}
	}
}
