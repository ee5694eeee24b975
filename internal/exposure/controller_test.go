package exposure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/device"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/sweep"
	"github.com/mrz1836/aegir/internal/testutil"
)

// scriptedCamera returns nil frames for the first nils calls, then frames
// at the requested exposure, or the device's current one for auto requests.
type scriptedCamera struct {
	mu       sync.Mutex
	nils     int
	err      error
	current  time.Duration
	requests []device.Request
}

func (c *scriptedCamera) Capture(_ context.Context, req device.Request) (*device.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if c.nils > 0 {
		c.nils--
		return nil, nil
	}
	if req.Exposure > 0 {
		c.current = req.Exposure
	}
	return &device.Frame{Sequence: req.Sequence, Exposure: c.current, Gain: req.Gain}, nil
}

func fixedSaturation(v float64) SaturationFunc {
	return func(*device.Frame, int) float64 { return v }
}

func TestAcquire_ManualSingleCapture(t *testing.T) {
	t.Parallel()

	cam := &scriptedCamera{}
	c := NewController(cam, Options{Saturation: fixedSaturation(0.5)}, zerolog.Nop())

	res, err := c.Acquire(context.Background(), sweep.Setting{Exposure: 30 * time.Millisecond, Gain: 2}, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.True(t, res.Converged)
	assert.False(t, res.Auto)
	require.Len(t, cam.requests, 1, "manual mode never retunes")
	assert.Equal(t, device.Request{Exposure: 30 * time.Millisecond, Gain: 2, Sequence: 7}, cam.requests[0])
}

func TestAcquire_NullRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		nils    int
		auto    bool
		wantErr error
	}{
		{"five nulls then frame manual", 5, false, nil},
		{"five nulls then frame auto", 5, true, nil},
		{"six nulls exhaust manual", 6, false, errors.ErrCaptureExhausted},
		{"six nulls exhaust auto", 6, true, errors.ErrCaptureExhausted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cam := &scriptedCamera{nils: tc.nils, current: 10 * time.Millisecond}
			c := NewController(cam, Options{Saturation: fixedSaturation(0.01)}, zerolog.Nop())

			setting := sweep.Setting{Exposure: 20 * time.Millisecond, Gain: 1}
			if tc.auto {
				setting.Exposure = 0
			}
			res, err := c.Acquire(context.Background(), setting, 0)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, res.Frame)
				assert.Len(t, cam.requests, tc.nils)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, res.Frame)
		})
	}
}

func TestAcquire_FailCountIsPerItem(t *testing.T) {
	t.Parallel()

	cam := &scriptedCamera{nils: 4}
	c := NewController(cam, Options{Saturation: fixedSaturation(0.01)}, zerolog.Nop())

	_, err := c.Acquire(context.Background(), sweep.Setting{Exposure: time.Millisecond, Gain: 1}, 0)
	require.NoError(t, err)

	cam.nils = 5
	_, err = c.Acquire(context.Background(), sweep.Setting{Exposure: time.Millisecond, Gain: 1}, 1)
	require.NoError(t, err, "the next item starts with a fresh fail count")
}

func TestAcquire_AutoAlwaysOverSaturated(t *testing.T) {
	t.Parallel()

	cam := &scriptedCamera{current: 100 * time.Millisecond}
	c := NewController(cam, Options{Saturation: fixedSaturation(0.5)}, zerolog.Nop())

	res, err := c.Acquire(context.Background(), sweep.Setting{Gain: 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, constants.AutoExposureAttemptLimit, res.Attempts)
	assert.Len(t, cam.requests, constants.AutoExposureAttemptLimit)
	assert.False(t, res.Converged)
	assert.True(t, res.Auto)
	require.NotNil(t, res.Frame, "best-effort frame is returned")
	assert.InDelta(t, 0.5, res.Saturation, 1e-9)
}

func TestAcquire_AutoRetunesExposure(t *testing.T) {
	t.Parallel()

	cam := &scriptedCamera{current: 100 * time.Millisecond}
	// saturation is proportional to exposure: 0.5 at 100ms
	sat := func(f *device.Frame, _ int) float64 {
		return 0.5 * f.Exposure.Seconds() / 0.1
	}
	var proposals []time.Duration
	adjust := func(current time.Duration, fraction float64) time.Duration {
		next := device.NextExposure(current, fraction)
		proposals = append(proposals, next)
		return next
	}
	c := NewController(cam, Options{Saturation: sat, Adjust: adjust}, zerolog.Nop())

	res, err := c.Acquire(context.Background(), sweep.Setting{Gain: 1.5}, 0)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 3, res.Attempts)
	assert.True(t, device.InWindow(res.Saturation))

	require.Len(t, cam.requests, 3)
	first := cam.requests[0]
	assert.True(t, first.Auto)
	assert.Zero(t, first.Exposure, "first auto attempt uses the camera's current exposure")
	assert.Equal(t, proposals[0], cam.requests[1].Exposure)
	assert.Equal(t, proposals[1], cam.requests[2].Exposure)
	for _, r := range cam.requests {
		assert.InDelta(t, 1.5, r.Gain, 1e-9)
	}
}

func TestAcquire_CameraError(t *testing.T) {
	t.Parallel()

	cam := &scriptedCamera{err: testutil.ErrMockDevice}
	c := NewController(cam, Options{}, zerolog.Nop())

	_, err := c.Acquire(context.Background(), sweep.Setting{Exposure: time.Millisecond, Gain: 1}, 2)
	require.ErrorIs(t, err, errors.ErrCaptureFailed)
	assert.Contains(t, err.Error(), "item 2")
}

func TestAcquire_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cam := &scriptedCamera{}
	c := NewController(cam, Options{}, zerolog.Nop())

	_, err := c.Acquire(ctx, sweep.Setting{Gain: 1}, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cam.requests)
}

func TestAcquire_WithSimulator(t *testing.T) {
	t.Parallel()

	sim := device.NewSimulator(device.SimulatorOptions{StartExposure: 5 * time.Millisecond})
	c := NewController(sim, Options{}, zerolog.Nop())

	res, err := c.Acquire(context.Background(), sweep.Setting{Gain: 1}, 0)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Greater(t, res.Attempts, 1)
	assert.LessOrEqual(t, res.Attempts, constants.AutoExposureAttemptLimit)
}
