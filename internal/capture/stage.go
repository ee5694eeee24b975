package capture

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/aegir/internal/backlog"
	"github.com/mrz1836/aegir/internal/clock"
	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/device"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/exposure"
	"github.com/mrz1836/aegir/internal/sweep"
)

// Acquirer captures one settings item.
type Acquirer interface {
	Acquire(ctx context.Context, s sweep.Setting, index int) (exposure.Result, error)
}

// Config wires a Stage.
type Config struct {
	Shots     *backlog.Queue[backlog.Item]
	Artifacts *backlog.Queue[*Artifact]
	Acquirer  Acquirer
	// Sensor may be nil, in which case readings are zero.
	Sensor     device.Sensor
	Clock      clock.Clock
	RetryDelay time.Duration

	// ReportCapacity sizes the report channel. Reports that do not fit are dropped.
	ReportCapacity int

	Logger zerolog.Logger
}

// Stage consumes shots until EndOfSequence. It owns the capturing flag:
// true from Start until the worker exits for any reason.
type Stage struct {
	cfg     Config
	logger  zerolog.Logger
	reports chan Report
	done    chan struct{}

	capturing atomic.Bool
	captured  atomic.Int64
	failed    atomic.Int64

	startOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// NewStage returns an idle stage.
func NewStage(cfg Config) *Stage {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = constants.DefaultSensorRetryDelay
	}
	return &Stage{
		cfg:     cfg,
		logger:  cfg.Logger.With().Str("component", "capture").Logger(),
		reports: make(chan Report, max(cfg.ReportCapacity, 1)),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. Capturing reports true before Start returns.
// Calling Start again has no effect.
func (s *Stage) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.capturing.Store(true)
		go s.run(ctx)
	})
}

// Capturing reports whether the worker is alive.
func (s *Stage) Capturing() bool {
	return s.capturing.Load()
}

// Done is closed when the worker exits.
func (s *Stage) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the worker early, if any. Valid after Done.
func (s *Stage) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Reports delivers one Report per processed shot.
func (s *Stage) Reports() <-chan Report {
	return s.reports
}

// Captured returns the number of artifacts handed to persistence.
func (s *Stage) Captured() int {
	return int(s.captured.Load())
}

// Failed returns the number of shots that produced no artifact.
func (s *Stage) Failed() int {
	return int(s.failed.Load())
}

func (s *Stage) run(ctx context.Context) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture stage panic: %v", r) //nolint:err113 // wraps a recovered value
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("capture stage ended early")
		}
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()
		s.capturing.Store(false)
		close(s.done)
	}()
	err = s.loop(ctx)
}

func (s *Stage) loop(ctx context.Context) error {
	s.logger.Info().Msg("capture stage started")
	for {
		item, err := s.cfg.Shots.Get(ctx)
		if err != nil {
			if stderrors.Is(err, errors.ErrBacklogClosed) {
				s.logger.Info().Msg("capture backlog closed")
				return nil
			}
			return err
		}

		switch v := item.(type) {
		case backlog.EndOfSequence:
			s.logger.Info().
				Str("reason", v.Reason).
				Int("captured", s.Captured()).
				Int("failed", s.Failed()).
				Msg("capture stage reached end of sequence")
			return nil
		case backlog.Shot:
			if err := s.process(ctx, v); err != nil {
				return err
			}
		}
	}
}

// process handles one shot. Capture errors are logged and reported; only a
// failure to hand the artifact to persistence ends the stage.
func (s *Stage) process(ctx context.Context, shot backlog.Shot) error {
	started := s.cfg.Clock.Now()
	log := s.logger.With().Int("item", shot.Index).Logger()
	log.Debug().Stringer("setting", shot.Setting).Msg("capturing")

	res, err := s.cfg.Acquirer.Acquire(ctx, shot.Setting, shot.Index)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.failed.Add(1)
		log.Error().Err(err).Msg("capture failed, skipping item")
		s.report(Report{Index: shot.Index, StartedAt: started, CompletedAt: s.cfg.Clock.Now(), Err: err})
		return nil
	}

	a := &Artifact{
		Frame:      res.Frame,
		Index:      shot.Index,
		Setting:    shot.Setting,
		CapturedAt: s.cfg.Clock.Now(),
		Auto:       res.Auto,
		Converged:  res.Converged,
		Attempts:   res.Attempts,
		Saturation: res.Saturation,
	}
	if s.cfg.Sensor != nil {
		a.Depth = s.read(ctx, log, "depth", s.cfg.Sensor.Depth)
		a.Pressure = s.read(ctx, log, "pressure", s.cfg.Sensor.Pressure)
		a.AmbientTemperature = s.read(ctx, log, "temperature", s.cfg.Sensor.Temperature)
	}

	completed := s.cfg.Clock.Now()
	if err := s.cfg.Artifacts.Put(ctx, a); err != nil {
		return errors.Wrapf(err, "failed to queue item %d for persistence", shot.Index)
	}
	s.captured.Add(1)
	s.report(Report{Index: shot.Index, StartedAt: started, CompletedAt: completed})
	return nil
}

// read takes one sensor reading, retrying once after RetryDelay. A reading
// that fails twice is logged and replaced by zero.
func (s *Stage) read(ctx context.Context, log zerolog.Logger, name string, fn func(context.Context) (float64, error)) float64 {
	v, err := fn(ctx)
	if err == nil {
		return v
	}

	timer := time.NewTimer(s.cfg.RetryDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return 0
	case <-timer.C:
	}

	v, retryErr := fn(ctx)
	if retryErr == nil {
		return v
	}
	log.Warn().
		Err(errors.Wrapf(errors.ErrSensorUnavailable, "%s: %v", name, retryErr)).
		Str("reading", name).
		Msg("sensor read failed twice, recording 0")
	return 0
}

func (s *Stage) report(r Report) {
	select {
	case s.reports <- r:
	default:
		s.logger.Debug().Int("item", r.Index).Msg("report channel full, dropping report")
	}
}
