// Package routine implements the acquisition scheduler: a tick-driven state
// machine that dispatches shots to the capture stage on time and shuts the
// pipeline down in order once a stop is in effect.
//
// Import rules:
//   - CAN import: internal/backlog, internal/capture, internal/clock,
//     internal/constants, internal/domain, internal/errors, internal/plan,
//     internal/sweep, std lib
//   - MUST NOT import: internal/cli, internal/control, internal/session
package routine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/aegir/internal/backlog"
	"github.com/mrz1836/aegir/internal/capture"
	"github.com/mrz1836/aegir/internal/clock"
	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/domain"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/plan"
	"github.com/mrz1836/aegir/internal/sweep"
)

// Stage is the capture worker as seen by the scheduler.
type Stage interface {
	Start(ctx context.Context)
	Capturing() bool
	Reports() <-chan capture.Report
}

// Config wires a Routine.
type Config struct {
	Plan     plan.Plan
	Sequence sweep.Sequence
	Shots    *backlog.Queue[backlog.Item]
	Stage    Stage
	Clock    clock.Clock
	Logger   zerolog.Logger

	// MaxTickErrors is the number of consecutive failing ticks Run tolerates.
	MaxTickErrors int
}

// Routine runs one plan. Scheduler bookkeeping is owned by the goroutine
// calling Tick or Run; the exported accessors are safe from any goroutine.
type Routine struct {
	cfg    Config
	logger zerolog.Logger

	// scheduler-owned
	started      bool
	startTime    time.Time
	nextDueAt    time.Time
	awaiting     bool
	pendingIndex int
	tickErrors   int

	dispatched    atomic.Int64
	elapsed       atomic.Int64
	stopRequested atomic.Bool
	complete      atomic.Bool

	stateMu    sync.RWMutex
	state      constants.RoutineState
	stopReason string

	sentinelQueued bool
	done           chan struct{}
}

// New validates the wiring and returns a routine in NotStarted.
func New(cfg Config) (*Routine, error) {
	if cfg.Shots == nil || cfg.Stage == nil {
		return nil, errors.Wrap(errors.ErrInvalidPlan, "routine needs a capture backlog and stage")
	}
	if cfg.Sequence.Len() == 0 {
		return nil, errors.Wrap(errors.ErrInvalidPlan, "empty capture sequence")
	}
	if cfg.Shots.Cap() < cfg.Sequence.Len()+1 {
		return nil, errors.Wrapf(errors.ErrInvalidPlan, "capture backlog holds %d, sequence needs %d", cfg.Shots.Cap(), cfg.Sequence.Len()+1)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.MaxTickErrors <= 0 {
		cfg.MaxTickErrors = constants.MaxConsecutiveTickErrors
	}
	if cfg.Plan.MinTickPeriod <= 0 {
		cfg.Plan.MinTickPeriod = constants.DefaultMinTickPeriod
	}
	return &Routine{
		cfg:          cfg,
		logger:       cfg.Logger.With().Str("component", "scheduler").Str("routine", cfg.Plan.Name).Logger(),
		state:        constants.RoutineNotStarted,
		pendingIndex: -1,
		done:         make(chan struct{}),
	}, nil
}

// Name returns the plan name.
func (r *Routine) Name() string {
	return r.cfg.Plan.Name
}

// Planned returns the length of the capture sequence.
func (r *Routine) Planned() int {
	return r.cfg.Sequence.Len()
}

// Dispatched returns the number of shots pushed to the capture backlog.
func (r *Routine) Dispatched() int {
	return int(r.dispatched.Load())
}

// Elapsed returns the run time as of the last tick.
func (r *Routine) Elapsed() time.Duration {
	return time.Duration(r.elapsed.Load())
}

// State returns the lifecycle state.
func (r *Routine) State() constants.RoutineState {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.state
}

// StopReason returns the first recorded reason for stopping, or "".
func (r *Routine) StopReason() string {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.stopReason
}

// Complete reports whether the routine has finished.
func (r *Routine) Complete() bool {
	return r.complete.Load()
}

// Done is closed when the routine completes.
func (r *Routine) Done() <-chan struct{} {
	return r.done
}

// StopRequested reports whether a stop is in effect.
func (r *Routine) StopRequested() bool {
	return r.stopRequested.Load()
}

// RequestStop asks the routine to stop dispatching and drain. It is safe to
// call from any goroutine and only the first call has an effect.
func (r *Routine) RequestStop(reason string) {
	if !r.stopRequested.CompareAndSwap(false, true) {
		return
	}
	r.stateMu.Lock()
	if r.stopReason == "" {
		r.stopReason = reason
	}
	r.stateMu.Unlock()
	r.logger.Info().Str("reason", reason).Int("dispatched", r.Dispatched()).Msg("stop requested")
}

// Snapshot returns the current run state.
func (r *Routine) Snapshot() domain.Snapshot {
	r.stateMu.RLock()
	state, reason := r.state, r.stopReason
	r.stateMu.RUnlock()
	return domain.Snapshot{
		State:         state,
		Elapsed:       r.Elapsed(),
		Dispatched:    r.Dispatched(),
		Planned:       r.Planned(),
		StopRequested: r.stopRequested.Load(),
		Complete:      r.complete.Load(),
		Capturing:     r.cfg.Stage.Capturing(),
		StopReason:    reason,
	}
}

// Run ticks until the routine completes. Between ticks it sleeps for the
// rest of the plan's minimum tick period. A tick that fails is logged and
// counted; reaching the consecutive failure limit returns
// ErrTooManyTickErrors. Canceling ctx aborts without draining.
func (r *Routine) Run(ctx context.Context) error {
	for {
		tickStart := time.Now()

		done, err := r.safeTick(ctx)
		if err != nil {
			r.tickErrors++
			r.logger.Error().Err(err).Int("consecutive", r.tickErrors).Msg("tick failed")
			if r.tickErrors >= r.cfg.MaxTickErrors {
				return errors.Wrapf(errors.ErrTooManyTickErrors, "%d in a row, last: %v", r.tickErrors, err)
			}
		} else {
			r.tickErrors = 0
		}
		if done {
			return nil
		}

		wait := max(r.cfg.Plan.MinTickPeriod-time.Since(tickStart), 0)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Routine) safeTick(ctx context.Context) (done bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Wrapf(errors.ErrTickError, "panic: %v", p)
		}
	}()
	return r.Tick(ctx)
}

// Tick runs one scheduler step and reports whether the routine is complete.
// Steps are taken in priority order: completed, stop in effect, number
// limit, time limit, sequence dispatched, dispatch when due, idle.
func (r *Routine) Tick(ctx context.Context) (bool, error) {
	now := r.cfg.Clock.Now()

	if r.complete.Load() {
		r.logger.Warn().Msg("tick after completion ignored")
		return true, nil
	}

	if !r.started {
		r.begin(ctx, now)
	}
	elapsed := now.Sub(r.startTime)
	r.elapsed.Store(int64(elapsed))
	r.collectReports()

	if !r.cfg.Stage.Capturing() && !r.stopRequested.Load() {
		r.RequestStop("capture stage ended")
	}

	dispatched := r.Dispatched()
	switch {
	case r.stopRequested.Load():
	case dispatched >= r.cfg.Plan.NumberLimit:
		r.RequestStop(fmt.Sprintf("%s (%d/%d)", constants.StopReasonNumberLimit, dispatched, r.cfg.Plan.NumberLimit))
	case elapsed >= r.cfg.Plan.TimeLimit:
		r.RequestStop(fmt.Sprintf("%s (%s)", constants.StopReasonTimeLimit, r.cfg.Plan.TimeLimit))
	case dispatched >= r.Planned():
		r.RequestStop(fmt.Sprintf("%s (%d/%d)", constants.StopReasonSequenceEnd, dispatched, r.Planned()))
	case !r.awaiting && !now.Before(r.nextDueAt):
		return false, r.dispatch(ctx, now)
	default:
		return false, nil
	}

	return r.drain(ctx)
}

func (r *Routine) begin(ctx context.Context, now time.Time) {
	r.started = true
	r.startTime = now
	r.nextDueAt = now.Add(r.cfg.Plan.InitialDelay)
	r.cfg.Stage.Start(ctx)
	r.transition(constants.RoutineRunning)
	r.logger.Info().
		Int("planned", r.Planned()).
		Dur("initial_delay", r.cfg.Plan.InitialDelay).
		Str("interval_mode", r.cfg.Plan.IntervalMode.String()).
		Msg("routine started")
}

// drain handles a stop in effect: the end sentinel is queued once (a failed
// push is retried on the next tick), and the routine completes as soon as the capture stage is idle.
func (r *Routine) drain(ctx context.Context) (bool, error) {
	if !r.sentinelQueued {
		if err := r.cfg.Shots.Put(ctx, backlog.EndOfSequence{Reason: r.StopReason()}); err != nil {
			return false, errors.Wrap(err, "failed to queue end of sequence")
		}
		r.sentinelQueued = true
	}

	if r.cfg.Stage.Capturing() {
		if r.State() != constants.RoutineStopping {
			r.transition(constants.RoutineStopping)
		}
		return false, nil
	}

	r.finish()
	return true, nil
}

func (r *Routine) dispatch(ctx context.Context, now time.Time) error {
	index := r.Dispatched()
	setting := r.cfg.Sequence.Settings[index]
	if err := r.cfg.Shots.Put(ctx, backlog.Shot{Index: index, Setting: setting}); err != nil {
		return errors.Wrapf(err, "failed to dispatch item %d", index)
	}
	count := r.dispatched.Add(1)

	if r.cfg.Plan.IntervalMode == constants.IntervalFromCaptureEnd {
		r.awaiting = true
		r.pendingIndex = index
	} else {
		r.nextDueAt = now.Add(r.gapAfter(int(count)))
	}

	r.logger.Debug().
		Int("item", index).
		Stringer("setting", setting).
		Int64("dispatched", count).
		Msg("shot dispatched")
	return nil
}

// collectReports consumes completion reports. Under capture_end timing the
// report for the last dispatched shot sets the next due time.
func (r *Routine) collectReports() {
	for {
		select {
		case rep := <-r.cfg.Stage.Reports():
			if r.awaiting && rep.Index == r.pendingIndex {
				r.nextDueAt = rep.CompletedAt.Add(r.gapAfter(rep.Index + 1))
				r.awaiting = false
				r.pendingIndex = -1
			}
		default:
			return
		}
	}
}

// gapAfter is the wait after the count-th shot: the repeat interval at the
// end of a sweep, the plan interval otherwise.
func (r *Routine) gapAfter(count int) time.Duration {
	if r.cfg.Sequence.EndsSweep(count) {
		return r.cfg.Plan.RepeatInterval
	}
	return r.cfg.Plan.Interval
}

func (r *Routine) finish() {
	if !r.complete.CompareAndSwap(false, true) {
		return
	}
	r.transition(constants.RoutineComplete)
	close(r.done)
	r.logger.Info().
		Str("reason", r.StopReason()).
		Int("dispatched", r.Dispatched()).
		Int("planned", r.Planned()).
		Dur("elapsed", r.Elapsed()).
		Msg("routine complete")
}

func (r *Routine) transition(to constants.RoutineState) {
	r.stateMu.Lock()
	from := r.state
	ok := IsValidTransition(from, to)
	if ok {
		r.state = to
	}
	r.stateMu.Unlock()

	// logged outside the lock: warn events read the snapshot
	if !ok {
		r.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("invalid state transition ignored")
	}
}
