package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/aegir/internal/backlog"
	"github.com/mrz1836/aegir/internal/capture"
	"github.com/mrz1836/aegir/internal/config"
	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/control"
	"github.com/mrz1836/aegir/internal/device"
	"github.com/mrz1836/aegir/internal/domain"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/exposure"
	"github.com/mrz1836/aegir/internal/flock"
	"github.com/mrz1836/aegir/internal/logging"
	"github.com/mrz1836/aegir/internal/plan"
	"github.com/mrz1836/aegir/internal/routine"
	"github.com/mrz1836/aegir/internal/session"
	"github.com/mrz1836/aegir/internal/signal"
	"github.com/mrz1836/aegir/internal/sweep"
	"github.com/mrz1836/aegir/internal/tui"
)

// runOptions holds the flags of the run command.
type runOptions struct {
	routine   string
	session   string
	autostart bool
	simulate  bool
}

// runResult is the JSON form of a finished run.
type runResult struct {
	Status     string `json:"status"`
	Routine    string `json:"routine"`
	Session    string `json:"session"`
	RunID      string `json:"run_id"`
	Path       string `json:"path"`
	StopReason string `json:"stop_reason"`
	Dispatched int    `json:"dispatched"`
	Captured   int    `json:"captured"`
	Failed     int    `json:"failed"`
	Images     int    `json:"images"`
	Elapsed    string `json:"elapsed"`
	CaptureErr string `json:"capture_error,omitempty"`
}

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command) {
	root.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an imaging routine",
		Long: `Run a routine until its number or time limit is reached, its capture
sequence is exhausted, or it is stopped.

The routine is looked up by path, or by name among the files in the
routines directory. Images and sensor readings are written to a session
directory named by --session, or by the start time when omitted. Running
into an existing session continues its image numbering.

While the routine runs, 'aegir status' and 'aegir stop' talk to it over
named pipes. The first Ctrl+C stops it gracefully; a second one aborts.

Examples:
  aegir run --routine reef-survey
  aegir run -r ./routines/night.yaml --session "night dive 2"
  aegir run -r reef-survey --simulate --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runRoutine(cmd.Context(), cmd, os.Stdout, opts)
			return silenceJSONError(cmd, err)
		},
	}

	cmd.Flags().StringVarP(&opts.routine, "routine", "r", "", "routine name or plan file path")
	cmd.Flags().StringVarP(&opts.session, "session", "s", "", "session name (default: start timestamp)")
	cmd.Flags().BoolVar(&opts.autostart, "autostart", false, "mark the run as started at boot")
	cmd.Flags().BoolVar(&opts.simulate, "simulate", false, "use the simulated camera and sensor")
	_ = cmd.MarkFlagRequired("routine")

	return cmd
}

// runRoutine executes the run command.
func runRoutine(ctx context.Context, cmd *cobra.Command, w io.Writer, opts runOptions) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	format := outputFormatOf(cmd)
	tui.CheckNoColor()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return handleCommandError(format, w, err)
	}
	return handleCommandError(format, w, executeRun(ctx, w, cfg, opts, format, GetLogger()))
}

// executeRun wires the pipeline for one routine and runs it to completion.
func executeRun(ctx context.Context, w io.Writer, cfg *config.Config, opts runOptions, format string, logger zerolog.Logger) error {
	if opts.autostart {
		logger.Info().Msg("autostart mode")
	}

	p, path, err := plan.Resolve(cfg.Data.RoutinesDir, opts.routine, logger)
	if err != nil {
		return planInputError(err)
	}
	seq, err := p.Sequence()
	if err != nil {
		return planInputError(err)
	}

	devs, err := openDevices(cfg.Device, opts.simulate)
	if err != nil {
		return err
	}

	lock, err := acquireRunLock(cfg.Control.InPipe)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	store, err := session.Open(session.Options{
		Dir:     cfg.Data.SessionsDir,
		Name:    opts.session,
		Routine: p.Name,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close session")
		}
	}()

	sessionLogger, closer, err := SessionLogger(store.LogPath(), cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ref := &routineRef{}
	logger = logging.Attach(sessionLogger.With().
		Str("session", store.Name()).
		Str("run_id", store.RunID()).
		Logger(), ref)

	logPlanSummary(logger, p, seq, path)

	shots := backlog.New[backlog.Item](seq.Len() + 1)
	artifacts := backlog.New[*capture.Artifact](cfg.Pipeline.PersistenceCapacity)

	stage := capture.NewStage(capture.Config{
		Shots:     shots,
		Artifacts: artifacts,
		Acquirer: exposure.NewController(devs.Camera, exposure.Options{
			SampleSize: cfg.Pipeline.SaturationSampleSize,
		}, logger),
		Sensor:         devs.Sensor,
		RetryDelay:     cfg.Pipeline.SensorRetryDelay,
		ReportCapacity: seq.Len() + 1,
		Logger:         logger,
	})

	r, err := routine.New(routine.Config{
		Plan:          p,
		Sequence:      seq,
		Shots:         shots,
		Stage:         stage,
		Logger:        logger,
		MaxTickErrors: cfg.Pipeline.MaxTickErrors,
	})
	if err != nil {
		return err
	}
	ref.r.Store(r)

	ch, err := control.OpenFIFO(cfg.Control.InPipe, cfg.Control.OutPipe)
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	srv := control.NewServer(control.ServerConfig{
		Channel: ch,
		Routine: r,
		Status: func() domain.RoutineStatus {
			return routineStatus(r, stage, store, artifacts)
		},
		Telemetry: func(ctx context.Context) domain.Telemetry {
			return readTelemetry(ctx, r, devs, logger)
		},
		Done:              r.Done(),
		StatusInterval:    cfg.Control.StatusInterval,
		HeartbeatInterval: cfg.Control.HeartbeatInterval,
		PollInterval:      cfg.Control.PollInterval,
		Logger:            logger,
	})

	handler := signal.NewHandler(ctx, func() { r.RequestStop(constants.StopReasonSignal) })
	defer handler.Stop()

	g, gctx := errgroup.WithContext(handler.Context())
	g.Go(func() error {
		defer artifacts.Close()
		return r.Run(gctx)
	})
	g.Go(func() error {
		return store.Run(gctx, artifacts)
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		if stderrors.Is(err, context.Canceled) && ctx.Err() == nil {
			return errors.Wrap(err, "routine aborted")
		}
		return err
	}

	captureErr := stageError(r, stage)

	details := store.Details()
	logger.Info().
		Str("stop_reason", r.StopReason()).
		Int("dispatched", r.Dispatched()).
		Int("captured", stage.Captured()).
		Int("failed", stage.Failed()).
		Int("images", details.ImageCount).
		Dur("elapsed", r.Elapsed()).
		Msg("routine finished")

	return reportRun(w, format, runResult{
		Status:     "complete",
		Routine:    p.Name,
		Session:    store.Name(),
		RunID:      store.RunID(),
		Path:       store.Dir(),
		StopReason: r.StopReason(),
		Dispatched: r.Dispatched(),
		Captured:   stage.Captured(),
		Failed:     stage.Failed(),
		Images:     details.ImageCount,
		Elapsed:    tui.FormatElapsed(r.Elapsed()),
		CaptureErr: captureErr,
	})
}

// stageError waits for a started capture stage to exit and returns the
// message of the error that ended it early, if any.
func stageError(r *routine.Routine, stage *capture.Stage) string {
	if r.State() == constants.RoutineNotStarted {
		return ""
	}
	<-stage.Done()
	if err := stage.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// routineRef lets the snapshot hook be installed before the routine exists.
type routineRef struct {
	r atomic.Pointer[routine.Routine]
}

// Snapshot implements logging.SnapshotSource.
func (ref *routineRef) Snapshot() domain.Snapshot {
	if r := ref.r.Load(); r != nil {
		return r.Snapshot()
	}
	return domain.Snapshot{State: constants.RoutineNotStarted}
}

// openDevices opens the configured driver. --simulate overrides it.
func openDevices(cfg config.DeviceConfig, simulate bool) (device.Devices, error) {
	driver := cfg.Driver
	if simulate {
		driver = constants.DriverSimulator
	}

	opts := device.DefaultSimulatorOptions()
	opts.Brightness = cfg.SceneBrightness
	opts.FluidDensity = cfg.FluidDensity
	opts.FailEvery = cfg.FailEvery
	opts.Realtime = cfg.Realtime

	return device.Open(driver, opts)
}

// acquireRunLock takes the lock next to the control pipes so only one
// routine per host owns them.
func acquireRunLock(inPipe string) (*flock.Lock, error) {
	dir := filepath.Dir(inPipe)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "failed to create run directory %s", dir)
	}
	lock, err := flock.Acquire(filepath.Join(dir, constants.RunLockFileName))
	if err != nil {
		if stderrors.Is(err, errors.ErrSessionLocked) {
			return nil, errors.Wrapf(errors.ErrRoutineAlreadyRunning, "control pipes in %s are in use", dir)
		}
		return nil, err
	}
	return lock, nil
}

// logPlanSummary logs the plan the way `aegir plan show` prints it.
func logPlanSummary(logger zerolog.Logger, p plan.Plan, seq sweep.Sequence, path string) {
	ev := logger.Info().Str("file", path)
	for _, line := range p.Summary(seq) {
		ev = ev.Str(summaryKey(line.Label), line.Value)
	}
	ev.Msg("routine loaded")
}

func summaryKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}

// routineStatus assembles the status line published on the control pipe.
func routineStatus(r *routine.Routine, stage *capture.Stage, store *session.Store, artifacts *backlog.Queue[*capture.Artifact]) domain.RoutineStatus {
	return domain.RoutineStatus{
		Routine:      r.Name(),
		Session:      store.Name(),
		Elapsed:      r.Elapsed(),
		Dispatched:   r.Dispatched(),
		Captured:     stage.Captured(),
		Planned:      r.Planned(),
		BacklogDepth: artifacts.Len(),
		Stopping:     r.StopRequested() && !routine.IsTerminal(r.State()),
	}
}

// readTelemetry gathers one heartbeat. Failed readings are logged and left at zero.
func readTelemetry(ctx context.Context, r *routine.Routine, devs device.Devices, logger zerolog.Logger) domain.Telemetry {
	t := domain.Telemetry{Elapsed: r.Elapsed()}

	read := func(name string, fn func(context.Context) (float64, error)) float64 {
		v, err := fn(ctx)
		if err != nil {
			logger.Debug().Err(err).Str("reading", name).Msg("telemetry reading failed")
			return 0
		}
		return v
	}

	if devs.Telemetry != nil {
		t.DeviceTemperature = read("device_temperature", devs.Telemetry.DeviceTemperature)
	}
	if devs.Sensor != nil {
		t.Depth = read("depth", devs.Sensor.Depth)
		t.WaterTemperature = read("water_temperature", devs.Sensor.Temperature)
	}
	return t
}

// reportRun prints the outcome of a finished run.
func reportRun(w io.Writer, format string, res runResult) error {
	out := tui.NewOutput(w, format)
	if format == OutputJSON {
		return out.JSON(res)
	}

	out.Success(fmt.Sprintf("Routine %q finished: %s", res.Routine, res.StopReason))
	out.Info(fmt.Sprintf("%d images in session %q (%s)", res.Images, res.Session, res.Path))
	if res.CaptureErr != "" {
		out.Warning(fmt.Sprintf("Capture stage ended early: %s", res.CaptureErr))
	}
	if res.Failed > 0 {
		out.Warning(fmt.Sprintf("%d of %d captures failed", res.Failed, res.Dispatched))
	}
	out.Info(fmt.Sprintf("Elapsed %s", res.Elapsed))
	return nil
}
