// Package constants provides centralized constant values used throughout aegir.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Plan limits. Plans asking for more are clamped, not rejected.
const (
	// MaxNumberLimit is the largest number of captures a single routine may dispatch.
	MaxNumberLimit = 10000

	// MaxTimeLimit is the longest a single routine may run.
	MaxTimeLimit = 255 * time.Hour

	// DefaultMinTickPeriod is the minimum wall-clock length of one scheduler tick.
	DefaultMinTickPeriod = 10 * time.Millisecond
)

// Auto-exposure tuning.
const (
	// SaturationMin is the exclusive lower bound of the accepted saturation window.
	SaturationMin = 0.005

	// SaturationMax is the exclusive upper bound of the accepted saturation window.
	SaturationMax = 0.02

	// SaturationTarget is the centre of the saturation window that
	// exposure corrections aim for.
	SaturationTarget = (SaturationMin + SaturationMax) / 2

	// DefaultSaturationSampleSize is the number of pixels sampled when
	// estimating the saturation fraction of a frame.
	DefaultSaturationSampleSize = 250

	// AutoExposureAttemptLimit caps the number of exposure corrections per item.
	AutoExposureAttemptLimit = 10

	// CaptureFailLimit is the number of null captures tolerated per item.
	// The next null capture exhausts the item.
	CaptureFailLimit = 5

	// MinExposure and MaxExposure bound any exposure the controller will request.
	MinExposure = 10 * time.Microsecond
	MaxExposure = 60 * time.Second
)

// Pipeline sizing and timing.
const (
	// DefaultPersistenceCapacity is the bound on artifacts waiting to be stored.
	DefaultPersistenceCapacity = 8

	// DefaultSensorRetryDelay is the pause before the single retry of a failed sensor read.
	DefaultSensorRetryDelay = 100 * time.Millisecond

	// MaxConsecutiveTickErrors is the number of failing ticks in a row after
	// which the scheduler gives up.
	MaxConsecutiveTickErrors = 5
)

// Control plane timing and protocol.
const (
	// DefaultStatusInterval is how often a status line is emitted.
	DefaultStatusInterval = time.Second

	// DefaultHeartbeatInterval is how often device telemetry is logged.
	DefaultHeartbeatInterval = 300 * time.Second

	// DefaultControlPollInterval is how often the inbound pipe is polled.
	DefaultControlPollInterval = 100 * time.Millisecond

	// StopCommand is the literal inbound message that requests a stop.
	StopCommand = "STOP"

	// StoppingMarker is sent on the outbound channel once a stop is in effect.
	StoppingMarker = "STOPPING"

	// StopNoticeRepeats is how many times the STOPPING notice is written after
	// a stop request, spaced by StopNoticeSpacing, so a polling reader sees it.
	StopNoticeRepeats = 10

	// StopNoticeSpacing separates repeated STOPPING notices.
	StopNoticeSpacing = 200 * time.Millisecond

	// StatusFieldSeparator joins the fields of one status line.
	StatusFieldSeparator = " | "
)

// Physical constants used by the depth sensor model.
const (
	// FreshWaterDensity in kg/m^3.
	FreshWaterDensity = 997.0

	// SaltWaterDensity in kg/m^3.
	SaltWaterDensity = 1029.0

	// StandardGravity in m/s^2.
	StandardGravity = 9.80665

	// SurfacePressureMbar is the assumed atmospheric pressure at the surface.
	SurfacePressureMbar = 1013.25
)

// Stop reasons recorded on a routine.
const (
	StopReasonRequested   = "stop requested"
	StopReasonNumberLimit = "number limit reached"
	StopReasonTimeLimit   = "time limit reached"
	StopReasonSequenceEnd = "capture sequence dispatched"
	StopReasonSignal      = "interrupt signal"
)

// Session formatting.
const (
	// SessionTimeFormat names sessions that were started without an explicit name.
	SessionTimeFormat = "2006_01_02__15_04_05"

	// ImageNumberWidth is the zero-padded width of image numbers in file names.
	ImageNumberWidth = 3
)

// Log file rotation defaults for ~/.aegir/logs/aegir.log and per-session output.log.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 5
	LogMaxAgeDays = 30
	LogCompress   = true
)

// Devices.
const (
	// DriverSimulator selects the built-in camera and sensor simulator.
	DriverSimulator = "simulator"

	// DefaultSceneBrightness is the simulator light level.
	DefaultSceneBrightness = 10.0
)
