// Package config provides configuration management for aegir with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. Environment variables (AEGIR_* prefix, e.g. AEGIR_CONTROL_IN_PIPE)
//  2. Project config (./.aegir/config.yaml)
//  3. Global config (~/.aegir/config.yaml, or $AEGIR_HOME/config.yaml)
//  4. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import other internal packages.
package config

import (
	"path/filepath"
	"time"

	"github.com/mrz1836/aegir/internal/constants"
)

// Config is the root configuration structure for aegir.
type Config struct {
	// Data locates routine files and session output.
	Data DataConfig `yaml:"data" mapstructure:"data"`

	// Control configures the named-pipe control plane.
	Control ControlConfig `yaml:"control" mapstructure:"control"`

	// Pipeline sizes the capture and persistence stages.
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`

	// Device selects and tunes the camera and sensor driver.
	Device DeviceConfig `yaml:"device" mapstructure:"device"`

	// Log configures the rotating log files.
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// DataConfig contains the directories aegir reads and writes.
// Empty values are resolved relative to Dir by Resolve.
type DataConfig struct {
	// Dir is the data root. Default: the aegir home directory.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// RoutinesDir holds plan files. Default: <dir>/routines
	RoutinesDir string `yaml:"routines_dir" mapstructure:"routines_dir"`

	// SessionsDir holds session output. Default: <dir>/sessions
	SessionsDir string `yaml:"sessions_dir" mapstructure:"sessions_dir"`
}

// ControlConfig contains settings for the control plane.
type ControlConfig struct {
	// InPipe receives commands. Default: <dir>/run/aegir.in
	InPipe string `yaml:"in_pipe" mapstructure:"in_pipe"`

	// OutPipe carries status lines. Default: <dir>/run/aegir.out
	OutPipe string `yaml:"out_pipe" mapstructure:"out_pipe"`

	// StatusInterval is how often a status line is written.
	// Default: 1 second
	StatusInterval time.Duration `yaml:"status_interval" mapstructure:"status_interval"`

	// HeartbeatInterval is how often device telemetry is logged.
	// Default: 5 minutes
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`

	// PollInterval is how often the inbound pipe is read.
	// Default: 100 milliseconds, must not exceed StatusInterval
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// PipelineConfig contains settings for the capture pipeline.
type PipelineConfig struct {
	// PersistenceCapacity bounds the persistence backlog. A full backlog
	// blocks the capture stage. Default: 8, Valid range: 1-1024
	PersistenceCapacity int `yaml:"persistence_capacity" mapstructure:"persistence_capacity"`

	// SaturationSampleSize is the number of pixels sampled per frame by
	// auto-exposure. Default: 250
	SaturationSampleSize int `yaml:"saturation_sample_size" mapstructure:"saturation_sample_size"`

	// SensorRetryDelay is the pause before a failed sensor read is retried.
	// Default: 100 milliseconds
	SensorRetryDelay time.Duration `yaml:"sensor_retry_delay" mapstructure:"sensor_retry_delay"`

	// MaxTickErrors is the number of consecutive scheduler failures that
	// end a routine. Default: 5
	MaxTickErrors int `yaml:"max_tick_errors" mapstructure:"max_tick_errors"`
}

// DeviceConfig contains settings for the camera and sensors.
type DeviceConfig struct {
	// Driver selects the device implementation. Default: "simulator"
	Driver string `yaml:"driver" mapstructure:"driver"`

	// FluidDensity in kg/m^3 converts pressure to depth.
	// Default: 1029 (salt water); use 997 for fresh water.
	FluidDensity float64 `yaml:"fluid_density" mapstructure:"fluid_density"`

	// SceneBrightness is the simulator light level. Default: 10
	SceneBrightness float64 `yaml:"scene_brightness" mapstructure:"scene_brightness"`

	// FailEvery makes every Nth simulated capture fail. Default: 0 (never)
	FailEvery int `yaml:"fail_every" mapstructure:"fail_every"`

	// Realtime makes simulated captures take as long as their exposure.
	// Default: true
	Realtime bool `yaml:"realtime" mapstructure:"realtime"`
}

// LogConfig contains settings for the rotating log files.
type LogConfig struct {
	// Dir holds aegir.log. Default: <home>/logs
	Dir string `yaml:"dir" mapstructure:"dir"`

	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Resolve fills empty paths from home, the aegir home directory.
func (c *Config) Resolve(home string) {
	if c.Data.Dir == "" {
		c.Data.Dir = home
	}
	if c.Data.RoutinesDir == "" {
		c.Data.RoutinesDir = filepath.Join(c.Data.Dir, constants.RoutinesDir)
	}
	if c.Data.SessionsDir == "" {
		c.Data.SessionsDir = filepath.Join(c.Data.Dir, constants.SessionsDir)
	}
	if c.Control.InPipe == "" {
		c.Control.InPipe = filepath.Join(c.Data.Dir, constants.RunDir, constants.ControlInPipeName)
	}
	if c.Control.OutPipe == "" {
		c.Control.OutPipe = filepath.Join(c.Data.Dir, constants.RunDir, constants.ControlOutPipeName)
	}
	if c.Log.Dir == "" {
		c.Log.Dir = filepath.Join(home, constants.LogsDir)
	}
}
