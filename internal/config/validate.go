package config

import (
	"slices"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/errors"
)

const maxPersistenceCapacity = 1024

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - routines and sessions directories must differ when both are set
//   - control pipes must differ when both are set
//   - control intervals must be positive, and polling no slower than status
//   - persistence capacity must be between 1 and 1024
//   - the device driver must be known and the fluid density plausible
//   - log sizes must be positive and retention counts non-negative
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateDataConfig(&cfg.Data); err != nil {
		return err
	}
	if err := validateControlConfig(&cfg.Control); err != nil {
		return err
	}
	if err := validatePipelineConfig(&cfg.Pipeline); err != nil {
		return err
	}
	if err := validateDeviceConfig(&cfg.Device); err != nil {
		return err
	}
	return validateLogConfig(&cfg.Log)
}

func validateDataConfig(cfg *DataConfig) error {
	if cfg.RoutinesDir != "" && cfg.RoutinesDir == cfg.SessionsDir {
		return errors.Wrapf(errors.ErrConfigInvalidData,
			"data.routines_dir and data.sessions_dir must differ, both are %q", cfg.RoutinesDir)
	}
	return nil
}

func validateControlConfig(cfg *ControlConfig) error {
	if cfg.InPipe != "" && cfg.InPipe == cfg.OutPipe {
		return errors.Wrapf(errors.ErrConfigInvalidControl,
			"control.in_pipe and control.out_pipe must differ, both are %q", cfg.InPipe)
	}
	if cfg.StatusInterval <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidControl,
			"control.status_interval must be positive, got %s", cfg.StatusInterval)
	}
	if cfg.HeartbeatInterval <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidControl,
			"control.heartbeat_interval must be positive, got %s", cfg.HeartbeatInterval)
	}
	if cfg.PollInterval <= 0 || cfg.PollInterval > cfg.StatusInterval {
		return errors.Wrapf(errors.ErrConfigInvalidControl,
			"control.poll_interval must be between 0 and %s, got %s", cfg.StatusInterval, cfg.PollInterval)
	}
	return nil
}

func validatePipelineConfig(cfg *PipelineConfig) error {
	if cfg.PersistenceCapacity < 1 || cfg.PersistenceCapacity > maxPersistenceCapacity {
		return errors.Wrapf(errors.ErrConfigInvalidPipeline,
			"pipeline.persistence_capacity must be between 1 and %d, got %d", maxPersistenceCapacity, cfg.PersistenceCapacity)
	}
	if cfg.SaturationSampleSize < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidPipeline,
			"pipeline.saturation_sample_size must be at least 1, got %d", cfg.SaturationSampleSize)
	}
	if cfg.SensorRetryDelay < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidPipeline,
			"pipeline.sensor_retry_delay cannot be negative, got %s", cfg.SensorRetryDelay)
	}
	if cfg.MaxTickErrors < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidPipeline,
			"pipeline.max_tick_errors must be at least 1, got %d", cfg.MaxTickErrors)
	}
	return nil
}

// SupportedDrivers lists the device drivers aegir can open.
func SupportedDrivers() []string {
	return []string{constants.DriverSimulator}
}

func validateDeviceConfig(cfg *DeviceConfig) error {
	if !slices.Contains(SupportedDrivers(), cfg.Driver) {
		return errors.Wrapf(errors.ErrConfigInvalidDevice,
			"device.driver must be one of %v, got %q", SupportedDrivers(), cfg.Driver)
	}
	if cfg.FluidDensity < 900 || cfg.FluidDensity > 1100 {
		return errors.Wrapf(errors.ErrConfigInvalidDevice,
			"device.fluid_density must be between 900 and 1100 kg/m^3, got %g", cfg.FluidDensity)
	}
	if cfg.SceneBrightness <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidDevice,
			"device.scene_brightness must be positive, got %g", cfg.SceneBrightness)
	}
	if cfg.FailEvery < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidDevice,
			"device.fail_every cannot be negative, got %d", cfg.FailEvery)
	}
	return nil
}

func validateLogConfig(cfg *LogConfig) error {
	if cfg.MaxSizeMB < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidLog,
			"log.max_size_mb must be at least 1, got %d", cfg.MaxSizeMB)
	}
	if cfg.MaxBackups < 0 || cfg.MaxAgeDays < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidLog,
			"log.max_backups and log.max_age_days cannot be negative, got %d and %d", cfg.MaxBackups, cfg.MaxAgeDays)
	}
	return nil
}
