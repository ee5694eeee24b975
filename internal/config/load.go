package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/errors"
)

// newViperInstance creates a new Viper instance with standard aegir configuration.
// This includes environment variable prefix (AEGIR_), key replacer, and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config, resolves empty
// paths against the aegir home directory, and validates the result.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	home, err := Home()
	if err != nil {
		return nil, err
	}
	cfg.Resolve(home)

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if path, err := GlobalConfigPath(); err == nil && fileExists(path) {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrap(err, "failed to read global config file")
		}
	}

	if path := ProjectConfigPath(); fileExists(path) {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrap(err, "failed to read project config file")
		}
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("data.dir", cfg.Data.Dir).
		Str("control.in_pipe", cfg.Control.InPipe).
		Str("device.driver", cfg.Device.Driver).
		Int("pipeline.persistence_capacity", cfg.Pipeline.PersistenceCapacity).
		Msg("configuration loaded")

	return cfg, nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadFromPaths loads configuration from specific file paths for testing.
//
// projectConfigPath is the path to project-level config (higher priority).
// globalConfigPath is the path to global config (lower priority).
// Either path can be empty to skip that level.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// setDefaults configures all default values on the Viper instance.
// Every key needs a default, even an empty one, for AutomaticEnv to see it.
// IMPORTANT: Keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("data.dir", "")
	v.SetDefault("data.routines_dir", "")
	v.SetDefault("data.sessions_dir", "")

	v.SetDefault("control.in_pipe", "")
	v.SetDefault("control.out_pipe", "")
	v.SetDefault("control.status_interval", d.Control.StatusInterval.String())
	v.SetDefault("control.heartbeat_interval", d.Control.HeartbeatInterval.String())
	v.SetDefault("control.poll_interval", d.Control.PollInterval.String())

	v.SetDefault("pipeline.persistence_capacity", d.Pipeline.PersistenceCapacity)
	v.SetDefault("pipeline.saturation_sample_size", d.Pipeline.SaturationSampleSize)
	v.SetDefault("pipeline.sensor_retry_delay", d.Pipeline.SensorRetryDelay.String())
	v.SetDefault("pipeline.max_tick_errors", d.Pipeline.MaxTickErrors)

	v.SetDefault("device.driver", d.Device.Driver)
	v.SetDefault("device.fluid_density", d.Device.FluidDensity)
	v.SetDefault("device.scene_brightness", d.Device.SceneBrightness)
	v.SetDefault("device.fail_every", d.Device.FailEvery)
	v.SetDefault("device.realtime", d.Device.Realtime)

	v.SetDefault("log.dir", "")
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
