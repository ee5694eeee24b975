package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	aegirerrors "github.com/mrz1836/aegir/internal/errors"
)

func TestValidate_NilConfig(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, Validate(nil), aegirerrors.ErrConfigNil)
}

func TestValidate_DefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))

	cfg.Resolve("/home/pi/.aegir")
	require.NoError(t, Validate(cfg))
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"same data dirs", func(c *Config) { c.Data.RoutinesDir, c.Data.SessionsDir = "/d", "/d" }, aegirerrors.ErrConfigInvalidData},
		{"same pipes", func(c *Config) { c.Control.InPipe, c.Control.OutPipe = "/p", "/p" }, aegirerrors.ErrConfigInvalidControl},
		{"zero status interval", func(c *Config) { c.Control.StatusInterval = 0 }, aegirerrors.ErrConfigInvalidControl},
		{"negative heartbeat", func(c *Config) { c.Control.HeartbeatInterval = -time.Second }, aegirerrors.ErrConfigInvalidControl},
		{"poll slower than status", func(c *Config) { c.Control.PollInterval = 2 * time.Second }, aegirerrors.ErrConfigInvalidControl},
		{"capacity too large", func(c *Config) { c.Pipeline.PersistenceCapacity = 4096 }, aegirerrors.ErrConfigInvalidPipeline},
		{"zero sample size", func(c *Config) { c.Pipeline.SaturationSampleSize = 0 }, aegirerrors.ErrConfigInvalidPipeline},
		{"negative retry delay", func(c *Config) { c.Pipeline.SensorRetryDelay = -time.Millisecond }, aegirerrors.ErrConfigInvalidPipeline},
		{"zero tick errors", func(c *Config) { c.Pipeline.MaxTickErrors = 0 }, aegirerrors.ErrConfigInvalidPipeline},
		{"unknown driver", func(c *Config) { c.Device.Driver = "v4l2" }, aegirerrors.ErrConfigInvalidDevice},
		{"implausible density", func(c *Config) { c.Device.FluidDensity = 1.0 }, aegirerrors.ErrConfigInvalidDevice},
		{"dark scene", func(c *Config) { c.Device.SceneBrightness = 0 }, aegirerrors.ErrConfigInvalidDevice},
		{"negative fail every", func(c *Config) { c.Device.FailEvery = -1 }, aegirerrors.ErrConfigInvalidDevice},
		{"zero log size", func(c *Config) { c.Log.MaxSizeMB = 0 }, aegirerrors.ErrConfigInvalidLog},
		{"negative backups", func(c *Config) { c.Log.MaxBackups = -1 }, aegirerrors.ErrConfigInvalidLog},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tc.mutate(cfg)
			require.ErrorIs(t, Validate(cfg), tc.wantErr)
		})
	}
}

func TestValidate_BoundaryValues(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Control.PollInterval = cfg.Control.StatusInterval
	cfg.Pipeline.PersistenceCapacity = 1
	cfg.Pipeline.SensorRetryDelay = 0
	cfg.Device.FluidDensity = 997
	cfg.Log.MaxBackups = 0
	require.NoError(t, Validate(cfg))
}
