package config

import (
	"github.com/mrz1836/aegir/internal/constants"
)

// DefaultConfig returns a new Config with default values. Paths are left
// empty; Resolve fills them from the aegir home directory.
func DefaultConfig() *Config {
	return &Config{
		Control: ControlConfig{
			StatusInterval:    constants.DefaultStatusInterval,
			HeartbeatInterval: constants.DefaultHeartbeatInterval,
			PollInterval:      constants.DefaultControlPollInterval,
		},
		Pipeline: PipelineConfig{
			PersistenceCapacity:  constants.DefaultPersistenceCapacity,
			SaturationSampleSize: constants.DefaultSaturationSampleSize,
			SensorRetryDelay:     constants.DefaultSensorRetryDelay,
			MaxTickErrors:        constants.MaxConsecutiveTickErrors,
		},
		Device: DeviceConfig{
			Driver:          constants.DriverSimulator,
			FluidDensity:    constants.SaltWaterDensity,
			SceneBrightness: constants.DefaultSceneBrightness,
			Realtime:        true,
		},
		Log: LogConfig{
			MaxSizeMB:  constants.LogMaxSizeMB,
			MaxBackups: constants.LogMaxBackups,
			MaxAgeDays: constants.LogMaxAgeDays,
			Compress:   constants.LogCompress,
		},
	}
}
