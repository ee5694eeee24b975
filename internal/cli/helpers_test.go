package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mrz1836/aegir/internal/config"
)

// testConfig returns a resolved configuration rooted in a temp directory,
// with the simulator running as fast as it can.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Resolve(t.TempDir())
	cfg.Device.Realtime = false
	cfg.Control.StatusInterval = 20 * time.Millisecond
	cfg.Control.PollInterval = 5 * time.Millisecond
	cfg.Pipeline.SensorRetryDelay = time.Millisecond
	require.NoError(t, config.Validate(cfg))
	return cfg
}

// writeRoutine writes a plan file into the routines directory of cfg.
func writeRoutine(t *testing.T, cfg *config.Config, file, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(cfg.Data.RoutinesDir, 0o750))
	path := filepath.Join(cfg.Data.RoutinesDir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const quickRoutine = `
name: Quick Check
number_limit: 2
interval_mode: capture_end
integration_time: [0, 2]
integration_time_unit: ms
gain: [1, 2]
`
