package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/aegir/internal/config"
	"github.com/mrz1836/aegir/internal/constants"
)

func TestInitLoggerWithWriter_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		want    zerolog.Level
	}{
		{"default is info", false, false, zerolog.InfoLevel},
		{"verbose is debug", true, false, zerolog.DebugLevel},
		{"quiet is warn", false, true, zerolog.WarnLevel},
		{"verbose wins", true, true, zerolog.DebugLevel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			logger := InitLoggerWithWriter(tc.verbose, tc.quiet, &buf)
			assert.Equal(t, tc.want, logger.GetLevel())
		})
	}
}

func TestInitLoggerWithWriter_FieldNames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, false, &buf)
	logger.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"event":"hello"`)
	assert.Contains(t, out, `"ts":`)
}

func TestInitLogger_WritesLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig().Log
	cfg.Dir = dir

	logger := InitLogger(false, false, cfg)
	t.Cleanup(CloseLogFile)
	logger.Info().Msg("to the file")
	CloseLogFile()

	data, err := os.ReadFile(filepath.Join(dir, constants.CLILogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to the file")
}

func TestSessionLogger(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dive", constants.SessionLogFileName)
	logger, closer, err := SessionLogger(path, config.DefaultConfig().Log)
	require.NoError(t, err)

	logger.Warn().Str("item", "3").Msg("capture retried")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "capture retried")
}

func TestLogFilePath(t *testing.T) {
	t.Parallel()

	cfg := config.LogConfig{Dir: "/var/log/aegir"}
	assert.Equal(t, "/var/log/aegir/aegir.log", LogFilePath(cfg))
}

func TestSelectLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zerolog.DebugLevel, selectLevel(true, false))
	assert.Equal(t, zerolog.WarnLevel, selectLevel(false, true))
	assert.Equal(t, zerolog.InfoLevel, selectLevel(false, false))
}
