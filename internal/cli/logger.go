package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/aegir/internal/config"
	"github.com/mrz1836/aegir/internal/constants"
)

// logFileWriter holds the log file writer for cleanup purposes.
var logFileWriter io.WriteCloser //nolint:gochecknoglobals // Needed for cleanup

// logOutput and logLevel describe the active CLI logger so a session log
// can be teed off it.
var (
	logOutput io.Writer     //nolint:gochecknoglobals // Shared with session loggers
	logLevel  zerolog.Level //nolint:gochecknoglobals // Shared with session loggers
)

// zerologConfigOnce ensures zerolog global settings are configured exactly once.
var zerologConfigOnce sync.Once //nolint:gochecknoglobals // One-time configuration

// zerologGlobalMu protects the zerolog global logger and the shared writer state.
var zerologGlobalMu sync.Mutex //nolint:gochecknoglobals // Protects zerolog global

// configureZerologGlobals sets zerolog global field names used by every log file.
func configureZerologGlobals() {
	zerologConfigOnce.Do(func() {
		zerolog.TimestampFieldName = "ts"
		zerolog.MessageFieldName = "event"
	})
}

// InitLogger creates and configures a zerolog.Logger based on verbosity flags.
//
// Log levels are set as follows:
//   - verbose=true: Debug level (most detailed)
//   - quiet=true: Warn level (errors and warnings only)
//   - default: Info level (normal operation)
//
// Output format is determined by the terminal:
//   - TTY with colors enabled: Console writer with timestamps
//   - Non-TTY or NO_COLOR set: JSON output to stderr
//
// The logger also writes to <log.dir>/aegir.log with rotation enabled.
// If the log file cannot be created, the logger continues with console-only output.
func InitLogger(verbose, quiet bool, cfg config.LogConfig) zerolog.Logger {
	configureZerologGlobals()

	writer := selectOutput()
	if fileWriter, err := createLogFileWriter(cfg); err == nil {
		logFileWriter = fileWriter
		writer = zerolog.MultiLevelWriter(writer, fileWriter)
	}

	return installLogger(selectLevel(verbose, quiet), writer)
}

// InitConsoleLogger creates a logger without a log file, for failures that
// happen before the configuration is known.
func InitConsoleLogger(verbose, quiet bool) zerolog.Logger {
	configureZerologGlobals()
	return installLogger(selectLevel(verbose, quiet), selectOutput())
}

// InitLoggerWithWriter creates and configures a zerolog.Logger with a custom writer.
// This is primarily intended for testing purposes.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	configureZerologGlobals()
	return installLogger(selectLevel(verbose, quiet), w)
}

func installLogger(level zerolog.Level, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()

	zerologGlobalMu.Lock()
	defer zerologGlobalMu.Unlock()
	logOutput = w
	logLevel = level
	log.Logger = logger
	return logger
}

// SessionLogger returns a logger that writes to the CLI log outputs and to
// the session's own log file at path. The returned closer closes the session
// file only.
func SessionLogger(path string, cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create session log directory: %w", err)
	}
	lj := newRotatingWriter(path, cfg)

	zerologGlobalMu.Lock()
	base, level := logOutput, logLevel
	zerologGlobalMu.Unlock()

	writer := io.Writer(lj)
	if base != nil {
		writer = zerolog.MultiLevelWriter(base, lj)
	}
	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, lj, nil
}

// CloseLogFile closes the global log file writer if it was opened.
// This should be called during application shutdown for clean cleanup.
func CloseLogFile() {
	zerologGlobalMu.Lock()
	defer zerologGlobalMu.Unlock()
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}

// selectLevel determines the appropriate log level based on flags.
func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// selectOutput determines the appropriate output writer based on
// terminal capabilities and environment settings.
func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}

// createLogFileWriter creates a rotating file writer for the CLI log.
func createLogFileWriter(cfg config.LogConfig) (io.WriteCloser, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("log directory not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return newRotatingWriter(LogFilePath(cfg), cfg), nil
}

func newRotatingWriter(path string, cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

// LogFilePath returns the path to the CLI log file.
func LogFilePath(cfg config.LogConfig) string {
	return filepath.Join(cfg.Dir, constants.CLILogFileName)
}
