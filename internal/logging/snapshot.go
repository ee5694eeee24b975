// Package logging provides zerolog hooks shared by the routine components.
package logging

import (
	"github.com/rs/zerolog"

	"github.com/mrz1836/aegir/internal/domain"
)

// SnapshotSource supplies the current routine state.
type SnapshotSource interface {
	Snapshot() domain.Snapshot
}

// SnapshotHook adds the routine's run state to warning and error events so
// a failure can be placed in the run from the log line alone.
type SnapshotHook struct {
	source   SnapshotSource
	minLevel zerolog.Level
}

// NewSnapshotHook returns a hook that annotates events at warn level and above.
func NewSnapshotHook(source SnapshotSource) *SnapshotHook {
	return &SnapshotHook{source: source, minLevel: zerolog.WarnLevel}
}

// Run implements zerolog.Hook.
func (h *SnapshotHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	if h.source == nil || level < h.minLevel || level == zerolog.NoLevel {
		return
	}
	s := h.source.Snapshot()
	e.Dict("routine", zerolog.Dict().
		Str("state", s.State.String()).
		Dur("elapsed", s.Elapsed).
		Int("dispatched", s.Dispatched).
		Bool("stop_requested", s.StopRequested).
		Bool("complete", s.Complete).
		Bool("capturing", s.Capturing))
}

// Attach returns logger with the snapshot hook installed.
func Attach(logger zerolog.Logger, source SnapshotSource) zerolog.Logger {
	return logger.Hook(NewSnapshotHook(source))
}
