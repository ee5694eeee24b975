package tui

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mrz1836/aegir/internal/clock"
	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/domain"
	"github.com/mrz1836/aegir/internal/errors"
)

// WatchConfig holds configuration for the watch mode.
type WatchConfig struct {
	// Timeout bounds each wait for a status line; a routine that misses it
	// is shown as stale.
	Timeout time.Duration
	// RetryInterval is the pause after a failed read before the next one.
	RetryInterval time.Duration
	// Quiet suppresses the title and the key hint.
	Quiet bool
	// Clock stamps each update. Defaults to DefaultClock.
	Clock clock.Clock
}

// DefaultWatchConfig returns the default watch configuration.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Timeout:       3 * constants.DefaultStatusInterval,
		RetryInterval: constants.DefaultStatusInterval,
		Clock:         DefaultClock,
	}
}

// StatusSource yields successive routine status lines.
type StatusSource interface {
	Next(ctx context.Context) (domain.RoutineStatus, error)
}

// WatchModel is the Bubble Tea model for `aegir status --watch`.
type WatchModel struct {
	status     domain.RoutineStatus
	seen       bool
	lastUpdate time.Time
	err        error
	config     WatchConfig
	width      int
	quitting   bool
	bar        *ProgressBar
	source     StatusSource

	// baseCtx is stored for use in async Bubble Tea commands.
	baseCtx context.Context //nolint:containedctx // Required for Bubble Tea async commands
}

// StatusMsg carries the result of one status read.
type StatusMsg struct {
	Status domain.RoutineStatus
	Err    error
}

// RetryMsg signals that the next read may start.
type RetryMsg time.Time

const progressPadding = 24

// NewWatchModel creates a WatchModel reading from source.
func NewWatchModel(ctx context.Context, source StatusSource, cfg WatchConfig) *WatchModel {
	if cfg.Clock == nil {
		cfg.Clock = DefaultClock
	}
	width := 80
	return &WatchModel{
		config:  cfg,
		width:   width,
		bar:     NewProgressBar(width - progressPadding),
		source:  source,
		baseCtx: ctx,
	}
}

// Init starts the first read.
func (m *WatchModel) Init() tea.Cmd {
	return m.read()
}

// Update handles messages and returns the updated model and any commands.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := max(msg.Width-progressPadding, 10); w != m.bar.Width() {
			m.bar.SetWidth(w)
		}
		return m, nil

	case StatusMsg:
		if msg.Err != nil {
			m.err = msg.Err
			if m.contextDone() {
				m.quitting = true
				return m, tea.Quit
			}
			return m, m.retry()
		}
		m.status = msg.Status
		m.seen = true
		m.err = nil
		m.lastUpdate = m.config.Clock.Now()
		return m, m.read()

	case RetryMsg:
		return m, m.read()
	}

	return m, nil
}

// View renders the current state to a string.
func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	if !m.config.Quiet {
		b.WriteString(StyleBold.Render("aegir status"))
		b.WriteString("\n\n")
	}

	switch {
	case !m.seen && m.err != nil:
		b.WriteString(m.describeError())
		b.WriteString("\n")
	case !m.seen:
		b.WriteString("Waiting for status...\n")
	default:
		m.renderStatus(&b)
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(StyleDim.Render(m.describeError()))
			b.WriteString("\n")
		}
	}

	if !m.lastUpdate.IsZero() {
		b.WriteString(fmt.Sprintf("\nLast updated: %s", m.lastUpdate.Format("15:04:05")))
	}
	if !m.config.Quiet {
		b.WriteString("\nPress 'q' to quit")
	}
	return b.String()
}

// Status returns the most recent status (useful for testing).
func (m *WatchModel) Status() domain.RoutineStatus {
	return m.status
}

// LastUpdate returns the last update timestamp.
func (m *WatchModel) LastUpdate() time.Time {
	return m.lastUpdate
}

// IsQuitting returns true if the model is in quitting state.
func (m *WatchModel) IsQuitting() bool {
	return m.quitting
}

// Error returns the error from the last read, if it failed.
func (m *WatchModel) Error() error {
	return m.err
}

func (m *WatchModel) renderStatus(b *strings.Builder) {
	s := m.status
	state := constants.RoutineRunning
	if s.Stopping {
		state = constants.RoutineStopping
	}

	fmt.Fprintf(b, "%s  %s  session %s\n", FormatRoutineState(state), StyleBold.Render(s.Routine), s.Session)
	fmt.Fprintf(b, "%s  %s\n", m.bar.Render(s.Progress()), FormatCounter(s.Dispatched, s.Planned))
	fmt.Fprintf(b, "elapsed %s  captured %d  backlog %d\n", FormatElapsed(s.Elapsed), s.Captured, s.BacklogDepth)
}

func (m *WatchModel) describeError() string {
	if stderrors.Is(m.err, errors.ErrNoStatus) {
		return "No status received. Is a routine running?"
	}
	return fmt.Sprintf("Error: %v", m.err)
}

func (m *WatchModel) ctx() context.Context {
	if m.baseCtx == nil {
		return context.Background()
	}
	return m.baseCtx
}

func (m *WatchModel) contextDone() bool {
	return m.ctx().Err() != nil
}

// read returns a command that waits for the next status line.
func (m *WatchModel) read() tea.Cmd {
	return func() tea.Msg {
		ctx := m.ctx()
		if m.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
			defer cancel()
		}
		status, err := m.source.Next(ctx)
		return StatusMsg{Status: status, Err: err}
	}
}

func (m *WatchModel) retry() tea.Cmd {
	return tea.Tick(m.config.RetryInterval, func(t time.Time) tea.Msg {
		return RetryMsg(t)
	})
}
