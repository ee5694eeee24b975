package control

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/aegir/internal/clock"
	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/domain"
	"github.com/mrz1836/aegir/internal/errors"
)

// Stopper is the part of a routine the control plane can act on.
type Stopper interface {
	RequestStop(reason string)
	StopRequested() bool
}

// ServerConfig wires a Server. Status is required; Telemetry may be nil to
// disable the heartbeat.
type ServerConfig struct {
	Channel   Channel
	Routine   Stopper
	Status    func() domain.RoutineStatus
	Telemetry func(ctx context.Context) domain.Telemetry

	// Done ends Run after a final status line.
	Done <-chan struct{}

	StatusInterval    time.Duration
	HeartbeatInterval time.Duration
	PollInterval      time.Duration
	NoticeRepeats     int
	NoticeSpacing     time.Duration

	Clock  clock.Clock
	Logger zerolog.Logger
}

// Server polls the inbound channel and publishes status.
type Server struct {
	cfg    ServerConfig
	logger zerolog.Logger

	lastStatus time.Time
	lastBeat   time.Time
	notices    sync.WaitGroup
}

// NewServer applies defaults to cfg.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = constants.DefaultStatusInterval
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = constants.DefaultHeartbeatInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.DefaultControlPollInterval
	}
	if cfg.NoticeRepeats <= 0 {
		cfg.NoticeRepeats = constants.StopNoticeRepeats
	}
	if cfg.NoticeSpacing <= 0 {
		cfg.NoticeSpacing = constants.StopNoticeSpacing
	}
	return &Server{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "control").Logger(),
	}
}

// Run serves until Done is closed or ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	defer s.notices.Wait()

	s.logger.Debug().
		Dur("status_interval", s.cfg.StatusInterval).
		Dur("heartbeat_interval", s.cfg.HeartbeatInterval).
		Msg("control server started")

	for {
		s.Poll(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.cfg.Done:
			s.publish()
			s.logger.Debug().Msg("control server stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one server step: handle inbound messages, then publish status
// and heartbeat when they are due.
func (s *Server) Poll(ctx context.Context) {
	msgs, err := s.cfg.Channel.Receive()
	if err != nil {
		s.logger.Debug().Err(err).Msg("control receive failed")
	}
	for _, m := range msgs {
		s.handle(ctx, m)
	}

	now := s.cfg.Clock.Now()
	if s.lastStatus.IsZero() || now.Sub(s.lastStatus) >= s.cfg.StatusInterval {
		s.lastStatus = now
		s.publish()
	}
	if s.cfg.Telemetry != nil && !s.cfg.Routine.StopRequested() &&
		(s.lastBeat.IsZero() || now.Sub(s.lastBeat) >= s.cfg.HeartbeatInterval) {
		s.lastBeat = now
		s.heartbeat(ctx)
	}
}

func (s *Server) handle(ctx context.Context, msg string) {
	if !IsStopCommand(msg) {
		s.logger.Info().Str("message", msg).Msg("unrecognized control message ignored")
		return
	}

	already := s.cfg.Routine.StopRequested()
	s.cfg.Routine.RequestStop(constants.StopReasonRequested)
	if already {
		s.logger.Debug().Msg("stop already in effect")
		return
	}
	s.logger.Info().Msg("stop command received")

	s.notices.Add(1)
	go s.announceStopping(ctx)
}

// announceStopping repeats the STOPPING notice so a client that attaches
// a moment late still sees it.
func (s *Server) announceStopping(ctx context.Context) {
	defer s.notices.Done()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for i := 0; i < s.cfg.NoticeRepeats; i++ {
		select {
		case <-ctx.Done():
			return
		case <-s.cfg.Done:
			return
		case <-timer.C:
		}
		s.send(constants.StoppingMarker)
		timer.Reset(s.cfg.NoticeSpacing)
	}
}

func (s *Server) publish() {
	s.send(FormatStatus(s.cfg.Status()))
}

func (s *Server) send(msg string) {
	if err := s.cfg.Channel.Send(msg); err != nil {
		if stderrors.Is(err, errors.ErrNoListener) {
			return
		}
		s.logger.Debug().Err(err).Msg("control send failed")
	}
}

func (s *Server) heartbeat(ctx context.Context) {
	t := s.cfg.Telemetry(ctx)
	s.logger.Info().
		Dur("elapsed", t.Elapsed).
		Float64("device_temperature", t.DeviceTemperature).
		Float64("depth", t.Depth).
		Float64("water_temperature", t.WaterTemperature).
		Msg("heartbeat")
}
