// Package signal provides two-phase shutdown handling for a running routine.
//
// The first SIGINT or SIGTERM asks the routine to stop gracefully, the same
// way an inbound STOP does, so in-flight captures finish and the pipeline
// drains. A second signal cancels the run context for a hard abort.
//
// Import rules:
//   - CAN import: std lib only
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Handler manages shutdown by listening for interrupt signals.
type Handler struct {
	ctx         context.Context //nolint:containedctx // intentional: handler manages context lifecycle
	cancel      context.CancelFunc
	onInterrupt func()
	interrupted chan struct{}
	done        chan struct{} // signals listen() to exit cleanly
	count       atomic.Int32
	once        sync.Once
	stopOnce    sync.Once
	sigChan     chan os.Signal
}

// NewHandler creates a signal handler that listens for SIGINT and SIGTERM.
// onInterrupt runs once on the first signal and may be nil. The second
// signal cancels the handler's context.
//
//	h := signal.NewHandler(ctx, func() { r.RequestStop(constants.StopReasonSignal) })
//	defer h.Stop()
//	ctx = h.Context()
func NewHandler(parent context.Context, onInterrupt func()) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		onInterrupt: onInterrupt,
		interrupted: make(chan struct{}),
		done:        make(chan struct{}),
		// Buffer of 1 ensures signal.Notify doesn't drop signals if handler is busy.
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context returns the cancellable context. It is canceled by the second
// signal or by Stop.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted returns a channel that closes when the first signal is received.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// Stop cleans up the signal handler and stops listening for signals.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

// handleSignal processes one received signal.
func (h *Handler) handleSignal() {
	if h.count.Add(1) == 1 {
		h.once.Do(func() {
			close(h.interrupted)
			if h.onInterrupt != nil {
				h.onInterrupt()
			}
		})
		return
	}
	h.cancel()
}

// listen waits for signals until Stop is called or the context is canceled.
func (h *Handler) listen() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.done:
			return
		case <-h.sigChan:
			h.handleSignal()
		}
	}
}
