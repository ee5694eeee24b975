// Package backlog provides the bounded FIFO queues that connect the
// scheduler, the capture stage, and the persistence stage.
package backlog

import (
	"context"
	"sync"

	"github.com/mrz1836/aegir/internal/errors"
)

// Queue is a bounded FIFO safe for concurrent producers and consumers.
// Put blocks while the queue is full. Items are never dropped.
type Queue[T any] struct {
	items     chan T
	done      chan struct{}
	closeOnce sync.Once
}

// New returns a queue holding at most capacity items. Capacity below one is raised to one.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		items: make(chan T, max(capacity, 1)),
		done:  make(chan struct{}),
	}
}

// Put appends item, waiting for space while the queue is full.
// It fails with ErrBacklogClosed after Close, or with the context's error.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	select {
	case <-q.done:
		return errors.ErrBacklogClosed
	default:
	}

	select {
	case q.items <- item:
		return nil
	case <-q.done:
		return errors.ErrBacklogClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get removes the oldest item, waiting while the queue is empty.
// After Close, remaining items are still returned in order; once the queue
// is drained Get fails with ErrBacklogClosed.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	var zero T

	select {
	case item := <-q.items:
		return item, nil
	default:
	}

	select {
	case item := <-q.items:
		return item, nil
	case <-q.done:
		select {
		case item := <-q.items:
			return item, nil
		default:
			return zero, errors.ErrBacklogClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close marks the end of input. Call it after the last Put; closing twice is a no-op.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Cap returns the queue's capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.items)
}
