// Package throttle serializes bulk request work: one task at a time,
// strict submission order, a fixed minimum gap between tasks.
package throttle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultGap is the minimum pause between task completions.
const DefaultGap = 100 * time.Millisecond

// ErrClosed is returned for tasks submitted after Close.
var ErrClosed = errors.New("serializer closed")

type task struct {
	fn   func() error
	done chan error
}

// Serializer executes submitted tasks strictly in order, waiting for
// each to settle and then pausing for the configured gap before
// starting the next. A task's outcome reaches only its own submitter;
// one task failing never short-circuits another.
type Serializer struct {
	gap    time.Duration
	logger *slog.Logger

	tasks chan task

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates and starts a serializer. gap<=0 selects the default.
func New(gap time.Duration, logger *slog.Logger) *Serializer {
	if gap <= 0 {
		gap = DefaultGap
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Serializer{
		gap:    gap,
		logger: logger,
		tasks:  make(chan task, 64),
		closed: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Serializer) run() {
	for {
		select {
		case <-s.closed:
			s.drainRejected()
			return
		case t := <-s.tasks:
			t.done <- t.fn()
			select {
			case <-time.After(s.gap):
			case <-s.closed:
				s.drainRejected()
				return
			}
		}
	}
}

// drainRejected fails any tasks still buffered at close time so their
// submitters are not left waiting.
func (s *Serializer) drainRejected() {
	for {
		select {
		case t := <-s.tasks:
			t.done <- ErrClosed
		default:
			return
		}
	}
}

// Do submits fn and blocks until it has run (or ctx is cancelled while
// still waiting in line). Tasks run in exactly the order Do was
// entered.
func (s *Serializer) Do(ctx context.Context, fn func() error) error {
	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case s.tasks <- t:
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		// The task may still execute; its result is dropped, but
		// execution-side bookkeeping (cache/queue updates inside fn)
		// completes normally.
		return ctx.Err()
	}
}

// Close stops the worker. Pending submissions fail with ErrClosed.
func (s *Serializer) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}
