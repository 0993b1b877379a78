// Package loop provides the per-session event loop that serializes all
// scheduling state.
//
// Every component in this repository confines its mutable state to one
// Loop. Work enters the loop through Dispatch (from any goroutine) or
// through timers armed with Schedule; the loop runs it one item at a
// time, so there is temporal overlap between logical operations but
// never data-level concurrency.
package loop

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the dispatch channel buffer size.
const DefaultQueueSize = 256

// Loop is a single-goroutine work queue.
type Loop struct {
	jobs   chan func()
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop's logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) { lp.logger = l }
}

// WithQueueSize sets the dispatch buffer size.
func WithQueueSize(n int) Option {
	return func(lp *Loop) { lp.jobs = make(chan func(), n) }
}

// New creates a Loop and starts its goroutine.
func New(opts ...Option) *Loop {
	lp := &Loop{
		jobs:   make(chan func(), DefaultQueueSize),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(lp)
	}
	lp.wg.Add(1)
	go lp.run()
	return lp
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.jobs:
			l.safeRun(fn)
		case <-l.done:
			// Drain what was queued before Close.
			for {
				select {
				case fn := <-l.jobs:
					l.safeRun(fn)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic in loop callback", "panic", r)
		}
	}()
	fn()
}

// Dispatch queues fn to run on the loop. Safe to call from any
// goroutine, including from code already running on the loop. Work
// dispatched after Close is discarded.
func (l *Loop) Dispatch(fn func()) {
	if l.closed.Load() {
		return
	}
	select {
	case l.jobs <- fn:
	case <-l.done:
	}
}

// TryDispatch queues fn without blocking. It reports whether the work
// was accepted; a full queue or a closed loop rejects it.
func (l *Loop) TryDispatch(fn func()) bool {
	if l.closed.Load() {
		return false
	}
	select {
	case l.jobs <- fn:
		return true
	default:
		return false
	}
}

// Invoke runs fn on the loop and waits for it to finish. It must not be
// called from the loop goroutine itself (it would deadlock); it exists
// for setup paths and tests that run outside the loop.
func (l *Loop) Invoke(fn func()) {
	if l.closed.Load() {
		return
	}
	ch := make(chan struct{})
	l.Dispatch(func() {
		defer close(ch)
		fn()
	})
	select {
	case <-ch:
	case <-l.done:
	}
}

// Close stops the loop after draining already-queued work. Idempotent.
func (l *Loop) Close() {
	if l.closed.CompareAndSwap(false, true) {
		close(l.done)
	}
	l.wg.Wait()
}

// Done returns a channel closed when the loop shuts down.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
