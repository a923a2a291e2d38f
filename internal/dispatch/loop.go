package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned when posting to a stopped loop.
var ErrStopped = errors.New("dispatch loop stopped")

// Task is a unit of work run on the dispatch goroutine.
type Task func(ctx context.Context) error

// Loop is the single-writer dispatch loop.
//
// Thread-safety model:
//   - Post, Do, Stop: safe from any goroutine
//   - Run: called from exactly one goroutine; tasks run there
//
// A task error is logged and the loop continues.
type Loop struct {
	queue    *taskQueue
	logger   *slog.Logger
	running  atomic.Bool
	errs     atomic.Int64
	halted   chan struct{}
	haltOnce sync.Once
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) LoopOption {
	return func(lp *Loop) {
		lp.logger = l
	}
}

// NewLoop creates a stopped loop. Call Run to start it.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{queue: newTaskQueue(), logger: slog.Default(), halted: make(chan struct{})}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues t. Returns ErrStopped after Stop.
func (l *Loop) Post(t Task) error {
	if !l.queue.push(t) {
		return ErrStopped
	}
	return nil
}

// Do posts t and waits for it to finish, returning its error. If Run
// returns before t gets its turn, Do returns ErrStopped.
func (l *Loop) Do(ctx context.Context, t Task) error {
	done := make(chan error, 1)
	if err := l.Post(func(ctx context.Context) error {
		err := t(ctx)
		done <- err
		return err
	}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-l.halted:
		// Tasks run on the Run goroutine, so one that ran has already
		// reported.
		select {
		case err := <-done:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks until ctx is cancelled or Stop is called. Tasks queued
// before Stop are still run; tasks still queued when ctx is cancelled are
// dropped and their Do callers get ErrStopped.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatch loop already running")
	}
	defer l.running.Store(false)
	defer l.haltOnce.Do(func() { close(l.halted) })
	l.logger.Debug("dispatch loop starting")

	for {
		if ctx.Err() != nil {
			return l.cancelled(ctx)
		}
		if t, ok := l.queue.pop(); ok {
			l.run(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			return l.cancelled(ctx)
		case <-l.queue.wait():
			if l.queue.len() == 0 && l.stopped() {
				l.logger.Debug("dispatch loop stopping: queue closed")
				return nil
			}
		}
	}
}

func (l *Loop) cancelled(ctx context.Context) error {
	l.queue.close()
	dropped := l.queue.drop()
	l.logger.Debug("dispatch loop stopping: context cancelled", "dropped", dropped)
	return ctx.Err()
}

func (l *Loop) run(ctx context.Context, t Task) {
	if err := t(ctx); err != nil {
		l.errs.Add(1)
		l.logger.Error("dispatch task failed", "error", err)
	}
}

func (l *Loop) stopped() bool {
	l.queue.mu.Lock()
	defer l.queue.mu.Unlock()
	return l.queue.closed
}

// Stop closes the queue. Run returns once the queued tasks have run.
func (l *Loop) Stop() {
	l.queue.close()
}

// Failures returns the number of tasks that returned an error.
func (l *Loop) Failures() int64 {
	return l.errs.Load()
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.queue.len()
}
