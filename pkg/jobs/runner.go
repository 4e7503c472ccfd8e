package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// TaskFunc is one scheduled unit of work.
type TaskFunc func(ctx context.Context)

// Runner schedules named tasks to run after a delay. Tasks that want to
// recur enqueue themselves again from inside their own execution.
type Runner interface {
	RegisterTask(name string, fn TaskFunc) error
	Enqueue(name string, delay time.Duration) error
}

// ErrRunnerClosed is returned by Enqueue after Shutdown started.
var ErrRunnerClosed = errors.New("runner closed")

// TimerRunner drives tasks off stdlib timers. Executions overlap only if the
// caller enqueues overlapping delays; the outbox poller never does.
type TimerRunner struct {
	mtx     sync.Mutex
	tasks   map[string]TaskFunc
	pending map[*time.Timer]struct{}
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
	closed  bool
}

// NewTimerRunner builds a runner whose tasks observe cancellation of ctx.
func NewTimerRunner(ctx context.Context) *TimerRunner {
	if ctx == nil {
		ctx = context.Background()
	}
	baseCtx, cancel := context.WithCancel(ctx)
	return &TimerRunner{
		tasks:   make(map[string]TaskFunc),
		pending: make(map[*time.Timer]struct{}),
		baseCtx: baseCtx,
		cancel:  cancel,
	}
}

// RegisterTask stores fn under name. Registering a name twice is an error so
// wiring bugs surface at startup.
func (r *TimerRunner) RegisterTask(name string, fn TaskFunc) error {
	if name == "" {
		return errors.New("task name is required")
	}
	if fn == nil {
		return errors.New("task func is required")
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.closed {
		return ErrRunnerClosed
	}
	if _, exists := r.tasks[name]; exists {
		return fmt.Errorf("task %q already registered", name)
	}
	r.tasks[name] = fn
	return nil
}

// Enqueue schedules the named task to run once after delay.
func (r *TimerRunner) Enqueue(name string, delay time.Duration) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.closed {
		return ErrRunnerClosed
	}
	fn, ok := r.tasks[name]
	if !ok {
		return fmt.Errorf("task %q not registered", name)
	}
	if delay < 0 {
		delay = 0
	}

	r.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer r.wg.Done()
		r.mtx.Lock()
		delete(r.pending, timer)
		r.mtx.Unlock()
		if r.baseCtx.Err() != nil {
			return
		}
		fn(r.baseCtx)
	})
	r.pending[timer] = struct{}{}
	return nil
}

// Shutdown stops accepting work, cancels the task context, drops timers that
// have not fired yet, and waits for in-flight executions up to ctx's
// deadline.
func (r *TimerRunner) Shutdown(ctx context.Context) error {
	r.mtx.Lock()
	if r.closed {
		r.mtx.Unlock()
		return nil
	}
	r.closed = true
	r.cancel()
	for timer := range r.pending {
		if timer.Stop() {
			r.wg.Done()
		}
		delete(r.pending, timer)
	}
	r.mtx.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
