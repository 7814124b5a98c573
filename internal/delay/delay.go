// Package delay runs a function once after a fixed interval, with explicit
// cancellation. The session and feed managers use it for their simulated
// loading pauses; a torn-down manager cancels its pending task so the
// callback never touches defunct state.
package delay

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCancelled = errors.New("task cancelled")

const (
	pending = iota
	running
	finished
	cancelled
)

type Task struct {
	mu    sync.Mutex
	state int
	err   error
	timer *time.Timer
	done  chan struct{}
}

// After schedules fn to run once d has elapsed. A non-positive d runs fn
// before After returns, so callers must not hold locks fn needs.
func After(d time.Duration, fn func() error) *Task {
	t := &Task{done: make(chan struct{})}
	if d <= 0 {
		t.run(fn)
		return t
	}
	t.mu.Lock()
	t.timer = time.AfterFunc(d, func() { t.run(fn) })
	t.mu.Unlock()
	return t
}

// Completed returns a task that has already finished with err.
func Completed(err error) *Task {
	t := &Task{state: finished, err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *Task) run(fn func() error) {
	t.mu.Lock()
	if t.state != pending {
		t.mu.Unlock()
		return
	}
	t.state = running
	t.mu.Unlock()

	err := fn()

	t.mu.Lock()
	t.state = finished
	t.err = err
	close(t.done)
	t.mu.Unlock()
}

// Cancel stops a task that has not started. It reports whether it did;
// a task already running is allowed to finish.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != pending {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.state = cancelled
	t.err = ErrCancelled
	close(t.done)
	return true
}

// Done is closed once the task has finished or been cancelled.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is the result of fn, ErrCancelled, or nil while still pending.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == pending || t.state == running
}

// Wait blocks until the task completes or ctx ends. Ending ctx does not
// cancel the task.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
