package component

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Task runs a step function on a fixed period in its own goroutine. It is
// the scheduling primitive behind every periodic component.
type Task struct {
	period time.Duration
	step   func(now time.Time)

	once    sync.Once
	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	ticks   atomic.Uint64
}

func NewTask(period time.Duration, step func(now time.Time)) *Task {
	return &Task{
		period: period,
		step:   step,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (t *Task) Period() time.Duration { return t.period }

// Ticks returns how many times the step function has run.
func (t *Task) Ticks() uint64 { return t.ticks.Load() }

func (t *Task) Running() bool {
	if !t.started.Load() {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Start launches the periodic goroutine. A task can only be started once.
func (t *Task) Start() error {
	if !t.started.CompareAndSwap(false, true) {
		return ErrTaskStarted
	}
	go t.loop()
	return nil
}

func (t *Task) loop() {
	defer close(t.done)
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			t.step(now)
			t.ticks.Add(1)
		}
	}
}

// Stop signals the goroutine and waits for it to exit or for ctx to end.
// Stopping a task that never started is a no-op.
func (t *Task) Stop(ctx context.Context) error {
	t.once.Do(func() { close(t.stop) })
	if !t.started.Load() {
		return nil
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
