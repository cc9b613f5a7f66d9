package component

import (
	"context"
	"time"
)

// Periodic is a Component whose only runtime is one Task. Concrete
// components embed it and override the phases they care about.
type Periodic struct {
	name string
	task *Task
}

func NewPeriodic(name string, period time.Duration, step func(now time.Time)) Periodic {
	return Periodic{name: name, task: NewTask(period, step)}
}

func (p *Periodic) Name() string { return p.name }

func (p *Periodic) Task() *Task { return p.task }

func (p *Periodic) Create(ctx context.Context) error { return nil }

func (p *Periodic) Start(ctx context.Context) error { return p.task.Start() }

func (p *Periodic) Kill(ctx context.Context) error { return p.task.Stop(ctx) }

func (p *Periodic) Cleanup() error { return nil }
