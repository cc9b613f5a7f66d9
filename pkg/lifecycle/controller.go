// Package lifecycle sequences the whole process through Create, Start, Run,
// Kill and Cleanup. Every phase runs exactly once; Kill and Cleanup run
// whatever happened before them.
package lifecycle

import (
	"context"
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/dkhoanguyen/dvrk-console/pkg/frontend"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Phase string

const (
	PhaseCreate  Phase = "create"
	PhaseStart   Phase = "start"
	PhaseRun     Phase = "run"
	PhaseKill    Phase = "kill"
	PhaseCleanup Phase = "cleanup"
)

var ErrPhaseOrder = errors.New("lifecycle phase out of order")

// Observer is notified once per completed phase.
type Observer interface {
	PhaseCompleted(phase Phase, elapsed time.Duration, err error)
}

type ObserverFunc func(phase Phase, elapsed time.Duration, err error)

func (f ObserverFunc) PhaseCompleted(phase Phase, elapsed time.Duration, err error) {
	f(phase, elapsed, err)
}

type Controller struct {
	registry *component.Registry
	frontend frontend.Frontend
	timeout  time.Duration
	logger   *zap.Logger

	observers []Observer
	cleanups  []func() error
	done      map[Phase]bool
	failed    bool
}

func NewController(registry *component.Registry, fe frontend.Frontend, timeout time.Duration, logger *zap.Logger) *Controller {
	return &Controller{
		registry: registry,
		frontend: fe,
		timeout:  timeout,
		logger:   logger,
		done:     map[Phase]bool{},
	}
}

func (c *Controller) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// OnCleanup registers shared infrastructure to release after every
// component was cleaned up. Hooks run last registered first.
func (c *Controller) OnCleanup(fn func() error) {
	c.cleanups = append(c.cleanups, fn)
}

func (c *Controller) CreateAll(ctx context.Context) error {
	if c.done[PhaseCreate] {
		return errors.Wrap(ErrPhaseOrder, "create already ran")
	}
	return c.phase(PhaseCreate, func() error {
		return c.registry.CreateAll(ctx, c.timeout)
	})
}

func (c *Controller) StartAll(ctx context.Context) error {
	if !c.done[PhaseCreate] || c.failed || c.done[PhaseStart] {
		return errors.Wrap(ErrPhaseOrder, "start requires a successful create")
	}
	return c.phase(PhaseStart, func() error {
		return c.registry.StartAll(ctx, c.timeout)
	})
}

// RunPhase hands the foreground to the front end until it returns.
func (c *Controller) RunPhase(ctx context.Context) error {
	if !c.done[PhaseStart] || c.failed || c.done[PhaseRun] {
		return errors.Wrap(ErrPhaseOrder, "run requires a successful start")
	}
	return c.phase(PhaseRun, func() error {
		return c.frontend.Run(ctx)
	})
}

func (c *Controller) KillAll(ctx context.Context) error {
	if c.done[PhaseKill] {
		return errors.Wrap(ErrPhaseOrder, "kill already ran")
	}
	return c.phase(PhaseKill, func() error {
		return c.registry.KillAll(ctx, c.timeout)
	})
}

// Cleanup releases the components and then the shared infrastructure.
func (c *Controller) Cleanup() error {
	if !c.done[PhaseKill] || c.done[PhaseCleanup] {
		return errors.Wrap(ErrPhaseOrder, "cleanup requires kill")
	}
	return c.phase(PhaseCleanup, func() error {
		errs := c.registry.Cleanup()
		for i := len(c.cleanups) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, c.cleanups[i]())
		}
		return errs
	})
}

// Run drives the full sequence. A failed Create or Start skips the run
// phase; Kill and Cleanup always run, Kill with a context that ignores the
// cancellation which may have ended the run phase.
func (c *Controller) Run(ctx context.Context) error {
	var errs error
	if err := c.CreateAll(ctx); err != nil {
		errs = err
	} else if err := c.StartAll(ctx); err != nil {
		errs = err
	} else {
		errs = c.RunPhase(ctx)
	}

	errs = multierr.Append(errs, c.KillAll(context.WithoutCancel(ctx)))
	errs = multierr.Append(errs, c.Cleanup())
	return errs
}

func (c *Controller) phase(phase Phase, fn func() error) error {
	c.logger.Info("Lifecycle phase started", zap.String("phase", string(phase)))
	started := time.Now()
	err := fn()
	elapsed := time.Since(started)

	c.done[phase] = true
	if err != nil {
		c.failed = true
		c.logger.Error("Lifecycle phase failed",
			zap.String("phase", string(phase)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		c.logger.Info("Lifecycle phase completed",
			zap.String("phase", string(phase)),
			zap.Duration("elapsed", elapsed))
	}
	for _, o := range c.observers {
		o.PhaseCompleted(phase, elapsed, err)
	}
	return err
}
