// Package console is the supervisory component. It owns the default arm and
// teleoperation graph built from the main configuration and samples every
// arm on its own period.
package console

import (
	"sync"
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/arm"
	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/dkhoanguyen/dvrk-console/pkg/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	Name          = "console"
	DefaultPeriod = 10 * time.Millisecond
)

var (
	ErrNotConfigured     = errors.New("console is not configured")
	ErrAlreadyConfigured = errors.New("console is already configured")
	ErrNotRegistered     = errors.New("console is not registered")
)

// ArmSource is implemented by registered arm components the console can
// sample directly.
type ArmSource interface {
	ArmState() arm.State
}

type armRecord struct {
	spec   config.ArmSpec
	source ArmSource
}

type Console struct {
	component.Periodic
	logger *zap.Logger

	registry   *component.Registry
	configured bool
	connected  bool
	arms       []*armRecord
	teleops    []config.TeleopSpec

	mu       sync.RWMutex
	snapshot []arm.State
}

func New(logger *zap.Logger) *Console {
	c := &Console{logger: logger}
	c.Periodic = component.NewPeriodic(Name, DefaultPeriod, c.step)
	return c
}

func (c *Console) Attached(registry *component.Registry) {
	c.registry = registry
}

// Configure loads the main configuration and builds the default graph: one
// arm per entry and one teleoperation pair per psm-teleops entry.
func (c *Console) Configure(path string) error {
	if c.configured {
		return ErrAlreadyConfigured
	}
	doc, err := config.Load(path)
	if err != nil {
		return err
	}
	for _, spec := range doc.Arms {
		c.arms = append(c.arms, &armRecord{spec: spec})
	}
	c.teleops = append(c.teleops, doc.PSMTeleops...)
	c.configured = true

	c.logger.Info("Console configured",
		zap.String("path", path),
		zap.Int("arms", len(c.arms)),
		zap.Int("teleops", len(c.teleops)))
	return nil
}

// Connect binds each arm to a registered component of the same name when
// one exists, and to the console's default arm otherwise.
func (c *Console) Connect() error {
	if !c.configured {
		return ErrNotConfigured
	}
	if c.registry == nil {
		return ErrNotRegistered
	}

	known := map[string]bool{}
	for _, record := range c.arms {
		known[record.spec.Name] = true
		if registered, ok := c.registry.Get(record.spec.Name); ok {
			if source, ok := registered.(ArmSource); ok {
				record.source = source
				c.logger.Info("Console connected to arm component", zap.String("arm", record.spec.Name))
				continue
			}
		}
		record.source = &defaultArm{spec: record.spec, console: c}
	}

	for _, teleop := range c.teleops {
		if !known[teleop.Master] || !known[teleop.Slave] {
			return errors.Errorf("teleop %s-%s refers to an unknown arm", teleop.Master, teleop.Slave)
		}
	}

	c.connected = true
	return nil
}

func (c *Console) Connected() bool { return c.connected }

// Arms returns the configured arm names in document order.
func (c *Console) Arms() []string {
	names := make([]string, 0, len(c.arms))
	for _, record := range c.arms {
		names = append(names, record.spec.Name)
	}
	return names
}

func (c *Console) Teleops() []config.TeleopSpec {
	return append([]config.TeleopSpec(nil), c.teleops...)
}

// Snapshot returns the arm states sampled on the last period.
func (c *Console) Snapshot() []arm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]arm.State(nil), c.snapshot...)
}

func (c *Console) step(now time.Time) {
	states := make([]arm.State, 0, len(c.arms))
	for _, record := range c.arms {
		if record.source == nil {
			continue
		}
		states = append(states, record.source.ArmState())
	}
	c.mu.Lock()
	c.snapshot = states
	c.mu.Unlock()
}

// defaultArm stands for an arm driven by the console itself.
type defaultArm struct {
	spec    config.ArmSpec
	console *Console
}

func (d *defaultArm) ArmState() arm.State {
	task := d.console.Task()
	return arm.State{
		Name:    d.spec.Name,
		Type:    d.spec.Type,
		Source:  arm.SourceDefault,
		Running: task.Running(),
		Cycles:  task.Ticks(),
	}
}
