package component

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type entry struct {
	component Component
	state     State
	// inflight is closed when the last dispatched call returns.
	inflight chan struct{}
}

// Status is a point-in-time view of one registered component.
type Status struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Registry owns every component of the process. Components are registered
// during bootstrap only: the first barrier seals it. Create and Start walk
// the components in registration order, Kill and Cleanup walk them in
// reverse.
type Registry struct {
	logger *zap.Logger

	mu        sync.RWMutex
	entries   []*entry
	index     map[string]*entry
	sealed    bool
	observers []func(name string, state State)
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger,
		index:  make(map[string]*entry),
	}
}

// Register adds c to the registry. Names must be unique.
func (r *Registry) Register(c Component) error {
	if c == nil {
		return errors.New("nil component")
	}
	name := c.Name()
	if name == "" {
		return errors.New("component name must not be empty")
	}

	r.mu.Lock()
	if r.sealed {
		r.mu.Unlock()
		return errors.Wrapf(ErrRegistrySealed, "registering %s", name)
	}
	if _, exists := r.index[name]; exists {
		r.mu.Unlock()
		return errors.Wrapf(ErrDuplicateName, "registering %s", name)
	}
	e := &entry{component: c, state: StateConstructed}
	r.entries = append(r.entries, e)
	r.index[name] = e
	r.mu.Unlock()

	r.logger.Info("Component registered", zap.String("component", name))
	if attachable, ok := c.(Attachable); ok {
		attachable.Attached(r)
	}
	return nil
}

// OnTransition registers fn to be called after every state change.
func (r *Registry) OnTransition(fn func(name string, state State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *Registry) Get(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return e.component, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Names returns component names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.component.Name())
	}
	return names
}

func (r *Registry) State(name string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.index[name]
	if !ok {
		return StateConstructed, false
	}
	return e.state, true
}

// Statuses returns the state of every component in registration order.
func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	statuses := make([]Status, 0, len(r.entries))
	for _, e := range r.entries {
		statuses = append(statuses, Status{Name: e.component.Name(), State: e.state.String()})
	}
	return statuses
}

// CreateAll moves every component from Constructed to Created.
func (r *Registry) CreateAll(ctx context.Context, timeout time.Duration) error {
	return r.forward(ctx, timeout, StateCreated, func(ctx context.Context, c Component, from State) (bool, error) {
		if from != StateConstructed {
			return false, errors.Wrapf(ErrInvalidTransition, "%s: %s -> %s", c.Name(), from, StateCreated)
		}
		return true, c.Create(ctx)
	})
}

// StartAll moves every component from Created to Running.
func (r *Registry) StartAll(ctx context.Context, timeout time.Duration) error {
	return r.forward(ctx, timeout, StateRunning, func(ctx context.Context, c Component, from State) (bool, error) {
		if from != StateCreated {
			return false, errors.Wrapf(ErrInvalidTransition, "%s: %s -> %s", c.Name(), from, StateRunning)
		}
		return true, c.Start(ctx)
	})
}

// KillAll moves every component to Killed, last registered first. Each
// component gets its own timeout so a stalled one does not keep the others
// running. A call left in flight by an earlier barrier is waited for first.
// A component that was never created is marked Killed without being called,
// so KillAll is safe after a failed CreateAll or StartAll.
func (r *Registry) KillAll(ctx context.Context, timeout time.Duration) error {
	r.seal()
	var errs error
	var pending []string
	for _, e := range r.ordered(true) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err := r.kill(callCtx, e)
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			pending = append(pending, e.component.Name())
			continue
		}
		errs = multierr.Append(errs, err)
	}
	if len(pending) > 0 {
		errs = multierr.Append(errs, &BarrierTimeoutError{Target: StateKilled, Timeout: timeout, Pending: pending})
	}
	return errs
}

func (r *Registry) kill(ctx context.Context, e *entry) error {
	if !r.settle(ctx, e) {
		return ctx.Err()
	}
	from := r.stateOf(e)
	switch from {
	case StateKilled:
		return nil
	case StateConstructed:
		r.setState(e, StateKilled)
		return nil
	case StateCreated, StateRunning:
	default:
		return errors.Wrapf(ErrInvalidTransition, "%s: %s -> %s", e.component.Name(), from, StateKilled)
	}

	done := r.dispatch(ctx, e, from, StateKilled, func(ctx context.Context, c Component, from State) (bool, error) {
		return true, c.Kill(ctx)
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cleanup releases every killed component, last registered first. It is
// not time bounded: cleanup must not block. A component with a call still
// in flight is skipped and reported.
func (r *Registry) Cleanup() error {
	r.seal()
	var errs error
	for _, e := range r.ordered(true) {
		if r.inflightOf(e) != nil {
			errs = multierr.Append(errs, errors.Wrapf(ErrCallInFlight, "cleaning up %s", e.component.Name()))
			continue
		}
		from := r.stateOf(e)
		if from != StateKilled {
			errs = multierr.Append(errs, errors.Wrapf(ErrInvalidTransition, "%s: %s -> %s", e.component.Name(), from, StateCleanedUp))
			continue
		}
		if err := e.component.Cleanup(); err != nil {
			errs = multierr.Append(errs, &TransitionError{Name: e.component.Name(), Target: StateCleanedUp, Err: err})
		}
		r.setState(e, StateCleanedUp)
	}
	return errs
}

type transition func(ctx context.Context, c Component, from State) (bool, error)

// forward issues the transition to each component in registration order and
// waits for all of them within one shared timeout. On timeout the remaining
// components are reported as pending and are left in their state; a call
// that completes later still applies its transition.
func (r *Registry) forward(ctx context.Context, timeout time.Duration, target State, call transition) error {
	r.seal()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	order := r.ordered(false)
	var errs error
	for i, e := range order {
		var err error
		if r.settle(ctx, e) {
			from := r.stateOf(e)
			if from == target {
				continue
			}
			select {
			case err = <-r.dispatch(ctx, e, from, target, call):
				errs = multierr.Append(errs, err)
				continue
			case <-ctx.Done():
			}
		}

		pending := make([]string, 0, len(order)-i)
		for _, rest := range order[i:] {
			if r.stateOf(rest) != target {
				pending = append(pending, rest.component.Name())
			}
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return multierr.Append(errs, &BarrierTimeoutError{Target: target, Timeout: timeout, Pending: pending})
		}
		return multierr.Append(errs, errors.Wrapf(ctx.Err(), "waiting for %s", target))
	}
	return errs
}

// dispatch runs call in its own goroutine and records it as in flight until
// it returns. The transition is applied by the goroutine itself.
func (r *Registry) dispatch(ctx context.Context, e *entry, from, target State, call transition) <-chan error {
	inflight := make(chan struct{})
	result := make(chan error, 1)
	r.mu.Lock()
	e.inflight = inflight
	r.mu.Unlock()

	go func() {
		advance, err := call(ctx, e.component, from)
		switch {
		case err != nil:
			if advance {
				err = &TransitionError{Name: e.component.Name(), Target: target, Err: err}
			}
			r.logger.Error("Component transition failed",
				zap.String("component", e.component.Name()),
				zap.Stringer("target", target),
				zap.Error(err))
		case advance:
			r.setState(e, target)
		}

		r.mu.Lock()
		e.inflight = nil
		r.mu.Unlock()
		close(inflight)
		result <- err
	}()
	return result
}

// settle waits for a call left running by an earlier barrier. It reports
// false when ctx ends first.
func (r *Registry) settle(ctx context.Context, e *entry) bool {
	inflight := r.inflightOf(e)
	if inflight == nil {
		return true
	}
	select {
	case <-inflight:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Registry) inflightOf(e *entry) chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.inflight
}

func (r *Registry) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *Registry) ordered(reverse bool) []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order := make([]*entry, len(r.entries))
	copy(order, r.entries)
	if reverse {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	return order
}

func (r *Registry) stateOf(e *entry) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.state
}

func (r *Registry) setState(e *entry, state State) {
	r.mu.Lock()
	e.state = state
	observers := make([]func(string, State), len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	r.logger.Debug("Component state changed",
		zap.String("component", e.component.Name()),
		zap.Stringer("state", state))
	for _, fn := range observers {
		fn(e.component.Name(), state)
	}
}
