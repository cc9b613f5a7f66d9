package component

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateName     = errors.New("component name already registered")
	ErrRegistrySealed    = errors.New("registry is sealed, lifecycle already started")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrTaskStarted       = errors.New("task already started")
	ErrCallInFlight      = errors.New("component call still in flight")
)

// BarrierTimeoutError is returned when a collective transition did not
// complete within its bound.
type BarrierTimeoutError struct {
	Target  State
	Timeout time.Duration
	Pending []string
}

func (e *BarrierTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for components to reach %s: %s",
		e.Timeout, e.Target, strings.Join(e.Pending, ", "))
}

// TransitionError wraps the failure of a single component transition.
type TransitionError struct {
	Name   string
	Target State
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("component %s failed to reach %s: %v", e.Name, e.Target, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }
