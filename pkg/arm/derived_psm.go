package arm

import (
	"sync/atomic"
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/component"
)

const (
	TypeDerivedPSM = "PSM_DERIVED"

	// IOPeriod is the period of the specialized arms' own I/O task.
	IOPeriod = 500 * time.Microsecond
)

const (
	SourceDerived = "derived"
	SourceDefault = "default"
)

// State is what an arm reports to the console on each sample.
type State struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	Running    bool      `json:"running"`
	Cycles     uint64    `json:"cycles"`
	LastUpdate time.Time `json:"last_update"`
}

// DerivedPSM is a patient side manipulator variant that runs its own I/O
// task instead of the console's default arm.
type DerivedPSM struct {
	component.Periodic
	lastUpdate atomic.Int64
}

func NewDerivedPSM(name string, period time.Duration) *DerivedPSM {
	psm := &DerivedPSM{}
	psm.Periodic = component.NewPeriodic(name, period, psm.step)
	return psm
}

func (p *DerivedPSM) step(now time.Time) {
	p.lastUpdate.Store(now.UnixNano())
}

func (p *DerivedPSM) ArmState() State {
	state := State{
		Name:    p.Name(),
		Type:    TypeDerivedPSM,
		Source:  SourceDerived,
		Running: p.Task().Running(),
		Cycles:  p.Task().Ticks(),
	}
	if nanos := p.lastUpdate.Load(); nanos != 0 {
		state.LastUpdate = time.Unix(0, nanos)
	}
	return state
}
