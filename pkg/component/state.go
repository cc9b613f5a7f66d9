package component

// State is the lifecycle state of a registered component. States only move
// forward, one step at a time.
type State int

const (
	StateConstructed State = iota
	StateCreated
	StateRunning
	StateKilled
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateKilled:
		return "killed"
	case StateCleanedUp:
		return "cleaned_up"
	default:
		return "unknown"
	}
}
