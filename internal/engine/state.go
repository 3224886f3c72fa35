// FILENAME: internal/engine/state.go
package engine

// State is the lifecycle position of an engine run.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StatePaused
	StatePausedQuarantine
	StateStopping
	StateStopped
	StateFinished
	StateError
)

var stateNames = [...]string{
	StateNotStarted:       "NOT_STARTED",
	StateRunning:          "RUNNING",
	StatePaused:           "PAUSED",
	StatePausedQuarantine: "PAUSED_QUARANTINE",
	StateStopping:         "STOPPING",
	StateStopped:          "STOPPED",
	StateFinished:         "FINISHED",
	StateError:            "ERROR",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	StateNotStarted:       {StateRunning, StateStopped},
	StateRunning:          {StatePaused, StatePausedQuarantine, StateStopping, StateFinished, StateError},
	StatePaused:           {StateRunning, StateStopping, StatePausedQuarantine},
	StatePausedQuarantine: {StateRunning, StatePaused, StateStopping},
	StateStopping:         {StateStopped, StateError},
	StateStopped:          {StateRunning, StateNotStarted},
	StateFinished:         {StateRunning, StateNotStarted},
	StateError:            {StateRunning, StateStopped, StateNotStarted},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) IsPaused() bool { return s == StatePaused || s == StatePausedQuarantine }

// IsShuttingDown is true once a stop was requested or the run has ended.
func (s State) IsShuttingDown() bool {
	return s == StateStopping || s == StateStopped || s == StateFinished || s == StateError
}

func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFinished || s == StateError
}

func (s State) IsActive() bool { return s == StateRunning || s.IsPaused() }
