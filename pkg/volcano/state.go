package volcano

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateAwaitingFrames
	StateClosing
	StateClosed
	StateErrored
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateConnecting:     "connecting",
	StateOpen:           "open",
	StateAwaitingFrames: "awaiting_frames",
	StateClosing:        "closing",
	StateClosed:         "closed",
	StateErrored:        "errored",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

// ErrIllegalTransition marks a transition the state machine forbids,
// such as a frame handled after the session closed.
var ErrIllegalTransition = errors.New("volcano: illegal session transition")

var transitions = map[State][]State{
	StateIdle:           {StateConnecting, StateErrored},
	StateConnecting:     {StateOpen, StateErrored},
	StateOpen:           {StateAwaitingFrames, StateErrored},
	StateAwaitingFrames: {StateClosing, StateClosed, StateErrored},
	StateClosing:        {StateClosed, StateErrored},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
