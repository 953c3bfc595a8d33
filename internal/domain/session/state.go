// Package session defines the per-tenant session lifecycle: its state
// machine, the transport contract, and the classification of transport
// failures into user-facing categories.
package session

import "fmt"

// State is the lifecycle state of one tenant's session.
type State string

const (
	StateIdle          State = "idle"
	StateConnecting    State = "connecting"
	StateConnected     State = "connected"
	StateDisconnecting State = "disconnecting"
	StateDisconnected  State = "disconnected"
	StateReconnecting  State = "reconnecting"
	// StateTerminal is reached only on an unrecoverable authentication
	// failure. It is never auto-retried; a new explicit connect request
	// re-enters idle after credentials are cleared.
	StateTerminal State = "terminal"
)

var validTransitions = map[State][]State{
	StateIdle:          {StateConnecting},
	StateConnecting:    {StateConnected, StateDisconnected, StateReconnecting, StateTerminal},
	StateConnected:     {StateDisconnecting, StateDisconnected, StateReconnecting, StateTerminal},
	StateDisconnecting: {StateDisconnected},
	StateDisconnected:  {StateConnecting, StateReconnecting},
	StateReconnecting:  {StateConnecting, StateDisconnected, StateTerminal},
	StateTerminal:      {StateIdle},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates and returns the next state.
func (s State) Transition(next State) (State, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("illegal session state transition %s -> %s", s, next)
	}
	return next, nil
}

func (s State) String() string {
	return string(s)
}

// IsConnected reports whether sends are allowed.
func (s State) IsConnected() bool {
	return s == StateConnected
}
