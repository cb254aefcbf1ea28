package core

import (
	"errors"
	"fmt"
	"sync"
)

// TransportState is the lifecycle of a MediaConnection:
// Idle -> Preparing -> Connected -> Disconnected.
type TransportState int

const (
	StateIdle TransportState = iota
	StatePreparing
	StateConnected
	StateDisconnected
)

func (s TransportState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrInvalidTransition = errors.New("invalid transport state transition")

// allowed lists legal targets per state. Idle may go straight to Connected
// when preparation was skipped, and any state may be torn down.
var allowed = map[TransportState][]TransportState{
	StateIdle:         {StatePreparing, StateConnected, StateDisconnected},
	StatePreparing:    {StateConnected, StateDisconnected},
	StateConnected:    {StateDisconnected},
	StateDisconnected: nil,
}

// StateMachine guards transitions and remembers why the connection ended.
type StateMachine struct {
	mu     sync.Mutex
	state  TransportState
	reason string
}

func (m *StateMachine) Current() TransportState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reason is set once the machine reaches StateDisconnected.
func (m *StateMachine) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Transition moves to next, returning ErrInvalidTransition if it is not
// reachable from the current state.
func (m *StateMachine) Transition(next TransportState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(next)
}

// Disconnect moves to StateDisconnected and reports whether this call did it.
func (m *StateMachine) Disconnect(reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDisconnected {
		return false
	}
	m.state = StateDisconnected
	m.reason = reason
	return true
}

func (m *StateMachine) transitionLocked(next TransportState) error {
	if next == m.state {
		return nil
	}
	for _, s := range allowed[m.state] {
		if s == next {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, next)
}
