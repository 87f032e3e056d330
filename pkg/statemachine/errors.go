package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, or event cannot be nil")
	ErrInvalidEvent      = errors.New("invalid event: event cannot be nil")
	ErrInvalidState      = errors.New("invalid state: current state cannot be nil")

	ErrTransitionFromTerminal = errors.New("terminal state cannot have outgoing transitions")
	ErrDuplicateTransition    = errors.New("transition already defined for state and event")
)

// ErrNoTransitionAvailable indicates no valid transition exists for the given state/event combination.
type ErrNoTransitionAvailable struct {
	StateName string
	EventName string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.StateName, e.EventName)
}

func NewErrNoTransitionAvailable(stateName, eventName string) *ErrNoTransitionAvailable {
	return &ErrNoTransitionAvailable{
		StateName: stateName,
		EventName: eventName,
	}
}

// ErrTerminalState indicates an event was fired at a state that accepts no events.
type ErrTerminalState struct {
	StateName string
	EventName string
}

func (e *ErrTerminalState) Error() string {
	return fmt.Sprintf("state '%s' is terminal, event '%s' ignored", e.StateName, e.EventName)
}

func NewErrTerminalState(stateName, eventName string) *ErrTerminalState {
	return &ErrTerminalState{
		StateName: stateName,
		EventName: eventName,
	}
}

func IsTerminalStateError(err error) bool {
	var e *ErrTerminalState
	return errors.As(err, &e)
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}
