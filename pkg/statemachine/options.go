package statemachine

import (
	"fmt"
)

// Option configures a transition table during construction.
type Option func(*Table) error

// TransitionDef defines a transition between states.
type TransitionDef struct {
	From    State
	To      State
	Event   Event
	Actions []Action
}

// NewTable creates a transition table from the given options.
func NewTable(opts ...Option) (*Table, error) {
	t := newTable()

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// MustNewTable creates a transition table and panics if any option fails,
// so a malformed lifecycle definition stops the process at startup.
func MustNewTable(opts ...Option) *Table {
	t, err := NewTable(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create transition table: %v", err))
	}
	return t
}

// WithTransitions adds transitions to the table. A state and event pair
// may appear only once.
func WithTransitions(transitions []TransitionDef) Option {
	return func(t *Table) error {
		for i, td := range transitions {
			if err := t.addTransition(td); err != nil {
				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w",
					i, nameOf(td.From), nameOf(td.To), nameOf(td.Event), err)
			}
		}
		return nil
	}
}

// WithTerminal marks states that accept no events. Must follow every
// transition definition.
func WithTerminal(states ...State) Option {
	return func(t *Table) error {
		return t.markTerminal(states...)
	}
}

func nameOf(v interface{ Name() string }) string {
	if v == nil {
		return "<nil>"
	}
	return v.Name()
}
