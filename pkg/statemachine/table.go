package statemachine

import (
	"context"
	"fmt"
)

// Table is a transition table keyed [fromState][event]. It is read-only
// once built, so Fire is safe for concurrent use. The current state is
// supplied by the caller on every Fire, typically loaded from a persisted
// record.
type Table struct {
	transitions map[string]map[string]TransitionDef
	terminal    map[string]struct{}
}

func newTable() *Table {
	return &Table{
		transitions: make(map[string]map[string]TransitionDef),
		terminal:    make(map[string]struct{}),
	}
}

func (t *Table) addTransition(td TransitionDef) error {
	if td.From == nil || td.To == nil || td.Event == nil {
		return ErrInvalidTransition
	}

	from := td.From.Name()
	if _, ok := t.terminal[from]; ok {
		return fmt.Errorf("%w: %s", ErrTransitionFromTerminal, from)
	}
	if _, ok := t.transitions[from]; !ok {
		t.transitions[from] = make(map[string]TransitionDef)
	}
	if _, dup := t.transitions[from][td.Event.Name()]; dup {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateTransition, from, td.Event.Name())
	}
	t.transitions[from][td.Event.Name()] = td
	return nil
}

func (t *Table) markTerminal(states ...State) error {
	for _, s := range states {
		if s == nil {
			return ErrInvalidTransition
		}
		if len(t.transitions[s.Name()]) > 0 {
			return fmt.Errorf("%w: %s", ErrTransitionFromTerminal, s.Name())
		}
		t.terminal[s.Name()] = struct{}{}
	}
	return nil
}

// Fire resolves the transition for current/event, runs its actions and
// returns the target state. The table itself is never mutated.
func (t *Table) Fire(ctx context.Context, current State, event Event, data any) (State, error) {
	if event == nil {
		return nil, ErrInvalidEvent
	}
	if current == nil {
		return nil, ErrInvalidState
	}

	if _, ok := t.terminal[current.Name()]; ok {
		return current, NewErrTerminalState(current.Name(), event.Name())
	}
	tr, ok := t.transitions[current.Name()][event.Name()]
	if !ok {
		return current, NewErrNoTransitionAvailable(current.Name(), event.Name())
	}

	// Any action failure aborts the transition
	for _, action := range tr.Actions {
		if action != nil {
			if err := action(ctx, current, tr.To, event, data); err != nil {
				return current, fmt.Errorf("action failed: %w", err)
			}
		}
	}

	return tr.To, nil
}
