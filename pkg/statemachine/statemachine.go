package statemachine

import "context"

// State is anything with a stable name, typically a string enum.
type State interface {
	Name() string
}

// Event triggers transitions; it is matched by Name.
type Event interface {
	Name() string
}

// Action runs while a transition fires. An error aborts the transition and
// the current state is kept.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Resolver computes the next state for an externally held current state.
// It keeps no per-entity state, so one definition drives any number of
// independent entities concurrently.
type Resolver interface {
	Fire(ctx context.Context, current State, event Event, data any) (State, error)
}
