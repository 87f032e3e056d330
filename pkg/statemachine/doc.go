// Package statemachine provides a table-driven implementation of the
// finite-state-machine (FSM) pattern for entities whose current state lives
// outside the machine, usually in a database row.
//
// The package revolves around two minimal interfaces, State and Event, that
// leave the modelling of domain states and events to the caller while the
// table handles transition lookup and Action execution.
//
// # Architecture
//
// Table stores transitions in a nested map[FromState][Event]TransitionDef
// that is never written after construction. Fire receives the current
// state explicitly and returns the next one, so a single Table can serve
// every record in flight. States marked terminal reject all events with
// ErrTerminalState.
//
// # Usage
//
//	type Status string
//
//	func (s Status) Name() string { return string(s) }
//
//	table := statemachine.MustNewTable(
//	    statemachine.WithTransitions([]statemachine.TransitionDef{
//	        {From: Queued, To: Initiated, Event: Dispatch},
//	        {From: Initiated, To: Failed, Event: Fail, Actions: []statemachine.Action{recordFailure}},
//	    }),
//	    statemachine.WithTerminal(Failed),
//	)
//
//	next, err := table.Fire(ctx, Queued, Dispatch, nil)
//
// # Error Handling
//
// Fire distinguishes two rejection cases:
//
//	if statemachine.IsTerminalStateError(err)        { /* event after the end */ }
//	if statemachine.IsNoTransitionAvailableError(err) { /* not in the table */ }
package statemachine
