package dialer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/coldcall/pkg/statemachine"
)

// Effect is a side effect requested by a transition. The lifecycle only
// names effects; the engine performs them.
type Effect string

const (
	EffectPlaceCall         Effect = "place_call"
	EffectStartConversation Effect = "start_conversation"
)

// IgnoreReason explains why an event left the attempt unchanged.
type IgnoreReason string

const (
	IgnoredNone       IgnoreReason = ""
	IgnoredTerminal   IgnoreReason = "terminal"
	IgnoredOutOfOrder IgnoreReason = "out_of_order"
)

// Step is the result of applying one event to one attempt.
type Step struct {
	Attempt CallAttempt
	From    CallState
	// Changed is true when the state moved.
	Changed bool
	// Annotated is true when artifacts or the call handle were merged.
	Annotated bool
	Ignored   IgnoreReason
	Effects   []Effect
	// FollowUps are events the engine applies immediately after this one.
	FollowUps []Event
}

// Dirty reports whether the attempt must be persisted.
func (s Step) Dirty() bool { return s.Changed || s.Annotated }

// Terminal reports whether this step ended the attempt.
func (s Step) Terminal() bool { return s.Changed && s.Attempt.State.Terminal() }

type stepData struct {
	attempt   *CallAttempt
	event     Event
	now       time.Time
	effects   []Effect
	followUps []Event
}

// Lifecycle is the pure call state machine.
type Lifecycle struct {
	table statemachine.Resolver
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{table: callTable()}
}

// Apply computes the attempt after ev. It performs no I/O. Events the
// table does not allow from the current state, and any event after a
// terminal state, yield an unchanged attempt and a nil error.
func (l *Lifecycle) Apply(ctx context.Context, a CallAttempt, ev Event, now time.Time) (Step, error) {
	next := a
	step := Step{From: a.State}

	step.Annotated = annotate(&next, ev)
	if ev.Kind == EventHandleAssigned {
		if step.Annotated {
			next.UpdatedAt = now
		}
		step.Attempt = next
		return step, nil
	}

	data := &stepData{attempt: &next, event: ev, now: now}
	to, err := l.table.Fire(ctx, a.State, ev.Kind, data)
	switch {
	case err == nil:
	case statemachine.IsTerminalStateError(err):
		step.Ignored = IgnoredTerminal
	case statemachine.IsNoTransitionAvailableError(err):
		step.Ignored = IgnoredOutOfOrder
	default:
		return Step{Attempt: a, From: a.State}, fmt.Errorf("apply %s to %s: %w", ev.Kind, a.State, err)
	}

	if step.Ignored == IgnoredNone {
		state, ok := to.(CallState)
		if !ok {
			return Step{Attempt: a, From: a.State}, fmt.Errorf("apply %s: unexpected state type %T", ev.Kind, to)
		}
		next.State = state
		step.Changed = true
		step.Effects = data.effects
		step.FollowUps = data.followUps
	}
	if step.Dirty() {
		next.UpdatedAt = now
	}
	step.Attempt = next
	return step, nil
}

// annotate merges post-hoc data carried by ev. It never clears a field.
func annotate(a *CallAttempt, ev Event) bool {
	changed := false
	if ev.CallHandle != "" && a.CallHandle == "" {
		a.CallHandle = ev.CallHandle
		changed = true
	}
	set := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&a.RecordingURL, ev.Artifacts.RecordingURL)
	set(&a.Transcript, ev.Artifacts.Transcript)
	set(&a.Summary, ev.Artifacts.Summary)
	set(&a.MeetingLink, ev.Artifacts.MeetingLink)
	return changed
}

func callTable() *statemachine.Table {
	to := func(from CallState, ev EventKind, target CallState, actions ...statemachine.Action) statemachine.TransitionDef {
		return statemachine.TransitionDef{From: from, To: target, Event: ev, Actions: actions}
	}

	defs := []statemachine.TransitionDef{
		to(StateQueued, EventDispatch, StateInitiated, markStarted, effect(EffectPlaceCall)),
		to(StateQueued, EventTimeout, StateFailed, finish(OutcomeFailed)),

		to(StateInitiated, EventPlacementFailed, StateFailed, finish(OutcomeFailed)),
		to(StateInitiated, EventRinging, StateRinging),
		to(StateInitiated, EventAnswered, StateAnswered, markAnswered),
		to(StateInitiated, EventNoAnswer, StateNoAnswer, finish(OutcomeNoAnswer)),
		to(StateInitiated, EventHangup, StateNoAnswer, finish(OutcomeNoAnswer)),
		to(StateInitiated, EventBusy, StateBusy, finish(OutcomeBusy)),
		to(StateInitiated, EventProviderFailed, StateFailed, finish(OutcomeFailed)),
		to(StateInitiated, EventTimeout, StateFailed, finish(OutcomeFailed)),

		to(StateRinging, EventAnswered, StateAnswered, markAnswered),
		to(StateRinging, EventNoAnswer, StateNoAnswer, finish(OutcomeNoAnswer)),
		to(StateRinging, EventHangup, StateNoAnswer, finish(OutcomeNoAnswer)),
		to(StateRinging, EventBusy, StateBusy, finish(OutcomeBusy)),
		to(StateRinging, EventProviderFailed, StateFailed, finish(OutcomeFailed)),
		to(StateRinging, EventTimeout, StateFailed, finish(OutcomeFailed)),

		to(StateAnswered, EventConversationStarted, StateInConversation, effect(EffectStartConversation)),
		to(StateAnswered, EventConversationRejected, StateRejected, finish(OutcomeRejected)),
		to(StateAnswered, EventConversationFailed, StateFailed, finish(OutcomeFailed)),
		to(StateAnswered, EventProviderFailed, StateFailed, finish(OutcomeFailed)),
		to(StateAnswered, EventTimeout, StateFailed, finish(OutcomeFailed)),

		to(StateInConversation, EventConversationCompleted, StateCompleted, finishConversation),
		to(StateInConversation, EventConversationRejected, StateRejected, finish(OutcomeRejected)),
		to(StateInConversation, EventConversationFailed, StateFailed, finish(OutcomeFailed)),
		to(StateInConversation, EventProviderFailed, StateFailed, finish(OutcomeFailed)),
		to(StateInConversation, EventTimeout, StateFailed, finish(OutcomeFailed)),
	}

	return statemachine.MustNewTable(
		statemachine.WithTransitions(defs),
		statemachine.WithTerminal(StateCompleted, StateNoAnswer, StateBusy, StateRejected, StateFailed),
	)
}

func stepOf(data any) *stepData {
	d, ok := data.(*stepData)
	if !ok {
		panic(fmt.Sprintf("dialer: lifecycle action got %T", data))
	}
	return d
}

func markStarted(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	d := stepOf(data)
	now := d.now
	d.attempt.StartedAt = &now
	return nil
}

// markAnswered records the pickup and immediately hands the call to the
// conversation service.
func markAnswered(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	d := stepOf(data)
	now := d.now
	d.attempt.AnsweredAt = &now
	d.followUps = append(d.followUps, Event{
		Kind:      EventConversationStarted,
		AttemptID: d.attempt.ID,
		At:        now,
	})
	return nil
}

func effect(e Effect) statemachine.Action {
	return func(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
		d := stepOf(data)
		d.effects = append(d.effects, e)
		return nil
	}
}

func finish(outcome Outcome) statemachine.Action {
	return func(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
		d := stepOf(data)
		end(d, outcome)
		return nil
	}
}

func finishConversation(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	d := stepOf(data)
	if d.event.Booked {
		end(d, OutcomeMeetingScheduled)
	} else {
		end(d, OutcomeAnswered)
	}
	return nil
}

func end(d *stepData, outcome Outcome) {
	now := d.now
	d.attempt.EndedAt = &now
	d.attempt.Outcome = outcome
	if d.event.Reason != "" {
		d.attempt.FailureReason = d.event.Reason
	}
}
