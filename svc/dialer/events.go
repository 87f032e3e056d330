package dialer

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names an input to the call lifecycle.
type EventKind string

const (
	// EventDispatch starts a queued attempt and places the call.
	EventDispatch EventKind = "dispatch"
	// EventPlacementFailed reports that PlaceCall returned an error.
	EventPlacementFailed EventKind = "placement_failed"

	EventRinging        EventKind = "ringing"
	EventAnswered       EventKind = "answered"
	EventNoAnswer       EventKind = "no_answer"
	EventBusy           EventKind = "busy"
	EventProviderFailed EventKind = "provider_failed"
	// EventHangup is the provider's end-of-call notice. Once the callee has
	// answered, the conversation report decides the outcome instead.
	EventHangup EventKind = "hangup"

	EventConversationStarted   EventKind = "conversation_started"
	EventConversationCompleted EventKind = "conversation_completed"
	EventConversationRejected  EventKind = "conversation_rejected"
	EventConversationFailed    EventKind = "conversation_failed"

	// EventTimeout is raised by the watchdog.
	EventTimeout EventKind = "timeout"

	// EventHandleAssigned binds the provider call id to the attempt. It
	// annotates the record and never moves the state.
	EventHandleAssigned EventKind = "handle_assigned"
)

// Name implements statemachine.Event.
func (k EventKind) Name() string { return string(k) }

func (k EventKind) Valid() bool {
	switch k {
	case EventDispatch, EventPlacementFailed, EventRinging, EventAnswered, EventNoAnswer,
		EventBusy, EventProviderFailed, EventHangup, EventConversationStarted,
		EventConversationCompleted, EventConversationRejected, EventConversationFailed,
		EventTimeout, EventHandleAssigned:
		return true
	}
	return false
}

// Event is a typed lifecycle input. Provider callbacks may only know the
// call handle; engine-internal events always carry the attempt id.
type Event struct {
	Kind       EventKind
	AttemptID  uuid.UUID
	CallHandle string
	At         time.Time

	// Booked marks a completed conversation that ended with a meeting.
	Booked bool
	Reason string

	Artifacts Artifacts
}

// TimeoutReason values recorded as FailureReason on watchdog failures.
const (
	ReasonSetupTimeout = "call_setup_timeout"
	ReasonMaxDuration  = "max_call_duration"
)
