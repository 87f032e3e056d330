package dialer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlaceCallRequest asks the telephony provider to dial a lead.
type PlaceCallRequest struct {
	AttemptID uuid.UUID
	LeadID    uuid.UUID
	Phone     string
	// RingTimeout bounds how long the provider lets the phone ring.
	RingTimeout time.Duration
}

// Telephony places outbound calls. Progress arrives later as events keyed
// by the returned call handle.
type Telephony interface {
	PlaceCall(ctx context.Context, req PlaceCallRequest) (string, error)
}

// ConversationRequest hands an answered call to the conversation service.
type ConversationRequest struct {
	AttemptID  uuid.UUID
	CallHandle string
	Lead       LeadContext
}

// Conversation runs the dialogue. Its final report arrives later as an event.
type Conversation interface {
	StartConversation(ctx context.Context, req ConversationRequest) error
}

// MeetingRequest books a meeting for a lead. Implementations must pass
// IdempotencyKey to the remote service.
type MeetingRequest struct {
	IdempotencyKey string
	AttemptID      uuid.UUID
	Lead           LeadContext
}

// MeetingScheduler issues meeting links.
type MeetingScheduler interface {
	ScheduleMeeting(ctx context.Context, req MeetingRequest) (string, error)
}

// Notifier tells people about a booked meeting. Best-effort.
type Notifier interface {
	MeetingScheduled(ctx context.Context, lead LeadContext, meetingLink string) error
}

// OutcomeEvent is published for every committed terminal attempt.
type OutcomeEvent struct {
	AttemptID     uuid.UUID  `json:"attempt_id"`
	LeadID        uuid.UUID  `json:"lead_id"`
	AttemptNumber int        `json:"attempt_number"`
	State         CallState  `json:"state"`
	Outcome       Outcome    `json:"outcome"`
	Action        Action     `json:"action"`
	LeadStatus    LeadStatus `json:"lead_status,omitempty"`
	Discarded     bool       `json:"discarded,omitempty"`
	DurationSec   *float64   `json:"duration_seconds,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	MeetingLink   string     `json:"meeting_link,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// OutcomeSink receives outcome events. Best-effort.
type OutcomeSink interface {
	Publish(ctx context.Context, ev OutcomeEvent) error
}
