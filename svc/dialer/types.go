package dialer

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the lead's position in the campaign.
type LeadStatus string

const (
	LeadStatusPending       LeadStatus = "pending"
	LeadStatusCalling       LeadStatus = "calling"
	LeadStatusCalled        LeadStatus = "called"
	LeadStatusScheduled     LeadStatus = "scheduled"
	LeadStatusNotInterested LeadStatus = "not_interested"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusPending, LeadStatusCalling, LeadStatusCalled, LeadStatusScheduled, LeadStatusNotInterested:
		return true
	}
	return false
}

// Priority orders the queue; higher values are called first.
type Priority int8

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// Lead is a prospect to be called.
type Lead struct {
	ID       uuid.UUID  `json:"id"`
	Phone    string     `json:"phone"`
	Name     string     `json:"name"`
	Email    string     `json:"email,omitempty"`
	Company  string     `json:"company,omitempty"`
	Title    string     `json:"title,omitempty"`
	Industry string     `json:"industry,omitempty"`
	Priority Priority   `json:"priority"`
	Status   LeadStatus `json:"status"`

	// NextAttempt is the attempt number reserved for the next dispatch.
	// Zero means the lead is not in the queue.
	NextAttempt int `json:"next_attempt"`
	// NotBefore delays a requeued lead until the retry delay has passed.
	NotBefore *time.Time `json:"not_before,omitempty"`

	ClaimedBy *uuid.UUID `json:"-"`
	ClaimedAt *time.Time `json:"-"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastCalledAt *time.Time `json:"last_called_at,omitempty"`
}

// Queued reports whether the lead is part of the derived queue view,
// ignoring claims and the retry delay.
func (l Lead) Queued() bool {
	return l.NextAttempt > 0 && (l.Status == LeadStatusPending || l.Status == LeadStatusCalled)
}

// Claimable reports whether NextBatch may hand the lead out at now.
func (l Lead) Claimable(now time.Time, claimTTL time.Duration) bool {
	if !l.Queued() {
		return false
	}
	if l.NotBefore != nil && l.NotBefore.After(now) {
		return false
	}
	if l.ClaimedAt != nil && now.Sub(*l.ClaimedAt) < claimTTL {
		return false
	}
	return true
}

// HeldBy reports whether owner still holds the claim on the lead for
// attempt number n, i.e. nothing edited the lead since it was claimed.
func (l Lead) HeldBy(owner uuid.UUID, n int) bool {
	return l.Queued() && l.NextAttempt == n && l.ClaimedBy != nil && *l.ClaimedBy == owner
}

// Context is the lead data handed to collaborators.
func (l Lead) Context() LeadContext {
	return LeadContext{
		LeadID:   l.ID,
		Name:     l.Name,
		Phone:    l.Phone,
		Email:    l.Email,
		Company:  l.Company,
		Title:    l.Title,
		Industry: l.Industry,
	}
}

// LeadContext is the subset of lead data shared with external services.
type LeadContext struct {
	LeadID   uuid.UUID `json:"lead_id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email,omitempty"`
	Company  string    `json:"company,omitempty"`
	Title    string    `json:"title,omitempty"`
	Industry string    `json:"industry,omitempty"`
}

// LeadPatch carries explicit CRUD edits; nil fields are left unchanged.
type LeadPatch struct {
	Name     *string     `json:"name,omitempty"`
	Email    *string     `json:"email,omitempty"`
	Company  *string     `json:"company,omitempty"`
	Title    *string     `json:"title,omitempty"`
	Industry *string     `json:"industry,omitempty"`
	Priority *Priority   `json:"priority,omitempty"`
	Status   *LeadStatus `json:"status,omitempty"`
	// CallAt requeues the lead for a call at that time, or as soon as
	// possible when zero. Set through Engine.ScheduleCall.
	CallAt *time.Time `json:"-"`
}

// Apply copies the set fields onto lead. A status edit back into the queue
// reserves attempt lastAttempt+1; any other status takes the lead out of
// the queue. CallAt puts the lead back into the queue whatever its status.
// Status and CallAt edits drop the claim.
func (p LeadPatch) Apply(lead *Lead, lastAttempt int) {
	if p.Name != nil {
		lead.Name = *p.Name
	}
	if p.Email != nil {
		lead.Email = *p.Email
	}
	if p.Company != nil {
		lead.Company = *p.Company
	}
	if p.Title != nil {
		lead.Title = *p.Title
	}
	if p.Industry != nil {
		lead.Industry = *p.Industry
	}
	if p.Priority != nil {
		lead.Priority = *p.Priority
	}
	if p.Status == nil && p.CallAt == nil {
		return
	}
	if p.Status != nil {
		lead.Status = *p.Status
		switch lead.Status {
		case LeadStatusPending, LeadStatusCalled:
			if lead.NextAttempt == 0 {
				lead.NextAttempt = lastAttempt + 1
			}
		default:
			lead.NextAttempt = 0
			lead.NotBefore = nil
		}
	}
	if p.CallAt != nil {
		if !lead.Queued() {
			lead.Status = LeadStatusPending
			lead.NextAttempt = lastAttempt + 1
		}
		lead.NotBefore = nil
		if !p.CallAt.IsZero() {
			at := *p.CallAt
			lead.NotBefore = &at
		}
	}
	lead.ClaimedBy = nil
	lead.ClaimedAt = nil
}

// LeadUpdate is the engine-owned lead write committed with a terminal attempt.
type LeadUpdate struct {
	Status       LeadStatus
	LastCalledAt time.Time
	// NextAttempt is n+1 when requeued, zero when abandoned.
	NextAttempt int
	NotBefore   *time.Time
}

// CallState is a node of the call lifecycle.
type CallState string

const (
	StateQueued         CallState = "queued"
	StateInitiated      CallState = "initiated"
	StateRinging        CallState = "ringing"
	StateAnswered       CallState = "answered"
	StateInConversation CallState = "in_conversation"
	StateCompleted      CallState = "completed"
	StateNoAnswer       CallState = "no_answer"
	StateBusy           CallState = "busy"
	StateRejected       CallState = "rejected"
	StateFailed         CallState = "failed"
)

// Name implements statemachine.State.
func (s CallState) Name() string { return string(s) }

func (s CallState) Terminal() bool {
	switch s {
	case StateCompleted, StateNoAnswer, StateBusy, StateRejected, StateFailed:
		return true
	}
	return false
}

// Connected reports whether the callee has picked up.
func (s CallState) Connected() bool {
	return s == StateAnswered || s == StateInConversation
}

// Outcome is the final classification of an attempt.
type Outcome string

const (
	OutcomeNone             Outcome = ""
	OutcomeMeetingScheduled Outcome = "meeting_scheduled"
	OutcomeAnswered         Outcome = "answered"
	OutcomeNoAnswer         Outcome = "no_answer"
	OutcomeBusy             Outcome = "busy"
	OutcomeRejected         Outcome = "rejected"
	OutcomeFailed           Outcome = "failed"
)

// CallAttempt is one placement of a call to a lead.
type CallAttempt struct {
	ID            uuid.UUID `json:"id"`
	LeadID        uuid.UUID `json:"lead_id"`
	AttemptNumber int       `json:"attempt_number"`
	Phone         string    `json:"phone"`
	State         CallState `json:"state"`
	Outcome       Outcome   `json:"outcome,omitempty"`
	CallHandle    string    `json:"call_handle,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`

	// Discarded is set when the lead is deleted mid-call; the terminal
	// transition then leaves the lead untouched and skips the retry.
	Discarded bool `json:"discarded,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`

	Artifacts
}

// Artifacts are attached after the fact and never drive state.
type Artifacts struct {
	MeetingLink  string `json:"meeting_link,omitempty"`
	RecordingURL string `json:"recording_url,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
	Summary      string `json:"summary,omitempty"`
}

// Empty reports whether no artifact field is set.
func (a Artifacts) Empty() bool {
	return a == Artifacts{}
}

func (a CallAttempt) Active() bool {
	return !a.State.Terminal()
}

// Duration is the connected time of the call. It is only defined once the
// call was answered and has ended.
func (a CallAttempt) Duration() (time.Duration, bool) {
	if a.AnsweredAt == nil || a.EndedAt == nil {
		return 0, false
	}
	d := a.EndedAt.Sub(*a.AnsweredAt)
	if d < 0 {
		d = 0
	}
	return d, true
}
