package dialer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeadRepository holds leads and the derived queue view.
type LeadRepository interface {
	// CreateLead inserts a lead; ErrDuplicateLead when the phone is taken.
	CreateLead(ctx context.Context, lead *Lead) error
	GetLead(ctx context.Context, id uuid.UUID) (*Lead, error)
	// UpdateLead applies CRUD edits; ErrLeadBusy while an attempt is active.
	UpdateLead(ctx context.Context, id uuid.UUID, patch LeadPatch, now time.Time) (*Lead, error)
	// DeleteLead removes the lead and marks its active attempt discarded.
	DeleteLead(ctx context.Context, id uuid.UUID) error

	// ClaimLeads atomically claims up to n claimable leads for owner,
	// ordered by priority desc then created_at asc.
	ClaimLeads(ctx context.Context, owner uuid.UUID, n int, now time.Time, claimTTL time.Duration) ([]Lead, error)
	// ReleaseLead drops owner's claim; other owners' claims are untouched.
	ReleaseLead(ctx context.Context, id, owner uuid.UUID) error
	// CountQueued counts leads in the queue view regardless of claims and delays.
	CountQueued(ctx context.Context) (int, error)
	// ListQueued returns the queue view in queue order, regardless of
	// claims and delays.
	ListQueued(ctx context.Context) ([]Lead, error)
}

// AttemptRepository holds call attempts.
type AttemptRepository interface {
	// CreateAttempt inserts a queued attempt, flips the lead to calling and
	// clears its claim in one step. ErrActiveAttemptExists guards the
	// one-active-attempt-per-lead invariant; ErrLeadNotClaimable is returned
	// when owner no longer holds the claim for a.AttemptNumber because a
	// CRUD edit or another engine got there first.
	CreateAttempt(ctx context.Context, owner uuid.UUID, a *CallAttempt) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*CallAttempt, error)
	GetAttemptByHandle(ctx context.Context, handle string) (*CallAttempt, error)
	// UpdateAttempt persists a non-terminal step or an annotation. It never
	// clears artifacts or the discarded flag.
	UpdateAttempt(ctx context.Context, a *CallAttempt) error
	// CompleteAttempt persists a terminal attempt and, unless the attempt
	// was discarded or the lead is gone, applies update to the lead.
	// a.Discarded is refreshed from the stored record. ErrAttemptNotActive
	// when the attempt already ended.
	CompleteAttempt(ctx context.Context, a *CallAttempt, update LeadUpdate) error
	SetArtifacts(ctx context.Context, id uuid.UUID, artifacts Artifacts) error
	ListActiveAttempts(ctx context.Context) ([]CallAttempt, error)
	ListAttemptsByLead(ctx context.Context, leadID uuid.UUID) ([]CallAttempt, error)
	// ListAttemptsSince lists attempts created at or after since, oldest first.
	ListAttemptsSince(ctx context.Context, since time.Time) ([]CallAttempt, error)
	// ListUnbookedMeetings lists non-discarded attempts that ended with a
	// booked meeting at or after since but carry no meeting link.
	ListUnbookedMeetings(ctx context.Context, since time.Time) ([]CallAttempt, error)
}

// Store is the durable record of leads and attempts.
type Store interface {
	LeadRepository
	AttemptRepository
}

// IdempotencyStore grants a key to exactly one caller until ttl expires
// or the holder releases it.
type IdempotencyStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
