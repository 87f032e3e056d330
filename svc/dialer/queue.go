package dialer

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CompareQueueOrder orders leads by priority desc, then created_at asc,
// then id for a stable total order.
func CompareQueueOrder(a, b Lead) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

// LeadQueue hands out leads to this engine instance.
type LeadQueue struct {
	repo     LeadRepository
	owner    uuid.UUID
	claimTTL time.Duration
	window   CallWindow
	now      func() time.Time
}

func NewLeadQueue(repo LeadRepository, owner uuid.UUID, claimTTL time.Duration, window CallWindow, now func() time.Time) *LeadQueue {
	return &LeadQueue{repo: repo, owner: owner, claimTTL: claimTTL, window: window, now: now}
}

// NextBatch claims up to n leads. Claimed leads are invisible to other
// engines until released, dispatched or the claim goes stale. Nothing is
// claimed while the calling window is closed.
func (q *LeadQueue) NextBatch(ctx context.Context, n int) ([]Lead, error) {
	if n <= 0 {
		return nil, nil
	}
	now := q.now()
	if !q.window.Allows(now) {
		return nil, nil
	}
	leads, err := q.repo.ClaimLeads(ctx, q.owner, n, now, q.claimTTL)
	if err != nil {
		return nil, fmt.Errorf("claim leads: %w", err)
	}
	return leads, nil
}

// Release puts a claimed lead back without creating an attempt.
func (q *LeadQueue) Release(ctx context.Context, leadID uuid.UUID) error {
	if err := q.repo.ReleaseLead(ctx, leadID, q.owner); err != nil {
		return fmt.Errorf("release lead %s: %w", leadID, err)
	}
	return nil
}

func (q *LeadQueue) Pending(ctx context.Context) (int, error) {
	return q.repo.CountQueued(ctx)
}

func (q *LeadQueue) Owner() uuid.UUID { return q.owner }
