package dialer

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store for tests and single-process deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	leads    map[uuid.UUID]*Lead
	attempts map[uuid.UUID]*CallAttempt

	// Indexes
	byPhone      map[string]uuid.UUID
	byHandle     map[string]uuid.UUID
	activeByLead map[uuid.UUID]uuid.UUID
	byLead       map[uuid.UUID][]uuid.UUID
	lastAttempt  map[uuid.UUID]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:        make(map[uuid.UUID]*Lead),
		attempts:     make(map[uuid.UUID]*CallAttempt),
		byPhone:      make(map[string]uuid.UUID),
		byHandle:     make(map[string]uuid.UUID),
		activeByLead: make(map[uuid.UUID]uuid.UUID),
		byLead:       make(map[uuid.UUID][]uuid.UUID),
		lastAttempt:  make(map[uuid.UUID]int),
	}
}

func (ms *MemoryStore) CreateLead(_ context.Context, lead *Lead) error {
	if lead == nil {
		return ErrInvalidLead
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.byPhone[lead.Phone]; exists {
		return ErrDuplicateLead
	}
	if _, exists := ms.leads[lead.ID]; exists {
		return ErrDuplicateLead
	}

	// Clone to prevent external modifications
	leadCopy := *lead
	ms.leads[lead.ID] = &leadCopy
	ms.byPhone[lead.Phone] = lead.ID
	return nil
}

func (ms *MemoryStore) GetLead(_ context.Context, id uuid.UUID) (*Lead, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	lead, ok := ms.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	leadCopy := *lead
	return &leadCopy, nil
}

func (ms *MemoryStore) UpdateLead(_ context.Context, id uuid.UUID, patch LeadPatch, now time.Time) (*Lead, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	lead, ok := ms.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	if _, busy := ms.activeByLead[id]; busy {
		return nil, ErrLeadBusy
	}

	patch.Apply(lead, ms.lastAttempt[id])
	lead.UpdatedAt = now

	leadCopy := *lead
	return &leadCopy, nil
}

func (ms *MemoryStore) DeleteLead(_ context.Context, id uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	lead, ok := ms.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	if attemptID, active := ms.activeByLead[id]; active {
		ms.attempts[attemptID].Discarded = true
	}
	delete(ms.byPhone, lead.Phone)
	delete(ms.leads, id)
	return nil
}

// ClaimLeads implements the queue claim with the same priority-first,
// oldest-first selection as a SQL ORDER BY.
func (ms *MemoryStore) ClaimLeads(_ context.Context, owner uuid.UUID, n int, now time.Time, claimTTL time.Duration) ([]Lead, error) {
	if n <= 0 {
		return nil, nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	candidates := make([]*Lead, 0, n)
	for id, lead := range ms.leads {
		if _, active := ms.activeByLead[id]; active {
			continue
		}
		if !lead.Claimable(now, claimTTL) {
			continue
		}
		candidates = append(candidates, lead)
	}

	slices.SortFunc(candidates, func(a, b *Lead) int { return CompareQueueOrder(*a, *b) })
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	claimed := make([]Lead, 0, len(candidates))
	for _, lead := range candidates {
		claimedAt := now
		claimedBy := owner
		lead.ClaimedAt = &claimedAt
		lead.ClaimedBy = &claimedBy
		claimed = append(claimed, *lead)
	}
	return claimed, nil
}

func (ms *MemoryStore) ReleaseLead(_ context.Context, id, owner uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	lead, ok := ms.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	if lead.ClaimedBy != nil && *lead.ClaimedBy == owner {
		lead.ClaimedBy = nil
		lead.ClaimedAt = nil
	}
	return nil
}

func (ms *MemoryStore) CountQueued(_ context.Context) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	n := 0
	for id, lead := range ms.leads {
		if _, active := ms.activeByLead[id]; active {
			continue
		}
		if lead.Queued() {
			n++
		}
	}
	return n, nil
}

func (ms *MemoryStore) ListQueued(_ context.Context) ([]Lead, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]Lead, 0)
	for id, lead := range ms.leads {
		if _, active := ms.activeByLead[id]; active {
			continue
		}
		if lead.Queued() {
			out = append(out, *lead)
		}
	}
	slices.SortFunc(out, CompareQueueOrder)
	return out, nil
}

func (ms *MemoryStore) CreateAttempt(_ context.Context, owner uuid.UUID, a *CallAttempt) error {
	if a == nil {
		return ErrAttemptNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	lead, ok := ms.leads[a.LeadID]
	if !ok {
		return ErrLeadNotFound
	}
	if _, active := ms.activeByLead[a.LeadID]; active {
		return ErrActiveAttemptExists
	}
	if a.AttemptNumber <= ms.lastAttempt[a.LeadID] {
		return ErrAttemptNumber
	}
	if !lead.HeldBy(owner, a.AttemptNumber) {
		return ErrLeadNotClaimable
	}

	attemptCopy := *a
	ms.attempts[a.ID] = &attemptCopy
	ms.activeByLead[a.LeadID] = a.ID
	ms.byLead[a.LeadID] = append(ms.byLead[a.LeadID], a.ID)
	ms.lastAttempt[a.LeadID] = a.AttemptNumber
	if a.CallHandle != "" {
		ms.byHandle[a.CallHandle] = a.ID
	}

	lead.Status = LeadStatusCalling
	lead.NextAttempt = 0
	lead.NotBefore = nil
	lead.ClaimedBy = nil
	lead.ClaimedAt = nil
	lead.UpdatedAt = a.CreatedAt
	return nil
}

func (ms *MemoryStore) GetAttempt(_ context.Context, id uuid.UUID) (*CallAttempt, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	a, ok := ms.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	attemptCopy := *a
	return &attemptCopy, nil
}

func (ms *MemoryStore) GetAttemptByHandle(_ context.Context, handle string) (*CallAttempt, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	id, ok := ms.byHandle[handle]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	attemptCopy := *ms.attempts[id]
	return &attemptCopy, nil
}

func (ms *MemoryStore) UpdateAttempt(_ context.Context, a *CallAttempt) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, ok := ms.attempts[a.ID]
	if !ok {
		return ErrAttemptNotFound
	}
	ms.mergeAttempt(stored, a)
	if !stored.Active() {
		ms.deactivate(stored)
	}
	return nil
}

func (ms *MemoryStore) CompleteAttempt(_ context.Context, a *CallAttempt, update LeadUpdate) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, ok := ms.attempts[a.ID]
	if !ok {
		return ErrAttemptNotFound
	}
	if !stored.Active() {
		return ErrAttemptNotActive
	}
	ms.mergeAttempt(stored, a)
	ms.deactivate(stored)
	a.Discarded = stored.Discarded

	if stored.Discarded {
		return nil
	}
	lead, ok := ms.leads[stored.LeadID]
	if !ok {
		return nil
	}
	lastCalled := update.LastCalledAt
	lead.Status = update.Status
	lead.LastCalledAt = &lastCalled
	lead.NextAttempt = update.NextAttempt
	lead.NotBefore = update.NotBefore
	lead.UpdatedAt = update.LastCalledAt
	return nil
}

func (ms *MemoryStore) SetArtifacts(_ context.Context, id uuid.UUID, artifacts Artifacts) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, ok := ms.attempts[id]
	if !ok {
		return ErrAttemptNotFound
	}
	mergeArtifacts(&stored.Artifacts, artifacts)
	return nil
}

func (ms *MemoryStore) ListActiveAttempts(_ context.Context) ([]CallAttempt, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]CallAttempt, 0, len(ms.activeByLead))
	for _, id := range ms.activeByLead {
		out = append(out, *ms.attempts[id])
	}
	slices.SortFunc(out, func(a, b CallAttempt) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (ms *MemoryStore) ListAttemptsByLead(_ context.Context, leadID uuid.UUID) ([]CallAttempt, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	ids := ms.byLead[leadID]
	out := make([]CallAttempt, 0, len(ids))
	for _, id := range ids {
		out = append(out, *ms.attempts[id])
	}
	return out, nil
}

func (ms *MemoryStore) ListAttemptsSince(_ context.Context, since time.Time) ([]CallAttempt, error) {
	return ms.listAttempts(func(a *CallAttempt) bool { return !a.CreatedAt.Before(since) }), nil
}

func (ms *MemoryStore) ListUnbookedMeetings(_ context.Context, since time.Time) ([]CallAttempt, error) {
	return ms.listAttempts(func(a *CallAttempt) bool {
		return a.Outcome == OutcomeMeetingScheduled && !a.Active() && !a.Discarded &&
			a.MeetingLink == "" && a.EndedAt != nil && !a.EndedAt.Before(since)
	}), nil
}

// listAttempts returns copies of the attempts matching keep, oldest first.
func (ms *MemoryStore) listAttempts(keep func(*CallAttempt) bool) []CallAttempt {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]CallAttempt, 0)
	for _, a := range ms.attempts {
		if keep(a) {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b CallAttempt) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return a.AttemptNumber - b.AttemptNumber
	})
	return out
}

// mergeAttempt copies lifecycle fields from src and merges artifacts.
// The discarded flag is owned by DeleteLead and never copied.
func (ms *MemoryStore) mergeAttempt(dst, src *CallAttempt) {
	if src.CallHandle != "" && dst.CallHandle == "" {
		dst.CallHandle = src.CallHandle
		ms.byHandle[src.CallHandle] = dst.ID
	}
	dst.State = src.State
	dst.Outcome = src.Outcome
	dst.FailureReason = src.FailureReason
	dst.StartedAt = src.StartedAt
	dst.AnsweredAt = src.AnsweredAt
	dst.EndedAt = src.EndedAt
	dst.UpdatedAt = src.UpdatedAt
	mergeArtifacts(&dst.Artifacts, src.Artifacts)
}

func (ms *MemoryStore) deactivate(a *CallAttempt) {
	if ms.activeByLead[a.LeadID] == a.ID {
		delete(ms.activeByLead, a.LeadID)
	}
}

func mergeArtifacts(dst *Artifacts, src Artifacts) {
	if src.MeetingLink != "" {
		dst.MeetingLink = src.MeetingLink
	}
	if src.RecordingURL != "" {
		dst.RecordingURL = src.RecordingURL
	}
	if src.Transcript != "" {
		dst.Transcript = src.Transcript
	}
	if src.Summary != "" {
		dst.Summary = src.Summary
	}
}
