package dialer_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coldcall/svc/dialer"
)

func newLead(phone string, priority dialer.Priority, created time.Time) *dialer.Lead {
	return &dialer.Lead{
		ID:          uuid.New(),
		Phone:       phone,
		Name:        "Lead " + phone,
		Priority:    priority,
		Status:      dialer.LeadStatusPending,
		NextAttempt: 1,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func attemptFor(lead *dialer.Lead, n int, created time.Time) *dialer.CallAttempt {
	return &dialer.CallAttempt{
		ID:            uuid.New(),
		LeadID:        lead.ID,
		AttemptNumber: n,
		Phone:         lead.Phone,
		State:         dialer.StateQueued,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

var testOwner = uuid.New()

// startAttempt claims the lead for testOwner and creates a on it.
func startAttempt(t *testing.T, s dialer.Store, a *dialer.CallAttempt, now time.Time) {
	t.Helper()
	ctx := context.Background()

	claimed, err := s.ClaimLeads(ctx, testOwner, 100, now, time.Minute)
	require.NoError(t, err)
	require.True(t, slices.ContainsFunc(claimed, func(l dialer.Lead) bool { return l.ID == a.LeadID }),
		"lead %s is not claimable", a.LeadID)
	require.NoError(t, s.CreateAttempt(ctx, testOwner, a))
}

func TestMemoryStore_CreateLead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := dialer.NewMemoryStore()

	lead := newLead("+14155550100", dialer.PriorityLow, t0)
	require.NoError(t, s.CreateLead(ctx, lead))

	dup := newLead("+14155550100", dialer.PriorityHigh, t0)
	assert.ErrorIs(t, s.CreateLead(ctx, dup), dialer.ErrDuplicateLead)

	got, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.Phone, got.Phone)

	got.Name = "mutated"
	again, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Name, "store must return copies")

	_, err = s.GetLead(ctx, uuid.New())
	assert.ErrorIs(t, err, dialer.ErrLeadNotFound)
}

func TestMemoryStore_ClaimOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := dialer.NewMemoryStore()
	owner := uuid.New()

	oldLow := newLead("+1000000001", dialer.PriorityLow, t0)
	newHigh := newLead("+1000000002", dialer.PriorityHigh, t0.Add(time.Hour))
	oldHigh := newLead("+1000000003", dialer.PriorityHigh, t0)
	urgent := newLead("+1000000004", dialer.PriorityUrgent, t0.Add(2*time.Hour))
	for _, l := range []*dialer.Lead{oldLow, newHigh, oldHigh, urgent} {
		require.NoError(t, s.CreateLead(ctx, l))
	}

	now := t0.Add(3 * time.Hour)
	claimed, err := s.ClaimLeads(ctx, owner, 3, now, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	assert.Equal(t, urgent.ID, claimed[0].ID)
	assert.Equal(t, oldHigh.ID, claimed[1].ID)
	assert.Equal(t, newHigh.ID, claimed[2].ID)

	t.Run("claimed leads are invisible until the claim goes stale", func(t *testing.T) {
		rest, err := s.ClaimLeads(ctx, uuid.New(), 10, now, time.Minute)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, oldLow.ID, rest[0].ID)

		stale, err := s.ClaimLeads(ctx, uuid.New(), 10, now.Add(2*time.Minute), time.Minute)
		require.NoError(t, err)
		assert.Len(t, stale, 4)
	})

	t.Run("release by another owner is ignored", func(t *testing.T) {
		require.NoError(t, s.ReleaseLead(ctx, urgent.ID, owner))
		got, err := s.GetLead(ctx, urgent.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.ClaimedBy, "claim was taken over by the stale claimer")
	})

	n, err := s.CountQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "claims do not hide leads from the pending count")
}

func TestMemoryStore_ClaimRespectsNotBefore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := dialer.NewMemoryStore()

	lead := newLead("+14155550100", dialer.PriorityLow, t0)
	lead.NotBefore = at(10 * time.Minute)
	require.NoError(t, s.CreateLead(ctx, lead))

	claimed, err := s.ClaimLeads(ctx, uuid.New(), 1, t0.Add(5*time.Minute), time.Minute)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	claimed, err = s.ClaimLeads(ctx, uuid.New(), 1, t0.Add(10*time.Minute), time.Minute)
	require.NoError(t, err)
	assert.Len(t, claimed, 1)
}

func TestMemoryStore_AttemptInvariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := dialer.NewMemoryStore()
	lead := newLead("+14155550100", dialer.PriorityLow, t0)
	require.NoError(t, s.CreateLead(ctx, lead))

	first := attemptFor(lead, 1, t0)
	startAttempt(t, s, first, t0)

	got, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, dialer.LeadStatusCalling, got.Status)
	assert.Zero(t, got.NextAttempt)
	assert.False(t, got.Queued())

	assert.ErrorIs(t, s.CreateAttempt(ctx, testOwner, attemptFor(lead, 2, t0)), dialer.ErrActiveAttemptExists)

	_, err = s.UpdateLead(ctx, lead.ID, dialer.LeadPatch{Name: ptr("New")}, t0)
	assert.ErrorIs(t, err, dialer.ErrLeadBusy)

	first.State = dialer.StateBusy
	first.Outcome = dialer.OutcomeBusy
	first.EndedAt = at(time.Minute)
	require.NoError(t, s.CompleteAttempt(ctx, first, dialer.LeadUpdate{
		Status:       dialer.LeadStatusCalled,
		LastCalledAt: t0.Add(time.Minute),
		NextAttempt:  2,
	}))

	assert.ErrorIs(t, s.CompleteAttempt(ctx, first, dialer.LeadUpdate{}), dialer.ErrAttemptNotActive)
	assert.ErrorIs(t, s.CreateAttempt(ctx, testOwner, attemptFor(lead, 1, t0)), dialer.ErrAttemptNumber)
	startAttempt(t, s, attemptFor(lead, 2, t0.Add(2*time.Minute)), t0.Add(2*time.Minute))

	history, err := s.ListAttemptsByLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].AttemptNumber)
	assert.Equal(t, 2, history[1].AttemptNumber)

	active, err := s.ListActiveAttempts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].AttemptNumber)
}

func TestMemoryStore_CompleteAppliesLeadUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := dialer.NewMemoryStore()
	lead := newLead("+14155550100", dialer.PriorityLow, t0)
	require.NoError(t, s.CreateLead(ctx, lead))
	a := attemptFor(lead, 1, t0)
	startAttempt(t, s, a, t0)

	a.State = dialer.StateNoAnswer
	a.Outcome = dialer.OutcomeNoAnswer
	notBefore := t0.Add(time.Hour)
	require.NoError(t, s.CompleteAttempt(ctx, a, dialer.LeadUpdate{
		Status:       dialer.LeadStatusCalled,
		LastCalledAt: t0.Add(time.Minute),
		NextAttempt:  2,
		NotBefore:    &notBefore,
	}))

	got, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, dialer.LeadStatusCalled, got.Status)
	assert.Equal(t, 2, got.NextAttempt)
	assert.Equal(t, notBefore, *got.NotBefore)
	require.NotNil(t, got.LastCalledAt)
	assert.Equal(t, t0.Add(time.Minute), *got.LastCalledAt)
	assert.True(t, got.Queued())

	active, err := s.ListActiveAttempts(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMemoryStore_DeleteDuringCall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := dialer.NewMemoryStore()
	lead := newLead("+14155550100", dialer.PriorityLow, t0)
	require.NoError(t, s.CreateLead(ctx, lead))
	a := attemptFor(lead, 1, t0)
	startAttempt(t, s, a, t0)

	require.NoError(t, s.DeleteLead(ctx, lead.ID))
	assert.ErrorIs(t, s.DeleteLead(ctx, lead.ID), dialer.ErrLeadNotFound)

	a.State = dialer.StateCompleted
	a.Outcome = dialer.OutcomeMeetingScheduled
	require.NoError(t, s.CompleteAttempt(ctx, a, dialer.LeadUpdate{Status: dialer.LeadStatusScheduled}))
	assert.True(t, a.Discarded, "complete reports the stored discarded flag")

	_, err := s.GetLead(ctx, lead.ID)
	assert.ErrorIs(t, err, dialer.ErrLeadNotFound, "lead must not be resurrected")

	history, err := s.ListAttemptsByLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Discarded)

	t.Run("phone is free again", func(t *testing.T) {
		assert.NoError(t, s.CreateLead(ctx, newLead("+14155550100", dialer.PriorityLow, t0)))
	})
}

func TestMemoryStore_MergeNeverClears(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := dialer.NewMemoryStore()
	lead := newLead("+14155550100", dialer.PriorityLow, t0)
	require.NoError(t, s.CreateLead(ctx, lead))
	a := attemptFor(lead, 1, t0)
	startAttempt(t, s, a, t0)

	require.NoError(t, s.SetArtifacts(ctx, a.ID, dialer.Artifacts{MeetingLink: "https://meet.example.com/x"}))

	a.State = dialer.StateInitiated
	a.CallHandle = "CA1"
	require.NoError(t, s.UpdateAttempt(ctx, a))

	got, err := s.GetAttemptByHandle(ctx, "CA1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "https://meet.example.com/x", got.MeetingLink)
	assert.Equal(t, dialer.StateInitiated, got.State)

	_, err = s.GetAttemptByHandle(ctx, "CA2")
	assert.ErrorIs(t, err, dialer.ErrAttemptNotFound)
	assert.ErrorIs(t, s.SetArtifacts(ctx, uuid.New(), dialer.Artifacts{}), dialer.ErrAttemptNotFound)
}

func TestMemoryStore_StatusPatchRequeues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := dialer.NewMemoryStore()
	lead := newLead("+14155550100", dialer.PriorityLow, t0)
	require.NoError(t, s.CreateLead(ctx, lead))
	a := attemptFor(lead, 1, t0)
	startAttempt(t, s, a, t0)
	a.State = dialer.StateRejected
	a.Outcome = dialer.OutcomeRejected
	require.NoError(t, s.CompleteAttempt(ctx, a, dialer.LeadUpdate{Status: dialer.LeadStatusNotInterested}))

	got, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.False(t, got.Queued())

	pending := dialer.LeadStatusPending
	got, err = s.UpdateLead(ctx, lead.ID, dialer.LeadPatch{Status: &pending}, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, got.Queued())
	assert.Equal(t, 2, got.NextAttempt, "manual requeue reserves the next attempt number")

	notInterested := dialer.LeadStatusNotInterested
	got, err = s.UpdateLead(ctx, lead.ID, dialer.LeadPatch{Status: &notInterested}, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, got.Queued())
}

func TestMemoryStore_CreateAttemptRequiresClaim(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("status edit between claim and create wins", func(t *testing.T) {
		t.Parallel()
		s := dialer.NewMemoryStore()
		lead := newLead("+14155550100", dialer.PriorityLow, t0)
		require.NoError(t, s.CreateLead(ctx, lead))

		claimed, err := s.ClaimLeads(ctx, testOwner, 1, t0, time.Minute)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		notInterested := dialer.LeadStatusNotInterested
		_, err = s.UpdateLead(ctx, lead.ID, dialer.LeadPatch{Status: &notInterested}, t0)
		require.NoError(t, err)

		err = s.CreateAttempt(ctx, testOwner, attemptFor(lead, claimed[0].NextAttempt, t0))
		assert.ErrorIs(t, err, dialer.ErrLeadNotClaimable)

		got, err := s.GetLead(ctx, lead.ID)
		require.NoError(t, err)
		assert.Equal(t, dialer.LeadStatusNotInterested, got.Status)
		history, err := s.ListAttemptsByLead(ctx, lead.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("requeue edit drops the claim", func(t *testing.T) {
		t.Parallel()
		s := dialer.NewMemoryStore()
		lead := newLead("+14155550100", dialer.PriorityLow, t0)
		require.NoError(t, s.CreateLead(ctx, lead))

		_, err := s.ClaimLeads(ctx, testOwner, 1, t0, time.Minute)
		require.NoError(t, err)
		pending := dialer.LeadStatusPending
		_, err = s.UpdateLead(ctx, lead.ID, dialer.LeadPatch{Status: &pending}, t0)
		require.NoError(t, err)

		assert.ErrorIs(t, s.CreateAttempt(ctx, testOwner, attemptFor(lead, 1, t0)), dialer.ErrLeadNotClaimable)
	})

	t.Run("unclaimed, foreign claim or wrong number", func(t *testing.T) {
		t.Parallel()
		s := dialer.NewMemoryStore()
		lead := newLead("+14155550100", dialer.PriorityLow, t0)
		require.NoError(t, s.CreateLead(ctx, lead))

		assert.ErrorIs(t, s.CreateAttempt(ctx, testOwner, attemptFor(lead, 1, t0)), dialer.ErrLeadNotClaimable)

		_, err := s.ClaimLeads(ctx, uuid.New(), 1, t0, time.Minute)
		require.NoError(t, err)
		assert.ErrorIs(t, s.CreateAttempt(ctx, testOwner, attemptFor(lead, 1, t0)), dialer.ErrLeadNotClaimable)

		_, err = s.ClaimLeads(ctx, testOwner, 1, t0.Add(2*time.Minute), time.Minute)
		require.NoError(t, err)
		assert.ErrorIs(t, s.CreateAttempt(ctx, testOwner, attemptFor(lead, 3, t0)), dialer.ErrLeadNotClaimable)
		assert.NoError(t, s.CreateAttempt(ctx, testOwner, attemptFor(lead, 1, t0)))
	})

	t.Run("deleted after claim", func(t *testing.T) {
		t.Parallel()
		s := dialer.NewMemoryStore()
		lead := newLead("+14155550100", dialer.PriorityLow, t0)
		require.NoError(t, s.CreateLead(ctx, lead))

		_, err := s.ClaimLeads(ctx, testOwner, 1, t0, time.Minute)
		require.NoError(t, err)
		require.NoError(t, s.DeleteLead(ctx, lead.ID))
		assert.ErrorIs(t, s.CreateAttempt(ctx, testOwner, attemptFor(lead, 1, t0)), dialer.ErrLeadNotFound)
	})
}

func TestMemoryStore_ConcurrentClaimsAreDisjoint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := dialer.NewMemoryStore()
	const leads = 50
	for i := range leads {
		lead := newLead(fmt.Sprintf("+1415555%04d", i), dialer.Priority(i%4+1), t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.CreateLead(ctx, lead))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uuid.UUID]uuid.UUID)
		dups []uuid.UUID
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			owner := uuid.New()
			batch, err := s.ClaimLeads(ctx, owner, 8, t0.Add(time.Hour), time.Minute)
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			for _, l := range batch {
				if _, taken := seen[l.ID]; taken {
					dups = append(dups, l.ID)
				}
				seen[l.ID] = owner
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, dups, "a lead was handed to two owners")
	assert.Len(t, seen, leads, "ten batches of eight cover every lead")
	for id, owner := range seen {
		got, err := s.GetLead(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got.ClaimedBy)
		assert.Equal(t, owner, *got.ClaimedBy)
	}
}

func ptr[T any](v T) *T { return &v }
