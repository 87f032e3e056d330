package dialer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultStatsDays is the retry statistics period when none is given.
const DefaultStatsDays = 7

// QueueStats describes the leads waiting in the queue.
type QueueStats struct {
	TotalPending int `json:"total_pending"`
	// Due counts leads that could be dialed now, window aside.
	Due         int              `json:"due"`
	DueNextHour int              `json:"due_next_hour"`
	DueNextDay  int              `json:"due_next_day"`
	RetryLeads  int              `json:"retry_leads"`
	AvgAttempt  float64          `json:"avg_attempt"`
	ByPriority  map[Priority]int `json:"by_priority"`
	NextDueAt   *time.Time       `json:"next_due_at,omitempty"`
	LastDueAt   *time.Time       `json:"last_due_at,omitempty"`
}

// RetryStats describes attempts created during the period.
type RetryStats struct {
	PeriodDays       int `json:"period_days"`
	Attempts         int `json:"attempts"`
	LeadsCalled      int `json:"leads_called"`
	LeadsWithRetries int `json:"leads_with_retries"`
	RetryAttempts    int `json:"retry_attempts"`
	// RetrySuccessRate is the share of retried leads whose latest attempt
	// reached the callee.
	RetrySuccessRate   float64 `json:"retry_success_rate"`
	AvgAttemptsPerLead float64 `json:"avg_attempts_per_lead"`
}

// Stats is the scheduling report served by the admin API.
type Stats struct {
	Queue       QueueStats `json:"queue"`
	Retries     RetryStats `json:"retries"`
	CallWindow  string     `json:"call_window"`
	WindowOpen  bool       `json:"window_open"`
	NextOpening *time.Time `json:"next_opening,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Stats reports queue and retry statistics over the last days days.
// days <= 0 uses DefaultStatsDays.
func (e *Engine) Stats(ctx context.Context, days int) (Stats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	now := e.now()

	queued, err := e.store.ListQueued(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list queued leads: %w", err)
	}
	attempts, err := e.store.ListAttemptsSince(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		return Stats{}, fmt.Errorf("list attempts: %w", err)
	}

	out := Stats{
		Queue:       ComputeQueueStats(queued, now),
		Retries:     ComputeRetryStats(attempts),
		CallWindow:  e.window.String(),
		WindowOpen:  e.window.Allows(now),
		GeneratedAt: now,
	}
	out.Retries.PeriodDays = days
	if !out.WindowOpen {
		next := e.window.Adjust(now)
		out.NextOpening = &next
	}
	return out, nil
}

// ComputeQueueStats summarizes queued leads as of now.
func ComputeQueueStats(leads []Lead, now time.Time) QueueStats {
	st := QueueStats{ByPriority: make(map[Priority]int)}
	attempts := 0
	for _, l := range leads {
		if !l.Queued() {
			continue
		}
		st.TotalPending++
		st.ByPriority[l.Priority]++
		attempts += l.NextAttempt
		if l.NextAttempt > 1 {
			st.RetryLeads++
		}

		due := now
		if l.NotBefore != nil && l.NotBefore.After(now) {
			due = *l.NotBefore
		}
		switch {
		case !due.After(now):
			st.Due++
		case !due.After(now.Add(time.Hour)):
			st.DueNextHour++
		case !due.After(now.Add(24 * time.Hour)):
			st.DueNextDay++
		}
		if st.NextDueAt == nil || due.Before(*st.NextDueAt) {
			st.NextDueAt = &due
		}
		if st.LastDueAt == nil || due.After(*st.LastDueAt) {
			st.LastDueAt = &due
		}
	}
	if st.TotalPending > 0 {
		st.AvgAttempt = float64(attempts) / float64(st.TotalPending)
	}
	return st
}

// ComputeRetryStats summarizes attempts. A retried lead counts as a
// success when its latest attempt ended answered or with a meeting.
func ComputeRetryStats(attempts []CallAttempt) RetryStats {
	latest := make(map[uuid.UUID]CallAttempt)
	retried := make(map[uuid.UUID]struct{})

	var st RetryStats
	for _, a := range attempts {
		st.Attempts++
		if a.AttemptNumber > 1 {
			st.RetryAttempts++
			retried[a.LeadID] = struct{}{}
		}
		if cur, ok := latest[a.LeadID]; !ok || a.AttemptNumber > cur.AttemptNumber {
			latest[a.LeadID] = a
		}
	}

	st.LeadsCalled = len(latest)
	st.LeadsWithRetries = len(retried)
	if st.LeadsCalled > 0 {
		st.AvgAttemptsPerLead = float64(st.Attempts) / float64(st.LeadsCalled)
	}
	if st.LeadsWithRetries > 0 {
		succeeded := 0
		for id := range retried {
			switch latest[id].Outcome {
			case OutcomeAnswered, OutcomeMeetingScheduled:
				succeeded++
			}
		}
		st.RetrySuccessRate = float64(succeeded) / float64(st.LeadsWithRetries)
	}
	return st
}
