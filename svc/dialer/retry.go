package dialer

import (
	"fmt"
	"time"
)

// Action is what happens to a lead after a terminal attempt.
type Action string

const (
	ActionRequeue Action = "requeue"
	ActionAbandon Action = "abandon"
)

// Decision is the retry policy's verdict for one terminal attempt.
type Decision struct {
	Action Action
	Delay  time.Duration
}

func (d Decision) Requeue() bool { return d.Action == ActionRequeue }

// RetryPolicy decides whether a finished attempt is tried again.
// MaxAttempts counts every attempt including the first.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// NewRetryPolicy builds the policy described by cfg.
func NewRetryPolicy(cfg Config) RetryPolicy {
	return RetryPolicy{MaxAttempts: cfg.MaxRetryAttempts, Delay: cfg.retryDelay()}
}

// Decide is pure and total over the outcome set.
func (p RetryPolicy) Decide(attemptNumber int, outcome Outcome) Decision {
	switch outcome {
	case OutcomeNoAnswer, OutcomeBusy, OutcomeFailed:
		if attemptNumber < p.MaxAttempts {
			return Decision{Action: ActionRequeue, Delay: p.Delay}
		}
		return Decision{Action: ActionAbandon}
	case OutcomeRejected, OutcomeMeetingScheduled, OutcomeAnswered:
		return Decision{Action: ActionAbandon}
	case OutcomeNone:
		panic("dialer: retry decision requested for an attempt without outcome")
	default:
		panic(fmt.Sprintf("dialer: unknown outcome %q", outcome))
	}
}

// LeadStatusFor maps a terminal outcome to the lead status it implies.
func LeadStatusFor(outcome Outcome) LeadStatus {
	switch outcome {
	case OutcomeMeetingScheduled:
		return LeadStatusScheduled
	case OutcomeRejected:
		return LeadStatusNotInterested
	case OutcomeAnswered, OutcomeNoAnswer, OutcomeBusy, OutcomeFailed:
		return LeadStatusCalled
	default:
		panic(fmt.Sprintf("dialer: no lead status for outcome %q", outcome))
	}
}

// PlanLeadUpdate computes the lead write committed with a terminal attempt.
// A requeued lead waits for the retry delay and then for the next opening
// of the calling window.
func PlanLeadUpdate(a CallAttempt, d Decision, now time.Time, window CallWindow) LeadUpdate {
	u := LeadUpdate{
		Status:       LeadStatusFor(a.Outcome),
		LastCalledAt: now,
	}
	if d.Requeue() {
		u.NextAttempt = a.AttemptNumber + 1
		notBefore := window.Adjust(now.Add(d.Delay))
		u.NotBefore = &notBefore
	}
	return u
}
