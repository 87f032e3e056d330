package dialer

import (
	"time"
)

// Watchdog finds attempts that outlived their bound.
type Watchdog struct {
	SetupTimeout time.Duration
	MaxDuration  time.Duration
}

func NewWatchdog(cfg Config) Watchdog {
	return Watchdog{SetupTimeout: cfg.CallSetupTimeout, MaxDuration: cfg.MaxCallDuration}
}

// Elapsed returns how long the attempt has spent against its current bound,
// the bound itself, and the failure reason used if it is exceeded.
func (w Watchdog) Elapsed(a CallAttempt, now time.Time) (elapsed, bound time.Duration, reason string) {
	if a.State.Connected() && a.AnsweredAt != nil {
		return now.Sub(*a.AnsweredAt), w.MaxDuration, ReasonMaxDuration
	}
	since := a.CreatedAt
	if a.StartedAt != nil {
		since = *a.StartedAt
	}
	return now.Sub(since), w.SetupTimeout, ReasonSetupTimeout
}

// Expired reports whether an active attempt must be forced to failed.
func (w Watchdog) Expired(a CallAttempt, now time.Time) (string, bool) {
	if !a.Active() {
		return "", false
	}
	elapsed, bound, reason := w.Elapsed(a, now)
	if elapsed > bound {
		return reason, true
	}
	return "", false
}

// Sweep returns a timeout event for every expired attempt.
func (w Watchdog) Sweep(attempts []CallAttempt, now time.Time) []Event {
	var events []Event
	for _, a := range attempts {
		if reason, ok := w.Expired(a, now); ok {
			events = append(events, Event{
				Kind:      EventTimeout,
				AttemptID: a.ID,
				At:        now,
				Reason:    reason,
			})
		}
	}
	return events
}
