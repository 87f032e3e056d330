package dialer

import (
	"time"
)

// QueueHealth is the coarse health of the campaign.
type QueueHealth string

const (
	HealthHealthy  QueueHealth = "healthy"
	HealthWarning  QueueHealth = "warning"
	HealthCritical QueueHealth = "critical"
)

// Snapshot is the read-only status view.
type Snapshot struct {
	Running            bool        `json:"running"`
	ActiveCalls        int         `json:"active_calls"`
	MaxConcurrentCalls int         `json:"max_concurrent_calls"`
	TotalPending       int         `json:"total_pending"`
	OverdueCalls       int         `json:"overdue_calls"`
	QueueHealth        QueueHealth `json:"queue_health"`
	LastTickAt         *time.Time  `json:"last_tick_at,omitempty"`
}

// HealthMonitor classifies queue health from counts. It holds no state.
type HealthMonitor struct {
	watchdog             Watchdog
	pendingSoftCap       int
	overdueRatio         float64
	criticalOverdueRatio float64
	capacity             int
	tickDeadline         time.Duration
}

func NewHealthMonitor(cfg Config) HealthMonitor {
	return HealthMonitor{
		watchdog:             NewWatchdog(cfg),
		pendingSoftCap:       cfg.PendingSoftCap,
		overdueRatio:         cfg.OverdueRatio,
		criticalOverdueRatio: cfg.CriticalOverdueRatio,
		capacity:             cfg.MaxConcurrentCalls,
		tickDeadline:         2 * cfg.CheckInterval,
	}
}

// Overdue reports whether an active attempt has used more than the warning
// share of its bound.
func (h HealthMonitor) Overdue(a CallAttempt, now time.Time) bool {
	if !a.Active() {
		return false
	}
	elapsed, bound, _ := h.watchdog.Elapsed(a, now)
	return float64(elapsed) > h.overdueRatio*float64(bound)
}

func (h HealthMonitor) CountOverdue(attempts []CallAttempt, now time.Time) int {
	n := 0
	for _, a := range attempts {
		if h.Overdue(a, now) {
			n++
		}
	}
	return n
}

// TickLate reports a missed scheduler deadline. A stopped scheduler never
// misses a tick.
func (h HealthMonitor) TickLate(running bool, lastTick, now time.Time) bool {
	if !running || lastTick.IsZero() {
		return false
	}
	return now.Sub(lastTick) > h.tickDeadline
}

func (h HealthMonitor) Assess(pending, overdue int, tickLate bool) QueueHealth {
	switch {
	case tickLate, float64(overdue) > h.criticalOverdueRatio*float64(h.capacity):
		return HealthCritical
	case overdue > 0, pending > h.pendingSoftCap:
		return HealthWarning
	default:
		return HealthHealthy
	}
}
