package dialer

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/coldcall/pkg/logger"
)

// reconcile rebuilds admission from persisted active attempts after a
// restart and returns the attempts that never left queued.
//
// Capacity is tracked per engine process; every active attempt in the
// store is assumed to belong to this engine.
func (e *Engine) reconcile(ctx context.Context) ([]CallAttempt, error) {
	active, err := e.store.ListActiveAttempts(ctx)
	if err != nil {
		return nil, err
	}

	slots := e.admission.Reconcile(len(active))
	var queued []CallAttempt
	for i, a := range active {
		e.bindSlot(a.ID, slots[i])
		if a.State == StateQueued {
			queued = append(queued, a)
		}
	}
	e.metrics.SetActive(len(active))

	if len(active) > 0 {
		e.logger.InfoContext(ctx, "restored in-flight attempts",
			slog.Int("active", len(active)),
			slog.Int("queued", len(queued)),
		)
	}
	return queued, nil
}

// redispatch replays the dispatch event for attempts persisted before their
// call was placed.
func (e *Engine) redispatch(ctx context.Context, queued []CallAttempt) {
	for _, a := range queued {
		e.logger.InfoContext(ctx, "redispatching queued attempt", logger.AttemptID(a.ID), logger.LeadID(a.LeadID))
		e.post(ctx, Event{Kind: EventDispatch, AttemptID: a.ID, At: e.now()})
	}
}
