package dialer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coldcall/pkg/logger"
)

// every calls fn now and then on each check interval until ctx is done.
func (e *Engine) every(ctx context.Context, fn func(context.Context)) {
	ticker := time.NewTicker(e.cfg.CheckInterval)
	defer ticker.Stop()

	fn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	e.lastTick.Store(e.now().UnixNano())

	if pending, err := e.queue.Pending(ctx); err == nil {
		e.metrics.SetPending(pending)
	}
	if !e.running.Load() {
		return
	}
	if _, err := e.dispatchBatch(ctx); err != nil && !errors.Is(err, ErrSchedulerOff) {
		e.logger.ErrorContext(ctx, "scheduler tick failed", logger.Error(err))
	}
}

// DispatchNow runs one scheduler tick immediately and returns the number of
// attempts dispatched.
func (e *Engine) DispatchNow(ctx context.Context) (int, error) {
	if !e.serving.Load() {
		return 0, ErrEngineStopped
	}
	e.lastTick.Store(e.now().UnixNano())
	return e.dispatchBatch(ctx)
}

func (e *Engine) dispatchBatch(ctx context.Context) (int, error) {
	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()

	if !e.running.Load() {
		return 0, ErrSchedulerOff
	}

	free := e.admission.Available()
	if free == 0 {
		e.logger.DebugContext(ctx, "no free call slots", slog.Int("active_calls", e.admission.Active()))
		return 0, nil
	}

	leads, err := e.queue.NextBatch(ctx, free)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, lead := range leads {
		ok, err := e.dispatchLead(ctx, lead)
		if err != nil {
			e.logger.ErrorContext(ctx, "dispatch failed", logger.LeadID(lead.ID), logger.Error(err))
		}
		if ok {
			dispatched++
		}
	}
	if dispatched > 0 {
		e.logger.InfoContext(ctx, "calls dispatched",
			slog.Int("count", dispatched),
			slog.Int("active_calls", e.admission.Active()),
		)
	}
	return dispatched, nil
}

// dispatchLead admits one claimed lead. Must hold dispatchMu.
func (e *Engine) dispatchLead(ctx context.Context, lead Lead) (bool, error) {
	slot, ok := e.admission.TryAcquire()
	if !ok {
		e.metrics.AdmissionDenied()
		if err := e.queue.Release(ctx, lead.ID); err != nil {
			return false, err
		}
		return false, nil
	}

	now := e.now()
	attempt := CallAttempt{
		ID:            uuid.New(),
		LeadID:        lead.ID,
		AttemptNumber: lead.NextAttempt,
		Phone:         lead.Phone,
		State:         StateQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.store.CreateAttempt(ctx, e.queue.Owner(), &attempt); err != nil {
		_ = e.admission.Release(slot)
		switch {
		case errors.Is(err, ErrLeadNotClaimable), errors.Is(err, ErrLeadNotFound):
			// Edited or deleted after the claim; the edit wins.
			e.logger.DebugContext(ctx, "lead changed after claim", logger.LeadID(lead.ID), logger.Error(err))
			if relErr := e.queue.Release(ctx, lead.ID); relErr != nil && !errors.Is(relErr, ErrLeadNotFound) {
				return false, relErr
			}
			return false, nil
		case errors.Is(err, ErrActiveAttemptExists):
			e.metrics.InvariantViolation()
			e.logger.ErrorContext(ctx, "second active attempt refused",
				logger.LeadID(lead.ID),
				logger.AttemptNumber(attempt.AttemptNumber),
			)
		}
		if relErr := e.queue.Release(ctx, lead.ID); relErr != nil && !errors.Is(relErr, ErrLeadNotFound) {
			err = errors.Join(err, relErr)
		}
		return false, fmt.Errorf("create attempt: %w", err)
	}
	e.bindSlot(attempt.ID, slot)
	e.metrics.Dispatched()
	e.metrics.SetActive(e.admission.Active())

	// A queued attempt whose dispatch is lost is failed by the watchdog.
	if err := e.Submit(ctx, Event{Kind: EventDispatch, AttemptID: attempt.ID, At: now}); err != nil {
		return true, fmt.Errorf("dispatch attempt %s: %w", attempt.ID, err)
	}
	return true, nil
}

// sweep forces expired attempts to failed and retries meeting bookings
// that failed after a booked call.
func (e *Engine) sweep(ctx context.Context) {
	now := e.now()
	if active, err := e.store.ListActiveAttempts(ctx); err != nil {
		e.logger.ErrorContext(ctx, "watchdog sweep failed", logger.Error(err))
	} else {
		for _, ev := range e.watchdog.Sweep(active, now) {
			e.metrics.Timeout(ev.Reason)
			e.logger.WarnContext(ctx, "call attempt timed out",
				logger.AttemptID(ev.AttemptID),
				slog.String("reason", ev.Reason),
			)
			e.post(ctx, ev)
		}
	}

	if e.cfg.MeetingRetryWindow <= 0 {
		return
	}
	booked, err := e.outcomes.RecoverMeetings(ctx, now.Add(-e.cfg.MeetingRetryWindow))
	if err != nil {
		e.logger.ErrorContext(ctx, "meeting recovery failed", logger.Error(err))
		return
	}
	if booked > 0 {
		e.logger.InfoContext(ctx, "meetings recovered", slog.Int("count", booked))
	}
}

// Status returns the queue health snapshot.
func (e *Engine) Status(ctx context.Context) (Snapshot, error) {
	pending, err := e.queue.Pending(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count queued leads: %w", err)
	}
	active, err := e.store.ListActiveAttempts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list active attempts: %w", err)
	}

	now := e.now()
	running := e.running.Load()
	overdue := e.health.CountOverdue(active, now)

	snap := Snapshot{
		Running:            running,
		ActiveCalls:        e.admission.Active(),
		MaxConcurrentCalls: e.admission.Max(),
		TotalPending:       pending,
		OverdueCalls:       overdue,
	}
	var lastTick time.Time
	if ns := e.lastTick.Load(); ns != 0 {
		lastTick = time.Unix(0, ns)
		snap.LastTickAt = &lastTick
	}
	snap.QueueHealth = e.health.Assess(pending, overdue, e.health.TickLate(running, lastTick, now))
	return snap, nil
}
