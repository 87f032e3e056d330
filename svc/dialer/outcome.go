package dialer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/coldcall/pkg/logger"
)

// OutcomeDispatcher runs the side effects of a committed terminal attempt:
// the meeting booking, the notification and the outcome event. The lead
// write itself happens earlier, inside Store.CompleteAttempt.
type OutcomeDispatcher struct {
	store       Store
	meetings    MeetingScheduler
	idempotency IdempotencyStore
	notifier    Notifier
	sink        OutcomeSink
	keyTTL      time.Duration
	logger      *slog.Logger
	metrics     *Metrics
}

// Dispatch is best-effort; failures are logged and counted.
func (d *OutcomeDispatcher) Dispatch(ctx context.Context, a CallAttempt, decision Decision, update LeadUpdate) {
	if a.Outcome == OutcomeMeetingScheduled && !a.Discarded {
		link, err := d.ScheduleMeeting(ctx, a)
		if err != nil {
			d.metrics.EffectError("schedule_meeting")
			d.logger.ErrorContext(ctx, "meeting scheduling failed", logger.AttemptID(a.ID), logger.Error(err))
		} else if link != "" {
			a.MeetingLink = link
		}
	}

	if d.sink == nil {
		return
	}
	if err := d.sink.Publish(ctx, outcomeEvent(a, decision, update)); err != nil {
		d.metrics.EffectError("publish_outcome")
		d.logger.WarnContext(ctx, "outcome event not delivered", logger.AttemptID(a.ID), logger.Error(err))
	}
}

// ScheduleMeeting books the meeting for a. The idempotency key marks a
// booking in flight: a concurrent call for the same attempt returns an
// empty link and no error. The key is released when the booking fails so
// a later RecoverMeetings can retry it under the same downstream
// IdempotencyKey.
func (d *OutcomeDispatcher) ScheduleMeeting(ctx context.Context, a CallAttempt) (string, error) {
	key := "meeting:" + a.ID.String()
	acquired, err := d.idempotency.Acquire(ctx, key, d.keyTTL)
	if err != nil {
		return "", fmt.Errorf("acquire meeting key: %w", err)
	}
	if !acquired {
		d.logger.DebugContext(ctx, "meeting already requested", logger.AttemptID(a.ID))
		return "", nil
	}

	lead := d.leadContext(ctx, a)
	link, err := d.meetings.ScheduleMeeting(ctx, MeetingRequest{
		IdempotencyKey: a.ID.String(),
		AttemptID:      a.ID,
		Lead:           lead,
	})
	if err != nil {
		if relErr := d.idempotency.Release(context.WithoutCancel(ctx), key); relErr != nil {
			d.logger.WarnContext(ctx, "meeting key not released", logger.AttemptID(a.ID), logger.Error(relErr))
		}
		return "", fmt.Errorf("schedule meeting: %w", err)
	}

	if err := d.store.SetArtifacts(ctx, a.ID, Artifacts{MeetingLink: link}); err != nil {
		d.logger.ErrorContext(ctx, "meeting link not saved", logger.AttemptID(a.ID), logger.Error(err))
	}
	d.logger.InfoContext(ctx, "meeting scheduled", logger.AttemptID(a.ID), logger.LeadID(a.LeadID))

	if d.notifier != nil {
		if err := d.notifier.MeetingScheduled(ctx, lead, link); err != nil {
			d.metrics.EffectError("notify_meeting")
			d.logger.WarnContext(ctx, "meeting notification failed", logger.AttemptID(a.ID), logger.Error(err))
		}
	}
	return link, nil
}

// RecoverMeetings retries bookings for booked attempts that ended after
// since and still have no meeting link. It returns the number booked.
func (d *OutcomeDispatcher) RecoverMeetings(ctx context.Context, since time.Time) (int, error) {
	unbooked, err := d.store.ListUnbookedMeetings(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list unbooked meetings: %w", err)
	}

	booked := 0
	for _, a := range unbooked {
		if _, err := d.store.GetLead(ctx, a.LeadID); errors.Is(err, ErrLeadNotFound) {
			continue
		}
		link, err := d.ScheduleMeeting(ctx, a)
		if err != nil {
			d.metrics.EffectError("schedule_meeting")
			d.logger.WarnContext(ctx, "meeting retry failed", logger.AttemptID(a.ID), logger.Error(err))
			continue
		}
		if link != "" {
			booked++
			d.metrics.MeetingRecovered()
		}
	}
	return booked, nil
}

// leadContext loads the lead for a collaborator call, degrading to the
// data kept on the attempt when the lead is gone.
func (d *OutcomeDispatcher) leadContext(ctx context.Context, a CallAttempt) LeadContext {
	lead, err := d.store.GetLead(ctx, a.LeadID)
	if err != nil {
		return LeadContext{LeadID: a.LeadID, Phone: a.Phone}
	}
	return lead.Context()
}

func outcomeEvent(a CallAttempt, decision Decision, update LeadUpdate) OutcomeEvent {
	ev := OutcomeEvent{
		AttemptID:     a.ID,
		LeadID:        a.LeadID,
		AttemptNumber: a.AttemptNumber,
		State:         a.State,
		Outcome:       a.Outcome,
		Action:        decision.Action,
		Discarded:     a.Discarded,
		Reason:        a.FailureReason,
		MeetingLink:   a.MeetingLink,
		OccurredAt:    update.LastCalledAt,
	}
	if !a.Discarded {
		ev.LeadStatus = update.Status
	}
	if dur, ok := a.Duration(); ok {
		secs := dur.Seconds()
		ev.DurationSec = &secs
	}
	return ev
}
