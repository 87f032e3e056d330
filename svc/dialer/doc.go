// Package dialer is the outbound call scheduling and lifecycle engine.
//
// Leads wait in a priority queue derived from the store. On every check
// interval the scheduler claims as many leads as there are free call slots,
// creates a queued CallAttempt for each and dispatches it. Nothing is
// claimed while the CallWindow is closed, and retries that would fall
// outside it wait for the next opening. From there the
// attempt is driven by events: provider callbacks (ringing, answered, busy,
// ...), conversation reports, the engine's own effects and the watchdog.
//
// # Lifecycle
//
//	queued -> initiated -> ringing -> answered -> in_conversation -> completed
//	                 \          \          \              \
//	                  +----------+----------+--------------+--> no_answer | busy | rejected | failed
//
// Completed, no_answer, busy, rejected and failed are terminal. Events that
// do not fit the current state are ignored, so duplicate and late callbacks
// are harmless. A single goroutine applies all events, one at a time.
//
// # Outcomes
//
// A terminal attempt is committed together with its lead update in one
// store call. The RetryPolicy then either requeues the lead with the next
// attempt number or abandons it. A booked meeting is requested from the
// MeetingScheduler under the attempt ID as its idempotency key, with an
// IdempotencyStore keeping one request in flight per attempt. Bookings that
// failed are retried by the sweep until MeetingRetryWindow passes.
//
// # Usage
//
//	eng, err := dialer.New(cfg, store, telephony, conversation, meetings,
//	    dialer.WithLogger(log),
//	    dialer.WithMetrics(metrics),
//	)
//	if err != nil {
//	    return err
//	}
//	g.Go(func() error { return eng.Run(ctx) })
//	eng.Start()
//
// Provider and conversation webhooks translate their payloads into Event
// values and hand them to Engine.Submit.
package dialer
