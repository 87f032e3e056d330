package dialer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coldcall/svc/dialer"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: t0} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeTelephony struct {
	mu    sync.Mutex
	calls []dialer.PlaceCallRequest
	err   error
}

func (f *fakeTelephony) PlaceCall(_ context.Context, req dialer.PlaceCallRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("CA%d", len(f.calls)), nil
}

func (f *fakeTelephony) Calls() []dialer.PlaceCallRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dialer.PlaceCallRequest(nil), f.calls...)
}

func (f *fakeTelephony) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeConversation struct {
	mu       sync.Mutex
	requests []dialer.ConversationRequest
	err      error
}

func (f *fakeConversation) StartConversation(_ context.Context, req dialer.ConversationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.err
}

func (f *fakeConversation) Requests() []dialer.ConversationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dialer.ConversationRequest(nil), f.requests...)
}

type fakeMeetings struct {
	mu       sync.Mutex
	requests []dialer.MeetingRequest
	err      error
}

func (f *fakeMeetings) ScheduleMeeting(_ context.Context, req dialer.MeetingRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return "https://meet.example.com/" + req.IdempotencyKey, nil
}

func (f *fakeMeetings) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeMeetings) Requests() []dialer.MeetingRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dialer.MeetingRequest(nil), f.requests...)
}

type fakeSink struct {
	mu     sync.Mutex
	events []dialer.OutcomeEvent
}

func (f *fakeSink) Publish(_ context.Context, ev dialer.OutcomeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSink) Events() []dialer.OutcomeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dialer.OutcomeEvent(nil), f.events...)
}

type harness struct {
	engine       *dialer.Engine
	store        *dialer.MemoryStore
	clock        *clock
	telephony    *fakeTelephony
	conversation *fakeConversation
	meetings     *fakeMeetings
	sink         *fakeSink
}

// newHarness builds an engine over an in-memory store. Pass store to
// reuse persisted state across engines.
func newHarness(t *testing.T, cfg dialer.Config, store *dialer.MemoryStore) *harness {
	t.Helper()

	if store == nil {
		store = dialer.NewMemoryStore()
	}
	h := &harness{
		store:        store,
		clock:        newClock(),
		telephony:    &fakeTelephony{},
		conversation: &fakeConversation{},
		meetings:     &fakeMeetings{},
		sink:         &fakeSink{},
	}

	eng, err := dialer.New(cfg, h.store, h.telephony, h.conversation, h.meetings,
		dialer.WithClock(h.clock.Now),
		dialer.WithOutcomeSink(h.sink),
	)
	require.NoError(t, err)
	h.engine = eng
	return h
}

// run starts the engine loop and stops it when the test ends.
func (h *harness) run(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.engine.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("engine run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})

	require.Eventually(t, h.engine.Serving, time.Second, 5*time.Millisecond)
}

func (h *harness) addLead(t *testing.T, phone string) *dialer.Lead {
	t.Helper()
	lead, err := h.engine.AddLead(context.Background(), dialer.LeadInput{Phone: phone, Name: "Lead " + phone})
	require.NoError(t, err)
	return lead
}

// waitAttempt polls the lead's history until attempt number satisfies cond.
func (h *harness) waitAttempt(t *testing.T, leadID uuid.UUID, number int, cond func(dialer.CallAttempt) bool) dialer.CallAttempt {
	t.Helper()

	var found dialer.CallAttempt
	require.Eventually(t, func() bool {
		history, err := h.store.ListAttemptsByLead(context.Background(), leadID)
		if err != nil || len(history) < number {
			return false
		}
		found = history[number-1]
		return cond(found)
	}, 2*time.Second, 5*time.Millisecond)
	return found
}

func placed(a dialer.CallAttempt) bool { return a.CallHandle != "" }

func ended(a dialer.CallAttempt) bool { return !a.Active() }

func (h *harness) submit(t *testing.T, ev dialer.Event) {
	t.Helper()
	require.NoError(t, h.engine.Submit(context.Background(), ev))
}
