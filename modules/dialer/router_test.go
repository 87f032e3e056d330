package dialer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coldcall/handler"
	"github.com/dmitrymomot/coldcall/modules/dialer"
	"github.com/dmitrymomot/coldcall/pkg/httpserver"
	"github.com/dmitrymomot/coldcall/pkg/validator"
	"github.com/dmitrymomot/coldcall/pkg/webhook"
	dialersvc "github.com/dmitrymomot/coldcall/svc/dialer"
	"github.com/dmitrymomot/coldcall/svc/providers"
)

const (
	twilioToken  = "twilio-token"
	reportSecret = "report-secret"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Submit(ctx context.Context, ev dialersvc.Event) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockEngine) Start() bool { return m.Called().Bool(0) }
func (m *mockEngine) Stop() bool  { return m.Called().Bool(0) }

func (m *mockEngine) DispatchNow(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockEngine) Status(ctx context.Context) (dialersvc.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(dialersvc.Snapshot), args.Error(1)
}

func (m *mockEngine) Stats(ctx context.Context, days int) (dialersvc.Stats, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(dialersvc.Stats), args.Error(1)
}

func (m *mockEngine) AddLead(ctx context.Context, in dialersvc.LeadInput) (*dialersvc.Lead, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dialersvc.Lead), args.Error(1)
}

func (m *mockEngine) GetLead(ctx context.Context, id uuid.UUID) (*dialersvc.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dialersvc.Lead), args.Error(1)
}

func (m *mockEngine) UpdateLead(ctx context.Context, id uuid.UUID, patch dialersvc.LeadPatch) (*dialersvc.Lead, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dialersvc.Lead), args.Error(1)
}

func (m *mockEngine) DeleteLead(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEngine) ScheduleCall(ctx context.Context, id uuid.UUID, at time.Time) (*dialersvc.Lead, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dialersvc.Lead), args.Error(1)
}

func (m *mockEngine) LeadHistory(ctx context.Context, id uuid.UUID) ([]dialersvc.CallAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dialersvc.CallAttempt), args.Error(1)
}

type twilioVerifier struct{}

func (twilioVerifier) VerifySignature(fullURL string, form url.Values, signature string) error {
	return providers.VerifyTwilioSignature(twilioToken, fullURL, form, signature)
}

type reportParser struct{}

func (reportParser) ParseReport(header http.Header, body []byte) (providers.Report, error) {
	return providers.ParseReport(reportSecret, time.Minute, header, body)
}

func newRouter(t *testing.T, engine *mockEngine, mutate ...func(*dialer.RouterOptions)) http.Handler {
	t.Helper()
	opts := dialer.RouterOptions{
		Engine:       engine,
		Telephony:    twilioVerifier{},
		Conversation: reportParser{},
		Logger:       slog.New(slog.DiscardHandler),
		Now:          func() time.Time { return fixedNow },
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	return dialer.Router(opts)
}

func do(t *testing.T, h http.Handler, r *http.Request) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	var body handler.JSONResponse
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func statusCallback(t *testing.T, attemptID uuid.UUID, form url.Values, sign bool) *http.Request {
	t.Helper()
	target := "/webhooks/telephony/status?attempt_id=" + attemptID.String()
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sign {
		r.Header.Set(providers.HeaderTwilioSignature, providers.TwilioSignature(twilioToken, "http://example.com"+target, form))
	}
	return r
}

func TestTelephonyStatus(t *testing.T) {
	t.Parallel()

	attemptID := uuid.New()
	form := url.Values{"CallSid": {"CA100"}, "CallStatus": {"ringing"}}

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Submit", mock.Anything, mock.MatchedBy(func(ev dialersvc.Event) bool {
			return ev.Kind == dialersvc.EventRinging && ev.AttemptID == attemptID &&
				ev.CallHandle == "CA100" && ev.At.Equal(fixedNow)
		})).Return(nil).Once()

		rec, _ := do(t, newRouter(t, engine), statusCallback(t, attemptID, form, true))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		engine.AssertExpectations(t)
	})

	t.Run("bad signature", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}

		rec, body := do(t, newRouter(t, engine), statusCallback(t, attemptID, form, false))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "unauthorized", body.Error.Code)
		engine.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("verification disabled", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Submit", mock.Anything, mock.Anything).Return(nil).Once()

		h := newRouter(t, engine, func(o *dialer.RouterOptions) { o.Telephony = nil })
		rec, _ := do(t, h, statusCallback(t, attemptID, form, false))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		engine.AssertExpectations(t)
	})

	t.Run("public url", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Submit", mock.Anything, mock.Anything).Return(nil).Once()

		target := "/webhooks/telephony/status?attempt_id=" + attemptID.String()
		r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.Header.Set(providers.HeaderTwilioSignature, providers.TwilioSignature(twilioToken, "https://calls.example.org"+target, form))

		h := newRouter(t, engine, func(o *dialer.RouterOptions) { o.PublicURL = "https://calls.example.org/" })
		rec, _ := do(t, h, r)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		engine.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		bad := url.Values{"CallSid": {"CA100"}, "CallStatus": {"teleporting"}}

		rec, _ := do(t, newRouter(t, engine), statusCallback(t, attemptID, bad, true))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Submit", mock.Anything, mock.Anything).Return(dialersvc.ErrAttemptNotFound).Once()

		rec, body := do(t, newRouter(t, engine), statusCallback(t, attemptID, form, true))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "not_found", body.Error.Code)
	})

	t.Run("engine stopped", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Submit", mock.Anything, mock.Anything).Return(dialersvc.ErrEngineStopped).Once()

		rec, _ := do(t, newRouter(t, engine), statusCallback(t, attemptID, form, true))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestConversationReport(t *testing.T) {
	t.Parallel()

	attemptID := uuid.New()
	report := func(t *testing.T, secret string) *http.Request {
		t.Helper()
		payload, err := json.Marshal(map[string]any{
			"attempt_id":     attemptID,
			"status":         providers.ReportCompleted,
			"meeting_booked": true,
			"transcript":     "hello",
			"summary":        "interested",
		})
		require.NoError(t, err)
		sig, err := webhook.SignPayload(secret, payload)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodPost, "/webhooks/conversation", bytes.NewReader(payload))
		r.Header.Set("Content-Type", "application/json")
		sig.Apply(r.Header)
		return r
	}

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Submit", mock.Anything, mock.MatchedBy(func(ev dialersvc.Event) bool {
			return ev.Kind == dialersvc.EventConversationCompleted && ev.AttemptID == attemptID &&
				ev.Booked && ev.Artifacts.Transcript == "hello"
		})).Return(nil).Once()

		rec, _ := do(t, newRouter(t, engine), report(t, reportSecret))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		engine.AssertExpectations(t)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}

		rec, _ := do(t, newRouter(t, engine), report(t, "other"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		engine.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("route skipped without parser", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}

		h := newRouter(t, engine, func(o *dialer.RouterOptions) { o.Conversation = nil })
		rec, _ := do(t, h, report(t, reportSecret))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestScheduler(t *testing.T) {
	t.Parallel()

	t.Run("status", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Status", mock.Anything).Return(dialersvc.Snapshot{
			Running:            true,
			ActiveCalls:        2,
			MaxConcurrentCalls: 5,
			QueueHealth:        dialersvc.HealthHealthy,
		}, nil).Once()

		rec, body := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodGet, "/scheduler/status", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		data, ok := body.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, data["running"])
		assert.EqualValues(t, 2, data["active_calls"])
		assert.Equal(t, "healthy", data["queue_health"])
	})

	t.Run("start and stop", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Start").Return(true).Once()
		engine.On("Stop").Return(false).Once()
		h := newRouter(t, engine)

		_, body := do(t, h, httptest.NewRequest(http.MethodPost, "/scheduler/start", nil))
		assert.Equal(t, map[string]any{"running": true, "changed": true}, body.Data)

		_, body = do(t, h, httptest.NewRequest(http.MethodPost, "/scheduler/stop", nil))
		assert.Equal(t, map[string]any{"running": false, "changed": false}, body.Data)
		engine.AssertExpectations(t)
	})

	t.Run("dispatch", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("DispatchNow", mock.Anything).Return(3, nil).Once()

		rec, body := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodPost, "/scheduler/dispatch", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"dispatched": float64(3)}, body.Data)
	})

	t.Run("stats", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Stats", mock.Anything, 14).Return(dialersvc.Stats{
			Queue:      dialersvc.QueueStats{TotalPending: 4, Due: 1},
			Retries:    dialersvc.RetryStats{PeriodDays: 14, RetrySuccessRate: 0.25},
			CallWindow: "always",
			WindowOpen: true,
		}, nil).Once()

		rec, body := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodGet, "/scheduler/stats?days=14", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		data, ok := body.Data.(map[string]any)
		require.True(t, ok)
		queue, ok := data["queue"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 4, queue["total_pending"])
		retries, ok := data["retries"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 0.25, retries["retry_success_rate"])
		assert.Equal(t, true, data["window_open"])
		engine.AssertExpectations(t)
	})

	t.Run("stats default period", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("Stats", mock.Anything, 0).Return(dialersvc.Stats{}, nil).Once()

		rec, _ := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodGet, "/scheduler/stats", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		engine.AssertExpectations(t)
	})

	t.Run("stats bad period", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		h := newRouter(t, engine)

		rec, _ := do(t, h, httptest.NewRequest(http.MethodGet, "/scheduler/stats?days=400", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/scheduler/stats?days=week", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		engine.AssertNotCalled(t, "Stats", mock.Anything, mock.Anything)
	})

	t.Run("dispatch while stopped", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("DispatchNow", mock.Anything).Return(0, dialersvc.ErrSchedulerOff).Once()

		rec, _ := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodPost, "/scheduler/dispatch", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestLeads(t *testing.T) {
	t.Parallel()

	leadID := uuid.New()
	lead := &dialersvc.Lead{ID: leadID, Phone: "+15550100", Name: "Ada", Priority: dialersvc.PriorityLow}

	t.Run("create", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("AddLead", mock.Anything, dialersvc.LeadInput{Phone: "+15550100", Name: "Ada"}).Return(lead, nil).Once()

		rec, body := do(t, newRouter(t, engine), jsonRequest(http.MethodPost, "/leads", `{"phone":"+15550100","name":"Ada"}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
		data, ok := body.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, leadID.String(), data["id"])
	})

	t.Run("create invalid", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		verr := validator.Apply(validator.RequiredString("phone", ""))
		engine.On("AddLead", mock.Anything, mock.Anything).Return(nil, errors.Join(dialersvc.ErrInvalidLead, verr)).Once()

		rec, body := do(t, newRouter(t, engine), jsonRequest(http.MethodPost, "/leads", `{"name":"Ada"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "validation_error", body.Error.Code)
		assert.Contains(t, body.Error.Details, "phone")
	})

	t.Run("create duplicate", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("AddLead", mock.Anything, mock.Anything).Return(nil, dialersvc.ErrDuplicateLead).Once()

		rec, body := do(t, newRouter(t, engine), jsonRequest(http.MethodPost, "/leads", `{"phone":"+15550100","name":"Ada"}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "conflict", body.Error.Code)
	})

	t.Run("create rejects unknown fields", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}

		rec, _ := do(t, newRouter(t, engine), jsonRequest(http.MethodPost, "/leads", `{"phone":"+1","nickname":"x"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		engine.AssertNotCalled(t, "AddLead", mock.Anything, mock.Anything)
	})

	t.Run("get", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("GetLead", mock.Anything, leadID).Return(lead, nil).Once()

		rec, _ := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodGet, "/leads/"+leadID.String(), nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		engine.AssertExpectations(t)
	})

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("GetLead", mock.Anything, leadID).Return(nil, dialersvc.ErrLeadNotFound).Once()

		rec, _ := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodGet, "/leads/"+leadID.String(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("get malformed id", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}

		rec, _ := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodGet, "/leads/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("UpdateLead", mock.Anything, leadID, mock.MatchedBy(func(p dialersvc.LeadPatch) bool {
			return p.Name != nil && *p.Name == "Grace" && p.Email == nil
		})).Return(lead, nil).Once()

		rec, _ := do(t, newRouter(t, engine), jsonRequest(http.MethodPatch, "/leads/"+leadID.String(), `{"name":"Grace"}`))
		assert.Equal(t, http.StatusOK, rec.Code)
		engine.AssertExpectations(t)
	})

	t.Run("update busy", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("UpdateLead", mock.Anything, leadID, mock.Anything).Return(nil, dialersvc.ErrLeadBusy).Once()

		rec, _ := do(t, newRouter(t, engine), jsonRequest(http.MethodPatch, "/leads/"+leadID.String(), `{"name":"Grace"}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("update cannot schedule", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}

		rec, _ := do(t, newRouter(t, engine), jsonRequest(http.MethodPatch, "/leads/"+leadID.String(), `{"call_at":"2026-03-03T10:00:00Z"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		engine.AssertNotCalled(t, "UpdateLead", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("schedule call", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		callAt := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
		engine.On("ScheduleCall", mock.Anything, leadID, mock.MatchedBy(callAt.Equal)).Return(lead, nil).Once()

		rec, body := do(t, newRouter(t, engine), jsonRequest(http.MethodPost, "/leads/"+leadID.String()+"/schedule", `{"at":"2026-03-03T10:00:00Z"}`))
		assert.Equal(t, http.StatusOK, rec.Code)
		data, ok := body.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, leadID.String(), data["id"])
		engine.AssertExpectations(t)
	})

	t.Run("schedule call now", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("ScheduleCall", mock.Anything, leadID, time.Time{}).Return(lead, nil).Once()

		rec, _ := do(t, newRouter(t, engine), jsonRequest(http.MethodPost, "/leads/"+leadID.String()+"/schedule", `{}`))
		assert.Equal(t, http.StatusOK, rec.Code)
		engine.AssertExpectations(t)
	})

	t.Run("schedule call busy", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("ScheduleCall", mock.Anything, leadID, mock.Anything).Return(nil, dialersvc.ErrLeadBusy).Once()

		rec, _ := do(t, newRouter(t, engine), jsonRequest(http.MethodPost, "/leads/"+leadID.String()+"/schedule", `{}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("schedule call bad time", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}

		rec, _ := do(t, newRouter(t, engine), jsonRequest(http.MethodPost, "/leads/"+leadID.String()+"/schedule", `{"at":"tomorrow"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		engine.AssertNotCalled(t, "ScheduleCall", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("DeleteLead", mock.Anything, leadID).Return(nil).Once()

		rec, _ := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodDelete, "/leads/"+leadID.String(), nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		engine.AssertExpectations(t)
	})

	t.Run("history", func(t *testing.T) {
		t.Parallel()
		engine := &mockEngine{}
		engine.On("LeadHistory", mock.Anything, leadID).Return([]dialersvc.CallAttempt{
			{ID: uuid.New(), LeadID: leadID, AttemptNumber: 1, State: dialersvc.StateNoAnswer},
			{ID: uuid.New(), LeadID: leadID, AttemptNumber: 2, State: dialersvc.StateRinging},
		}, nil).Once()

		rec, body := do(t, newRouter(t, engine), httptest.NewRequest(http.MethodGet, "/leads/"+leadID.String()+"/calls", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 2, body.Meta["total"])
		calls, ok := body.Data.([]any)
		require.True(t, ok)
		assert.Len(t, calls, 2)
	})
}

func TestAdminToken(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{}
	engine.On("Start").Return(true)
	h := newRouter(t, engine, func(o *dialer.RouterOptions) { o.AdminToken = "s3cret" })

	rec, _ := do(t, h, httptest.NewRequest(http.MethodPost, "/scheduler/start", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	r := httptest.NewRequest(http.MethodPost, "/scheduler/start", nil)
	r.Header.Set("Authorization", "Bearer s3cret")
	rec, _ = do(t, h, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Provider callbacks are authenticated by signature, not by token.
	engine.On("Submit", mock.Anything, mock.Anything).Return(nil).Once()
	form := url.Values{"CallSid": {"CA1"}, "CallStatus": {"busy"}}
	rec, _ = do(t, h, statusCallback(t, uuid.New(), form, true))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	failing := httpserver.Check{Name: "redis", Fn: func(context.Context) error { return errors.New("down") }}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("dialer_active_calls 0\n"))
	})
	h := newRouter(t, &mockEngine{}, func(o *dialer.RouterOptions) {
		o.Checks = []httpserver.Check{failing}
		o.Metrics = metrics
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dialer_active_calls")
}
