package providers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coldcall/pkg/webhook"
	"github.com/dmitrymomot/coldcall/svc/dialer"
	"github.com/dmitrymomot/coldcall/svc/providers"
)

func signedHeader(t *testing.T, secret string, body []byte) http.Header {
	t.Helper()
	sig, err := webhook.SignPayload(secret, body)
	require.NoError(t, err)
	h := http.Header{}
	sig.Apply(h)
	return h
}

func TestConversationClient_StartConversation(t *testing.T) {
	t.Parallel()

	attemptID := uuid.New()
	leadID := uuid.New()
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		sig, err := webhook.ParseSignatureHeaders(r.Header)
		require.NoError(t, err)
		require.NoError(t, webhook.VerifySignature("conv-secret", body, sig, time.Minute))
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, err := providers.NewConversationClient(conversationConfig(server.URL))
	require.NoError(t, err)

	err = client.StartConversation(context.Background(), dialer.ConversationRequest{
		AttemptID:  attemptID,
		CallHandle: "CA42",
		Lead:       dialer.LeadContext{LeadID: leadID, Name: "Ada", Phone: "+15550100"},
	})
	require.NoError(t, err)

	assert.Equal(t, attemptID.String(), got["attempt_id"])
	assert.Equal(t, "CA42", got["call_handle"])
	assert.Equal(t, "https://dialer.example.com/webhooks/conversation", got["callback_url"])
	assert.Equal(t, "Ada", got["lead"].(map[string]any)["name"])
}

func TestConversationClient_StartConversationError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := providers.NewConversationClient(conversationConfig(server.URL), fastRetry)
	require.NoError(t, err)

	err = client.StartConversation(context.Background(), dialer.ConversationRequest{AttemptID: uuid.New(), CallHandle: "CA1"})
	assert.ErrorIs(t, err, webhook.ErrDeliveryFailed)
}

func TestParseReport(t *testing.T) {
	t.Parallel()

	client, err := providers.NewConversationClient(conversationConfig("https://conversation.example.com/start"))
	require.NoError(t, err)

	attemptID := uuid.New()
	body, err := json.Marshal(providers.Report{
		AttemptID:     attemptID,
		CallHandle:    "CA42",
		Status:        providers.ReportCompleted,
		MeetingBooked: true,
		Transcript:    "agent: hello",
		Summary:       "wants a demo",
	})
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		r, err := client.ParseReport(signedHeader(t, "conv-secret", body), body)
		require.NoError(t, err)

		ev, err := r.Event(time.Now())
		require.NoError(t, err)
		assert.Equal(t, dialer.EventConversationCompleted, ev.Kind)
		assert.True(t, ev.Booked)
		assert.Equal(t, attemptID, ev.AttemptID)
		assert.Equal(t, "agent: hello", ev.Artifacts.Transcript)
		assert.Equal(t, "wants a demo", ev.Artifacts.Summary)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		_, err := client.ParseReport(signedHeader(t, "other", body), body)
		assert.ErrorIs(t, err, providers.ErrInvalidSignature)
	})

	t.Run("unsigned", func(t *testing.T) {
		t.Parallel()

		_, err := client.ParseReport(http.Header{}, body)
		assert.ErrorIs(t, err, providers.ErrInvalidSignature)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		bad := []byte(`{"status":`)
		_, err := client.ParseReport(signedHeader(t, "conv-secret", bad), bad)
		assert.ErrorIs(t, err, providers.ErrInvalidReport)
	})

	t.Run("no identity", func(t *testing.T) {
		t.Parallel()

		anon := []byte(`{"status":"completed"}`)
		_, err := client.ParseReport(signedHeader(t, "conv-secret", anon), anon)
		assert.ErrorIs(t, err, providers.ErrInvalidReport)
	})
}

func TestReport_Event(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status string
		kind   dialer.EventKind
	}{
		{status: providers.ReportCompleted, kind: dialer.EventConversationCompleted},
		{status: providers.ReportRejected, kind: dialer.EventConversationRejected},
		{status: providers.ReportFailed, kind: dialer.EventConversationFailed},
	}
	for _, tt := range tests {
		ev, err := providers.Report{CallHandle: "CA1", Status: tt.status, Reason: "r"}.Event(time.Now())
		require.NoError(t, err)
		assert.Equal(t, tt.kind, ev.Kind)
		assert.Equal(t, "r", ev.Reason)
		assert.False(t, ev.Booked)
	}

	_, err := providers.Report{CallHandle: "CA1", Status: "maybe"}.Event(time.Now())
	assert.ErrorIs(t, err, providers.ErrInvalidReport)
}
