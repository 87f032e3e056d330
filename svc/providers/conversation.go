package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coldcall/pkg/logger"
	"github.com/dmitrymomot/coldcall/pkg/sanitizer"
	"github.com/dmitrymomot/coldcall/pkg/webhook"
	"github.com/dmitrymomot/coldcall/svc/dialer"
)

// ConversationClient hands answered calls to the conversation service and
// verifies the reports it sends back.
type ConversationClient struct {
	cfg  ConversationConfig
	opts *options
	log  *slog.Logger
}

var _ dialer.Conversation = (*ConversationClient)(nil)

func NewConversationClient(cfg ConversationConfig, opts ...Option) (*ConversationClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &ConversationClient{
		cfg:  cfg,
		opts: o,
		log:  o.logger.With(logger.Component("conversation")),
	}, nil
}

type startConversation struct {
	AttemptID   uuid.UUID          `json:"attempt_id"`
	CallHandle  string             `json:"call_handle"`
	Lead        dialer.LeadContext `json:"lead"`
	CallbackURL string             `json:"callback_url"`
}

// StartConversation posts a signed hand-off. The service answers
// asynchronously with a report to CallbackURL.
func (c *ConversationClient) StartConversation(ctx context.Context, req dialer.ConversationRequest) error {
	err := c.opts.sender.Send(ctx, c.cfg.URL, startConversation{
		AttemptID:   req.AttemptID,
		CallHandle:  req.CallHandle,
		Lead:        req.Lead,
		CallbackURL: c.cfg.CallbackURL,
	},
		webhook.WithSignature(c.cfg.Secret),
		webhook.WithTimeout(c.cfg.Timeout),
		webhook.WithMaxRetries(1),
		webhook.WithBackoff(c.opts.backoff),
		webhook.WithCircuitBreaker(c.opts.breaker),
	)
	if err != nil {
		return fmt.Errorf("start conversation: %w", err)
	}
	c.log.DebugContext(ctx, "conversation started", logger.AttemptID(req.AttemptID), logger.CallHandle(req.CallHandle))
	return nil
}

// Report statuses.
const (
	ReportCompleted = "completed"
	ReportRejected  = "rejected"
	ReportFailed    = "failed"
)

// Report is the conversation service's final word on a call.
type Report struct {
	AttemptID     uuid.UUID `json:"attempt_id"`
	CallHandle    string    `json:"call_handle"`
	Status        string    `json:"status"`
	MeetingBooked bool      `json:"meeting_booked"`
	Reason        string    `json:"reason,omitempty"`
	Transcript    string    `json:"transcript,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	RecordingURL  string    `json:"recording_url,omitempty"`
}

// ParseReport verifies the signature on body and decodes the report.
func (c *ConversationClient) ParseReport(header http.Header, body []byte) (Report, error) {
	return ParseReport(c.cfg.Secret, c.cfg.MaxAge, header, body)
}

// ParseReport is the standalone form of ConversationClient.ParseReport.
func ParseReport(secret string, maxAge time.Duration, header http.Header, body []byte) (Report, error) {
	sig, err := webhook.ParseSignatureHeaders(header)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if err := webhook.VerifySignature(secret, body, sig, maxAge); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	var r Report
	if err := json.Unmarshal(body, &r); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	if r.AttemptID == uuid.Nil && r.CallHandle == "" {
		return Report{}, fmt.Errorf("%w: attempt_id or call_handle is required", ErrInvalidReport)
	}
	return r, nil
}

// Event maps the report to a lifecycle event stamped at.
func (r Report) Event(at time.Time) (dialer.Event, error) {
	ev := dialer.Event{
		AttemptID:  r.AttemptID,
		CallHandle: r.CallHandle,
		At:         at,
		Reason:     r.Reason,
		Artifacts: dialer.Artifacts{
			Transcript:   sanitizer.RemoveControlChars(r.Transcript),
			Summary:      sanitizer.RemoveControlChars(r.Summary),
			RecordingURL: r.RecordingURL,
		},
	}
	switch r.Status {
	case ReportCompleted:
		ev.Kind = dialer.EventConversationCompleted
		ev.Booked = r.MeetingBooked
	case ReportRejected:
		ev.Kind = dialer.EventConversationRejected
	case ReportFailed:
		ev.Kind = dialer.EventConversationFailed
	default:
		return dialer.Event{}, fmt.Errorf("%w: unknown status %q", ErrInvalidReport, r.Status)
	}
	return ev, nil
}
