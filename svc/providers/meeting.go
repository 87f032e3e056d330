package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/dmitrymomot/coldcall/pkg/logger"
	"github.com/dmitrymomot/coldcall/pkg/webhook"
	"github.com/dmitrymomot/coldcall/svc/dialer"
)

// HeaderIdempotencyKey deduplicates meeting requests on the remote side.
const HeaderIdempotencyKey = "Idempotency-Key"

// MeetingClient books meetings on the meeting service.
type MeetingClient struct {
	cfg  MeetingConfig
	opts *options
	log  *slog.Logger
}

var _ dialer.MeetingScheduler = (*MeetingClient)(nil)

// NewMeetingClient authorizes requests with OAuth2 client credentials when
// cfg.ClientID is set. ctx scopes token fetches.
func NewMeetingClient(ctx context.Context, cfg MeetingConfig, opts ...Option) (*MeetingClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		opts = append([]Option{WithSender(webhook.NewSenderWithClient(cc.Client(ctx)))}, opts...)
	}
	o := newOptions(opts)
	return &MeetingClient{
		cfg:  cfg,
		opts: o,
		log:  o.logger.With(logger.Component("meetings")),
	}, nil
}

type meetingRequest struct {
	AttemptID string             `json:"attempt_id"`
	Lead      dialer.LeadContext `json:"lead"`
}

type meetingResponse struct {
	MeetingLink string `json:"meeting_link"`
}

// ScheduleMeeting requests a meeting link. Retries reuse req.IdempotencyKey
// so the service books at most one meeting per attempt.
func (m *MeetingClient) ScheduleMeeting(ctx context.Context, req dialer.MeetingRequest) (string, error) {
	payload, err := json.Marshal(meetingRequest{AttemptID: req.AttemptID.String(), Lead: req.Lead})
	if err != nil {
		return "", err
	}

	resp, err := m.opts.sender.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set(HeaderIdempotencyKey, req.IdempotencyKey)
		return r, nil
	},
		webhook.WithTimeout(m.cfg.Timeout),
		webhook.WithMaxRetries(m.cfg.MaxRetries),
		webhook.WithBackoff(m.opts.backoff),
		webhook.WithCircuitBreaker(m.opts.breaker),
	)
	if err != nil {
		return "", fmt.Errorf("schedule meeting: %w", err)
	}

	var out meetingResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if out.MeetingLink == "" {
		return "", fmt.Errorf("%w: empty meeting link", ErrInvalidResponse)
	}

	m.log.InfoContext(ctx, "meeting scheduled", logger.AttemptID(req.AttemptID), logger.LeadID(req.Lead.LeadID))
	return out.MeetingLink, nil
}
