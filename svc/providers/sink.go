package providers

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/coldcall/pkg/webhook"
	"github.com/dmitrymomot/coldcall/svc/dialer"
)

// HeaderEventType names the event in outcome webhooks.
const HeaderEventType = "X-Coldcall-Event"

// WebhookSink POSTs outcome events as signed JSON.
type WebhookSink struct {
	cfg  OutcomeConfig
	opts *options
}

var _ dialer.OutcomeSink = (*WebhookSink)(nil)

// NewWebhookSink returns nil when no URL is configured.
func NewWebhookSink(cfg OutcomeConfig, opts ...Option) (*WebhookSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, nil
	}
	return &WebhookSink{cfg: cfg, opts: newOptions(opts)}, nil
}

func (s *WebhookSink) Publish(ctx context.Context, ev dialer.OutcomeEvent) error {
	sendOpts := []webhook.SendOption{
		webhook.WithHeader(HeaderEventType, "call."+string(ev.Outcome)),
		webhook.WithBackoff(s.opts.backoff),
		webhook.WithCircuitBreaker(s.opts.breaker),
	}
	if s.cfg.Secret != "" {
		sendOpts = append(sendOpts, webhook.WithSignature(s.cfg.Secret))
	}
	if err := s.opts.sender.Send(ctx, s.cfg.URL, ev, sendOpts...); err != nil {
		return fmt.Errorf("publish outcome %s: %w", ev.AttemptID, err)
	}
	return nil
}
