package providers

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/coldcall/pkg/webhook"
)

type Option func(*options)

type options struct {
	logger  *slog.Logger
	sender  *webhook.Sender
	breaker *webhook.CircuitBreaker
	backoff webhook.BackoffStrategy
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:  slog.Default(),
		breaker: webhook.NewCircuitBreaker(5, 2, 30*time.Second),
		backoff: webhook.DefaultBackoffStrategy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sender == nil {
		o.sender = webhook.NewSender()
	}
	return o
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSender replaces the HTTP sender, e.g. one built on a custom client.
func WithSender(s *webhook.Sender) Option {
	return func(o *options) {
		o.sender = s
	}
}

// WithCircuitBreaker replaces the client's default breaker
// (5 failures, 2 successes, 30s).
func WithCircuitBreaker(cb *webhook.CircuitBreaker) Option {
	return func(o *options) {
		if cb != nil {
			o.breaker = cb
		}
	}
}

func WithBackoff(b webhook.BackoffStrategy) Option {
	return func(o *options) {
		if b != nil {
			o.backoff = b
		}
	}
}
