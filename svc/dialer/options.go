package dialer

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger      *slog.Logger
	metrics     *Metrics
	idempotency IdempotencyStore
	notifier    Notifier
	sink        OutcomeSink
	now         func() time.Time
	owner       uuid.UUID
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *engineOptions) {
		o.metrics = m
	}
}

// WithIdempotencyStore replaces the in-process meeting guard, typically
// with a shared Redis-backed one.
func WithIdempotencyStore(s IdempotencyStore) Option {
	return func(o *engineOptions) {
		if s != nil {
			o.idempotency = s
		}
	}
}

// WithNotifier sends meeting notifications.
func WithNotifier(n Notifier) Option {
	return func(o *engineOptions) {
		o.notifier = n
	}
}

// WithOutcomeSink publishes terminal outcomes.
func WithOutcomeSink(s OutcomeSink) Option {
	return func(o *engineOptions) {
		o.sink = s
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithOwnerID fixes the id used to claim leads. Defaults to a random id
// per process.
func WithOwnerID(id uuid.UUID) Option {
	return func(o *engineOptions) {
		if id != uuid.Nil {
			o.owner = id
		}
	}
}
