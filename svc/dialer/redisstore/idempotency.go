// Package redisstore keeps dialer idempotency keys in Redis, so the
// at-most-once meeting guarantee holds across engine restarts and replicas.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/coldcall/svc/dialer"
)

// Client is the part of redis.UniversalClient the store needs.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Idempotency implements dialer.IdempotencyStore with SET NX PX.
type Idempotency struct {
	client Client
	prefix string
}

var _ dialer.IdempotencyStore = (*Idempotency)(nil)

// NewIdempotency namespaces keys with prefix, e.g. "coldcall:".
func NewIdempotency(client Client, prefix string) *Idempotency {
	return &Idempotency{client: client, prefix: prefix + "idem:"}
}

// Acquire reports whether this caller is the first to claim key within ttl.
func (s *Idempotency) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Release drops key so the next Acquire succeeds.
func (s *Idempotency) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
