package webhook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/coldcall/pkg/webhook"
)

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	b := webhook.ExponentialBackoff{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second, Multiplier: 2}
	assert.Equal(t, time.Duration(0), b.NextInterval(0))
	assert.Equal(t, 100*time.Millisecond, b.NextInterval(1))
	assert.Equal(t, 200*time.Millisecond, b.NextInterval(2))
	assert.Equal(t, 400*time.Millisecond, b.NextInterval(3))
	assert.Equal(t, time.Second, b.NextInterval(10))

	jittered := webhook.ExponentialBackoff{InitialInterval: time.Second, MaxInterval: time.Minute, Multiplier: 2, JitterFactor: 0.1}
	for range 20 {
		d := jittered.NextInterval(2)
		assert.GreaterOrEqual(t, d, 1800*time.Millisecond)
		assert.LessOrEqual(t, d, 2200*time.Millisecond)
	}

	assert.Equal(t, time.Second, webhook.ExponentialBackoff{}.NextInterval(1))
}

func TestFixedBackoff(t *testing.T) {
	t.Parallel()

	b := webhook.FixedBackoff{Interval: 5 * time.Millisecond}
	assert.Equal(t, time.Duration(0), b.NextInterval(0))
	assert.Equal(t, 5*time.Millisecond, b.NextInterval(1))
	assert.Equal(t, 5*time.Millisecond, b.NextInterval(7))
}
