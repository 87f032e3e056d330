package dialer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coldcall/svc/dialer"
)

// businessHours is 9:00-17:00 UTC, Monday to Friday.
var businessHours = dialer.CallWindow{Start: 9, End: 17, WeekdaysOnly: true, Location: time.UTC}

// Week of Monday 2026-03-02.
func day(d, hour, minute int) time.Time {
	return time.Date(2026, 3, d, hour, minute, 0, 0, time.UTC)
}

func TestCallWindow_Adjust(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"inside hours", day(3, 11, 15), day(3, 11, 15)},
		{"opening instant", day(3, 9, 0), day(3, 9, 0)},
		{"before opening", day(3, 7, 30), day(3, 9, 0)},
		{"closing instant", day(3, 17, 0), day(4, 9, 0)},
		{"after hours", day(4, 22, 0), day(5, 9, 0)},
		{"friday evening", day(6, 18, 0), day(9, 9, 0)},
		{"saturday", day(7, 12, 0), day(9, 9, 0)},
		{"sunday early", day(8, 3, 0), day(9, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := businessHours.Adjust(tt.at)
			assert.Equal(t, tt.want, got)
			assert.True(t, businessHours.Allows(got))
		})
	}
}

func TestCallWindow_Variants(t *testing.T) {
	t.Parallel()

	t.Run("zero window allows everything", func(t *testing.T) {
		t.Parallel()
		var w dialer.CallWindow
		assert.False(t, w.Enabled())
		assert.True(t, w.Allows(day(7, 3, 0)))
		assert.Equal(t, day(7, 3, 0), w.Adjust(day(7, 3, 0)))
		assert.Equal(t, "always", w.String())
	})

	t.Run("weekdays only with open hours", func(t *testing.T) {
		t.Parallel()
		w := dialer.CallWindow{WeekdaysOnly: true}
		assert.True(t, w.Allows(day(6, 23, 30)))
		assert.Equal(t, day(9, 0, 0), w.Adjust(day(7, 15, 0)))
	})

	t.Run("hours in another zone", func(t *testing.T) {
		t.Parallel()
		berlin, err := time.LoadLocation("Europe/Berlin")
		require.NoError(t, err)
		w := dialer.CallWindow{Start: 9, End: 17, Location: berlin}

		// 07:00 UTC is 08:00 in Berlin in March, before DST starts.
		got := w.Adjust(day(3, 7, 0))
		assert.Equal(t, day(3, 8, 0), got)
		assert.Equal(t, time.UTC, got.Location())
		assert.Equal(t, "daily 09:00-17:00 Europe/Berlin", w.String())
	})
}

func TestEngine_CallWindowGatesDispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig()
	cfg.CallWindowStart = 10
	cfg.CallWindowEnd = 18

	h := newHarness(t, cfg, nil)
	lead := h.addLead(t, "+14155550100")
	h.run(t)
	h.engine.Start()

	n, err := h.engine.DispatchNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "09:00 is before the window opens")
	got, err := h.engine.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ClaimedBy, "nothing is claimed while closed")

	h.clock.Advance(time.Hour)
	n, err = h.engine.DispatchNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	a := h.waitAttempt(t, lead.ID, 1, placed)

	// The one-minute retry delay from 17:59:30 crosses closing time.
	h.clock.Advance(7*time.Hour + 59*time.Minute + 30*time.Second)
	h.submit(t, dialer.Event{Kind: dialer.EventBusy, CallHandle: a.CallHandle})

	got, err = h.engine.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NotBefore)
	assert.Equal(t, day(3, 10, 0), *got.NotBefore)
}
