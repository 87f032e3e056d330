package dialer

import (
	"errors"
	"time"

	"github.com/dmitrymomot/coldcall/pkg/validator"
)

// Config bounds the engine. Zero RetryDelay derives the delay from
// CallSetupTimeout.
type Config struct {
	MaxConcurrentCalls int           `env:"DIALER_MAX_CONCURRENT_CALLS" envDefault:"5"`
	MaxCallDuration    time.Duration `env:"DIALER_MAX_CALL_DURATION" envDefault:"5m"`
	MaxRetryAttempts   int           `env:"DIALER_MAX_RETRY_ATTEMPTS" envDefault:"3"`
	CallSetupTimeout   time.Duration `env:"DIALER_CALL_SETUP_TIMEOUT" envDefault:"60s"`
	CheckInterval      time.Duration `env:"DIALER_CHECK_INTERVAL" envDefault:"30s"`
	RetryDelay         time.Duration `env:"DIALER_RETRY_DELAY" envDefault:"0s"`
	ClaimTTL           time.Duration `env:"DIALER_CLAIM_TTL" envDefault:"2m"`

	// MeetingKeyTTL bounds how long one booking request may stay in flight.
	MeetingKeyTTL time.Duration `env:"DIALER_MEETING_KEY_TTL" envDefault:"10m"`
	// MeetingRetryWindow is how long after a booked call the sweep keeps
	// retrying a failed meeting booking.
	MeetingRetryWindow time.Duration `env:"DIALER_MEETING_RETRY_WINDOW" envDefault:"24h"`

	// Calls start only between CallWindowStart and CallWindowEnd o'clock in
	// CallWindowTimezone. Equal hours leave the day open.
	CallWindowStart        int    `env:"DIALER_CALL_WINDOW_START" envDefault:"0"`
	CallWindowEnd          int    `env:"DIALER_CALL_WINDOW_END" envDefault:"0"`
	CallWindowWeekdaysOnly bool   `env:"DIALER_CALL_WINDOW_WEEKDAYS_ONLY" envDefault:"false"`
	CallWindowTimezone     string `env:"DIALER_CALL_WINDOW_TZ" envDefault:"UTC"`

	PendingSoftCap       int     `env:"DIALER_PENDING_SOFT_CAP" envDefault:"100"`
	OverdueRatio         float64 `env:"DIALER_OVERDUE_RATIO" envDefault:"0.8"`
	CriticalOverdueRatio float64 `env:"DIALER_CRITICAL_OVERDUE_RATIO" envDefault:"0.5"`

	EventBuffer int  `env:"DIALER_EVENT_BUFFER" envDefault:"256"`
	AutoStart   bool `env:"DIALER_AUTO_START" envDefault:"false"`
}

// DefaultConfig mirrors the env defaults for code that does not load from env.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentCalls:   5,
		MaxCallDuration:      5 * time.Minute,
		MaxRetryAttempts:     3,
		CallSetupTimeout:     60 * time.Second,
		CheckInterval:        30 * time.Second,
		ClaimTTL:             2 * time.Minute,
		MeetingKeyTTL:        10 * time.Minute,
		MeetingRetryWindow:   24 * time.Hour,
		CallWindowTimezone:   "UTC",
		PendingSoftCap:       100,
		OverdueRatio:         0.8,
		CriticalOverdueRatio: 0.5,
		EventBuffer:          256,
	}
}

func (c Config) Validate() error {
	hoursSet := c.CallWindowStart != c.CallWindowEnd
	err := validator.Apply(
		validator.MinNum("DIALER_MAX_CONCURRENT_CALLS", c.MaxConcurrentCalls, 1),
		validator.MinNum("DIALER_MAX_RETRY_ATTEMPTS", c.MaxRetryAttempts, 1),
		validator.PositiveNum("DIALER_MAX_CALL_DURATION", c.MaxCallDuration),
		validator.PositiveNum("DIALER_CALL_SETUP_TIMEOUT", c.CallSetupTimeout),
		validator.PositiveNum("DIALER_CHECK_INTERVAL", c.CheckInterval),
		validator.MinNum("DIALER_RETRY_DELAY", c.RetryDelay, 0),
		validator.PositiveNum("DIALER_CLAIM_TTL", c.ClaimTTL),
		validator.PositiveNum("DIALER_MEETING_KEY_TTL", c.MeetingKeyTTL),
		validator.MinNum("DIALER_MEETING_RETRY_WINDOW", c.MeetingRetryWindow, 0),
		validator.RangeNum("DIALER_CALL_WINDOW_START", c.CallWindowStart, 0, 23),
		validator.RangeNum("DIALER_CALL_WINDOW_END", c.CallWindowEnd, 0, 24),
		validator.When(hoursSet, validator.LessNum("DIALER_CALL_WINDOW_START", c.CallWindowStart, c.CallWindowEnd)),
		validator.ValidTimezone("DIALER_CALL_WINDOW_TZ", c.CallWindowTimezone),
		validator.MinNum("DIALER_PENDING_SOFT_CAP", c.PendingSoftCap, 0),
		validator.PositiveNum("DIALER_OVERDUE_RATIO", c.OverdueRatio),
		validator.LessNum("DIALER_OVERDUE_RATIO", c.OverdueRatio, 1),
		validator.PositiveNum("DIALER_CRITICAL_OVERDUE_RATIO", c.CriticalOverdueRatio),
		validator.MaxNum("DIALER_CRITICAL_OVERDUE_RATIO", c.CriticalOverdueRatio, 1),
	)
	if err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

// CallWindow builds the calling window. The config must be valid.
func (c Config) CallWindow() (CallWindow, error) {
	loc, err := time.LoadLocation(c.CallWindowTimezone)
	if err != nil {
		return CallWindow{}, errors.Join(ErrInvalidConfig, err)
	}
	return CallWindow{
		Start:        c.CallWindowStart,
		End:          c.CallWindowEnd,
		WeekdaysOnly: c.CallWindowWeekdaysOnly,
		Location:     loc,
	}, nil
}

func (c Config) retryDelay() time.Duration {
	if c.RetryDelay > 0 {
		return c.RetryDelay
	}
	return c.CallSetupTimeout
}

func (c Config) eventBuffer() int {
	if c.EventBuffer > 0 {
		return c.EventBuffer
	}
	return 1
}
