package providers

import (
	"errors"
	"time"

	"github.com/dmitrymomot/coldcall/pkg/validator"
)

var httpSchemes = []string{"http", "https"}

// TelephonyConfig configures the Twilio-compatible voice API.
type TelephonyConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `env:"TWILIO_FROM_NUMBER"`
	BaseURL    string `env:"TWILIO_BASE_URL" envDefault:"https://api.twilio.com"`
	// AnswerURL returns the call instructions that bridge the callee to
	// the conversation service.
	AnswerURL string `env:"TWILIO_ANSWER_URL"`
	// CallbackURL is the public address of the status callback endpoint.
	CallbackURL string        `env:"TWILIO_STATUS_CALLBACK_URL"`
	Timeout     time.Duration `env:"TWILIO_TIMEOUT" envDefault:"10s"`
	MaxRetries  int           `env:"TWILIO_MAX_RETRIES" envDefault:"0"`
}

func (c TelephonyConfig) Validate() error {
	return wrapConfig(validator.Apply(
		validator.RequiredString("TWILIO_ACCOUNT_SID", c.AccountSID),
		validator.RequiredString("TWILIO_AUTH_TOKEN", c.AuthToken),
		validator.ValidPhone("TWILIO_FROM_NUMBER", c.FromNumber),
		validator.ValidURLWithScheme("TWILIO_BASE_URL", c.BaseURL, httpSchemes),
		validator.ValidURLWithScheme("TWILIO_ANSWER_URL", c.AnswerURL, httpSchemes),
		validator.ValidURLWithScheme("TWILIO_STATUS_CALLBACK_URL", c.CallbackURL, httpSchemes),
		validator.MinNum("TWILIO_TIMEOUT", c.Timeout, time.Second),
		validator.MinNum("TWILIO_MAX_RETRIES", c.MaxRetries, 0),
	))
}

// ConversationConfig configures the conversation service. Requests and
// reports are signed with Secret.
type ConversationConfig struct {
	URL         string        `env:"CONVERSATION_URL"`
	Secret      string        `env:"CONVERSATION_SECRET"`
	CallbackURL string        `env:"CONVERSATION_CALLBACK_URL"`
	Timeout     time.Duration `env:"CONVERSATION_TIMEOUT" envDefault:"10s"`
	MaxAge      time.Duration `env:"CONVERSATION_SIGNATURE_MAX_AGE" envDefault:"5m"`
}

func (c ConversationConfig) Validate() error {
	return wrapConfig(validator.Apply(
		validator.ValidURLWithScheme("CONVERSATION_URL", c.URL, httpSchemes),
		validator.RequiredString("CONVERSATION_SECRET", c.Secret),
		validator.ValidURLWithScheme("CONVERSATION_CALLBACK_URL", c.CallbackURL, httpSchemes),
		validator.MinNum("CONVERSATION_TIMEOUT", c.Timeout, time.Second),
		validator.MinNum("CONVERSATION_SIGNATURE_MAX_AGE", c.MaxAge, 0),
	))
}

// MeetingConfig configures the meeting service. With ClientID set, calls
// are authorized by an OAuth2 client-credentials token from TokenURL.
type MeetingConfig struct {
	URL          string        `env:"MEETING_URL"`
	TokenURL     string        `env:"MEETING_TOKEN_URL"`
	ClientID     string        `env:"MEETING_CLIENT_ID"`
	ClientSecret string        `env:"MEETING_CLIENT_SECRET"`
	Scopes       []string      `env:"MEETING_SCOPES" envSeparator:","`
	Timeout      time.Duration `env:"MEETING_TIMEOUT" envDefault:"10s"`
	MaxRetries   int           `env:"MEETING_MAX_RETRIES" envDefault:"2"`
}

func (c MeetingConfig) Validate() error {
	return wrapConfig(validator.Apply(
		validator.ValidURLWithScheme("MEETING_URL", c.URL, httpSchemes),
		validator.When(c.ClientID != "", validator.ValidURLWithScheme("MEETING_TOKEN_URL", c.TokenURL, httpSchemes)),
		validator.When(c.ClientID != "", validator.RequiredString("MEETING_CLIENT_SECRET", c.ClientSecret)),
		validator.MinNum("MEETING_TIMEOUT", c.Timeout, time.Second),
		validator.MinNum("MEETING_MAX_RETRIES", c.MaxRetries, 0),
	))
}

// NotifierConfig sets the optional internal copy of meeting notifications.
type NotifierConfig struct {
	InternalRecipient string `env:"NOTIFY_INTERNAL_EMAIL"`
	CompanyName       string `env:"NOTIFY_COMPANY_NAME" envDefault:"Coldcall"`
}

func (c NotifierConfig) Validate() error {
	return wrapConfig(validator.Apply(
		validator.When(c.InternalRecipient != "", validator.ValidEmail("NOTIFY_INTERNAL_EMAIL", c.InternalRecipient)),
	))
}

// OutcomeConfig enables outcome webhooks when URL is set.
type OutcomeConfig struct {
	URL    string `env:"OUTCOME_WEBHOOK_URL"`
	Secret string `env:"OUTCOME_WEBHOOK_SECRET"`
}

func (c OutcomeConfig) Validate() error {
	return wrapConfig(validator.Apply(
		validator.When(c.URL != "", validator.ValidURLWithScheme("OUTCOME_WEBHOOK_URL", c.URL, httpSchemes)),
	))
}

// Config groups all provider settings for config.Load.
type Config struct {
	Telephony    TelephonyConfig
	Conversation ConversationConfig
	Meeting      MeetingConfig
	Notifier     NotifierConfig
	Outcome      OutcomeConfig
}

func (c Config) Validate() error {
	return errors.Join(
		c.Telephony.Validate(),
		c.Conversation.Validate(),
		c.Meeting.Validate(),
		c.Notifier.Validate(),
		c.Outcome.Validate(),
	)
}

func wrapConfig(err error) error {
	if err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}
