package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/coldcall/pkg/logger"
	"github.com/dmitrymomot/coldcall/pkg/webhook"
	"github.com/dmitrymomot/coldcall/svc/dialer"
)

// HeaderTwilioSignature carries the status callback signature.
const HeaderTwilioSignature = "X-Twilio-Signature"

// Twilio places calls through the Twilio REST API.
type Twilio struct {
	cfg  TelephonyConfig
	opts *options
	log  *slog.Logger
}

var _ dialer.Telephony = (*Twilio)(nil)

func NewTwilio(cfg TelephonyConfig, opts ...Option) (*Twilio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &Twilio{
		cfg:  cfg,
		opts: o,
		log:  o.logger.With(logger.Component("twilio")),
	}, nil
}

type twilioCall struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// PlaceCall creates the call and returns its CallSid. The attempt id rides
// on the status callback URL so callbacks resolve without a handle lookup.
func (t *Twilio) PlaceCall(ctx context.Context, req dialer.PlaceCallRequest) (string, error) {
	callback, err := withQuery(t.cfg.CallbackURL, "attempt_id", req.AttemptID.String())
	if err != nil {
		return "", err
	}

	form := url.Values{
		"To":                  {req.Phone},
		"From":                {t.cfg.FromNumber},
		"Url":                 {t.cfg.AnswerURL},
		"StatusCallback":      {callback},
		"StatusCallbackEvent": {"initiated", "ringing", "answered", "completed"},
	}
	if req.RingTimeout > 0 {
		form.Set("Timeout", strconv.Itoa(int(req.RingTimeout/time.Second)))
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", strings.TrimRight(t.cfg.BaseURL, "/"), t.cfg.AccountSID)
	body := form.Encode()

	resp, err := t.opts.sender.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.Header.Set("Accept", "application/json")
		return r, nil
	},
		webhook.WithTimeout(t.cfg.Timeout),
		webhook.WithMaxRetries(t.cfg.MaxRetries),
		webhook.WithBackoff(t.opts.backoff),
		webhook.WithCircuitBreaker(t.opts.breaker),
	)
	if err != nil {
		return "", fmt.Errorf("twilio create call: %w", err)
	}

	var call twilioCall
	if err := json.Unmarshal(resp.Body, &call); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if call.SID == "" {
		return "", fmt.Errorf("%w: empty call sid", ErrInvalidResponse)
	}

	t.log.DebugContext(ctx, "call created",
		logger.AttemptID(req.AttemptID),
		logger.CallHandle(call.SID),
		slog.String("status", call.Status),
	)
	return call.SID, nil
}

// VerifySignature checks a status callback against the account auth token.
// fullURL must be the exact URL Twilio requested, including the query.
func (t *Twilio) VerifySignature(fullURL string, form url.Values, signature string) error {
	return VerifyTwilioSignature(t.cfg.AuthToken, fullURL, form, signature)
}

// VerifyTwilioSignature validates X-Twilio-Signature: base64 HMAC-SHA1 of
// the URL followed by every POST parameter as name+value, sorted by name.
func VerifyTwilioSignature(authToken, fullURL string, form url.Values, signature string) error {
	if signature == "" {
		return fmt.Errorf("%w: missing %s", ErrInvalidSignature, HeaderTwilioSignature)
	}
	expected := TwilioSignature(authToken, fullURL, form)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}

// TwilioSignature computes the X-Twilio-Signature value.
func TwilioSignature(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func withQuery(raw, key, value string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
