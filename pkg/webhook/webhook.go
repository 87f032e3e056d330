package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent       = "coldcall-webhook/1.0"
	maxResponseBody = 64 * 1024
)

// RequestFunc builds a fresh request for each attempt.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Response is a buffered 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Sender delivers HTTP requests with retries and circuit breaking.
// Use NewSender to create instances.
type Sender struct {
	client *http.Client
}

func NewSender() *Sender {
	return &Sender{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewSenderWithClient uses client for all requests; nil falls back to NewSender.
func NewSenderWithClient(client *http.Client) *Sender {
	if client == nil {
		return NewSender()
	}
	return &Sender{client: client}
}

// Send POSTs data as JSON to webhookURL.
func (s *Sender) Send(ctx context.Context, webhookURL string, data any, opts ...SendOption) error {
	if err := validateURL(webhookURL); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if len(payload) == 0 || string(payload) == "null" {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	options := collect(opts)
	_, err = s.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if options.signatureSecret != "" {
			sig, err := SignPayload(options.signatureSecret, payload)
			if err != nil {
				return nil, err
			}
			sig.Apply(req.Header)
		}
		return req, nil
	}, options)
	return err
}

// Do runs build with the same retry, timeout and circuit breaker handling as
// Send, and returns the buffered response of the first 2xx attempt.
func (s *Sender) Do(ctx context.Context, build RequestFunc, opts ...SendOption) (*Response, error) {
	return s.do(ctx, build, collect(opts))
}

func (s *Sender) do(ctx context.Context, build RequestFunc, options *sendOptions) (*Response, error) {
	if options.circuitBreaker != nil && !options.circuitBreaker.Allow() {
		return nil, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= options.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(options.backoffStrategy.NextInterval(attempt)):
			}
		}

		resp, result, err := s.attempt(ctx, build, options)
		if options.onDelivery != nil {
			result.Attempt = attempt + 1
			options.onDelivery(result)
		}
		if options.circuitBreaker != nil {
			if err == nil {
				options.circuitBreaker.RecordSuccess()
			} else {
				options.circuitBreaker.RecordFailure()
			}
		}
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !Retryable(result.StatusCode) || errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrInvalidConfiguration) {
			return nil, fmt.Errorf("%w: %w", ErrPermanentFailure, err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, options.maxRetries+1, lastErr)
}

func (s *Sender) attempt(ctx context.Context, build RequestFunc, options *sendOptions) (*Response, DeliveryResult, error) {
	start := time.Now()
	var result DeliveryResult

	reqCtx, cancel := context.WithTimeout(ctx, options.timeout)
	defer cancel()

	req, err := build(reqCtx)
	if err != nil {
		result.Error = err
		return nil, result, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range options.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, result, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, result, fmt.Errorf("%w: %w", ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = &StatusError{Code: resp.StatusCode, Body: sanitize(body)}
		return nil, result, result.Error
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, result, nil
}

func collect(opts []SendOption) *sendOptions {
	options := defaultSendOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}

// sanitize keeps response bodies single-line and short enough for logs.
func sanitize(body []byte) string {
	s := strings.ReplaceAll(strings.TrimSpace(string(body)), "\n", " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
