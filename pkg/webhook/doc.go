// Package webhook delivers outbound HTTP calls with retries, exponential
// backoff, HMAC-SHA256 signing and a per-endpoint circuit breaker.
//
// Send POSTs a JSON payload; the dialer uses it to publish call outcome
// events. Do takes a request builder and returns the buffered response, so
// provider clients share the same retry and breaker handling for their own
// request formats.
//
//	sender := webhook.NewSender()
//	cb := webhook.NewCircuitBreaker(5, 2, 30*time.Second)
//
//	err := sender.Send(ctx, "https://crm.example.com/hooks/calls", event,
//		webhook.WithSignature(secret),
//		webhook.WithCircuitBreaker(cb),
//	)
//
// Receivers verify a signed request with ParseSignatureHeaders and
// VerifySignature:
//
//	sig, err := webhook.ParseSignatureHeaders(r.Header)
//	if err == nil {
//		err = webhook.VerifySignature(secret, body, sig, 5*time.Minute)
//	}
//
// 4xx responses other than 408, 425 and 429 are permanent and are not
// retried. Errors wrap ErrPermanentFailure, ErrDeliveryFailed,
// ErrCircuitOpen or ErrTimeout, and non-2xx responses carry a *StatusError.
package webhook
