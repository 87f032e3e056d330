// Package requestid attaches a correlation id to every inbound HTTP request.
//
// Middleware reuses a valid X-Request-ID header or generates a UUID, stores it
// in the request context and echoes it in the response. WithFallbackHeaders
// lets provider webhooks reuse the provider's own delivery token instead, so
// retried callbacks share one id in the logs.
//
// LoggerExtractor plugs the id into logger.WithContextExtractors:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.WithFallbackHeaders(requestid.TwilioIdempotencyHeader))
package requestid
