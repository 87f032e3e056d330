package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	Header      = "X-Request-ID"
	maxIDLength = 128
	idPattern   = "^[a-zA-Z0-9_-]+$"
)

// TwilioIdempotencyHeader carries Twilio's per-delivery token; retried status
// callbacks repeat it, which makes it a useful correlation id.
const TwilioIdempotencyHeader = "I-Twilio-Idempotency-Token"

var validIDRegex = regexp.MustCompile(idPattern)

// Middleware attaches a request ID taken from X-Request-ID or generated fresh.
func Middleware(next http.Handler) http.Handler {
	return WithFallbackHeaders()(next)
}

// WithFallbackHeaders returns a middleware that consults the given headers,
// in order, when X-Request-ID is absent or invalid.
func WithFallbackHeaders(headers ...string) func(http.Handler) http.Handler {
	lookup := append([]string{Header}, headers...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := ""
			for _, h := range lookup {
				if v := r.Header.Get(h); isValidRequestID(v) {
					requestID = v
					break
				}
			}
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(Header, requestID)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), requestID)))
		})
	}
}

func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > maxIDLength {
		return false
	}
	return validIDRegex.MatchString(id)
}
