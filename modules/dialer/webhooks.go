package dialer

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrymomot/coldcall/handler"
	"github.com/dmitrymomot/coldcall/pkg/logger"
	"github.com/dmitrymomot/coldcall/svc/providers"
)

const maxWebhookBody = 1 << 20

// telephonyStatus accepts provider status callbacks. The form is read
// directly because its signature covers the raw parameters.
func (h *handlers) telephonyStatus() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, _ struct{}) handler.Response {
		r := ctx.Request()
		r.Body = http.MaxBytesReader(ctx.ResponseWriter(), r.Body, maxWebhookBody)
		if err := r.ParseForm(); err != nil {
			return h.fail(ctx, fmt.Errorf("%w: %w", handler.ErrBadRequest, err))
		}

		if h.telephony != nil {
			sig := r.Header.Get(providers.HeaderTwilioSignature)
			if err := h.telephony.VerifySignature(h.callbackURL(r), r.PostForm, sig); err != nil {
				return h.fail(ctx, err)
			}
		}

		cb, err := providers.ParseStatusCallback(r.URL.Query(), r.PostForm)
		if err != nil {
			return h.fail(ctx, err)
		}
		ev, err := cb.Event(h.now())
		if err != nil {
			return h.fail(ctx, err)
		}
		if err := h.engine.Submit(ctx, ev); err != nil {
			return h.fail(ctx, err)
		}

		h.log.DebugContext(ctx, "status callback accepted",
			logger.CallHandle(cb.CallSid),
			logger.Event(string(ev.Kind)),
		)
		return handler.Empty()
	})
}

// conversationReport accepts signed reports from the conversation agent.
func (h *handlers) conversationReport() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, _ struct{}) handler.Response {
		r := ctx.Request()
		body, err := io.ReadAll(http.MaxBytesReader(ctx.ResponseWriter(), r.Body, maxWebhookBody))
		if err != nil {
			return h.fail(ctx, fmt.Errorf("%w: %w", handler.ErrBadRequest, err))
		}

		report, err := h.conversation.ParseReport(r.Header, body)
		if err != nil {
			return h.fail(ctx, err)
		}
		ev, err := report.Event(h.now())
		if err != nil {
			return h.fail(ctx, err)
		}
		if err := h.engine.Submit(ctx, ev); err != nil {
			return h.fail(ctx, err)
		}

		h.log.DebugContext(ctx, "conversation report accepted",
			logger.AttemptID(report.AttemptID),
			logger.Event(string(ev.Kind)),
		)
		return handler.Empty()
	})
}

// callbackURL rebuilds the URL the provider signed.
func (h *handlers) callbackURL(r *http.Request) string {
	if h.publicURL != "" {
		return strings.TrimRight(h.publicURL, "/") + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
