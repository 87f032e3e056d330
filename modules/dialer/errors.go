package dialer

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/coldcall/handler"
	"github.com/dmitrymomot/coldcall/pkg/logger"
	dialersvc "github.com/dmitrymomot/coldcall/svc/dialer"
	"github.com/dmitrymomot/coldcall/svc/providers"
)

// httpError tags known domain errors with the HTTP error they map to.
// Unknown errors pass through and render as 500.
func httpError(err error) error {
	var status handler.HTTPError
	switch {
	case errors.Is(err, dialersvc.ErrLeadNotFound), errors.Is(err, dialersvc.ErrAttemptNotFound):
		status = handler.ErrNotFound
	case errors.Is(err, dialersvc.ErrDuplicateLead), errors.Is(err, dialersvc.ErrLeadBusy),
		errors.Is(err, dialersvc.ErrSchedulerOff):
		status = handler.ErrConflict
	case errors.Is(err, dialersvc.ErrInvalidLead):
		status = handler.ErrUnprocessableEntity
	case errors.Is(err, dialersvc.ErrEngineStopped):
		status = handler.ErrServiceUnavailable
	case errors.Is(err, dialersvc.ErrUnknownEvent), errors.Is(err, dialersvc.ErrEventTarget),
		errors.Is(err, providers.ErrInvalidReport), errors.Is(err, providers.ErrMissingCallHandle),
		errors.Is(err, providers.ErrUnknownCallStatus):
		status = handler.ErrBadRequest
	case errors.Is(err, providers.ErrInvalidSignature):
		status = handler.ErrUnauthorized
	default:
		return err
	}
	return fmt.Errorf("%w: %w", status, err)
}

// fail logs err and renders it as a JSON error.
func (h *handlers) fail(ctx handler.Context, err error) handler.Response {
	err = httpError(err)

	level := slog.LevelError
	var status handler.HTTPError
	if errors.As(err, &status) && status.Code < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	r := ctx.Request()
	h.log.LogAttrs(ctx, level, "request failed",
		logger.Error(err),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	return handler.JSONError(err)
}
