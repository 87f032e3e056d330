package dialer

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/coldcall/handler"
	"github.com/dmitrymomot/coldcall/pkg/binder"
	dialersvc "github.com/dmitrymomot/coldcall/svc/dialer"
)

type leadRequest struct {
	ID uuid.UUID `path:"id" json:"-"`
}

type updateLeadRequest struct {
	ID uuid.UUID `path:"id" json:"-"`
	dialersvc.LeadPatch
}

// scheduleCallRequest carries the call time. Omit at to call as soon as
// possible.
type scheduleCallRequest struct {
	ID uuid.UUID  `path:"id" json:"-"`
	At *time.Time `json:"at,omitempty"`
}

type statsRequest struct {
	Days int `query:"days"`
}

type toggleResponse struct {
	Running bool `json:"running"`
	Changed bool `json:"changed"`
}

type dispatchResponse struct {
	Dispatched int `json:"dispatched"`
}

func wrap[R any](onError handler.ErrorHandler[handler.Context], h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](onError),
	)
}

func pathID() handler.Bind { return binder.Path(chi.URLParam) }

func (h *handlers) schedulerStatus() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, _ struct{}) handler.Response {
		snap, err := h.engine.Status(ctx)
		if err != nil {
			return h.fail(ctx, err)
		}
		return handler.JSON(snap)
	})
}

func (h *handlers) schedulerStart() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, _ struct{}) handler.Response {
		return handler.JSON(toggleResponse{Running: true, Changed: h.engine.Start()})
	})
}

func (h *handlers) schedulerStop() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, _ struct{}) handler.Response {
		return handler.JSON(toggleResponse{Running: false, Changed: h.engine.Stop()})
	})
}

func (h *handlers) schedulerDispatch() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, _ struct{}) handler.Response {
		n, err := h.engine.DispatchNow(ctx)
		if err != nil {
			return h.fail(ctx, err)
		}
		return handler.JSON(dispatchResponse{Dispatched: n})
	})
}

func (h *handlers) schedulerStats() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, req statsRequest) handler.Response {
		if req.Days < 0 || req.Days > 365 {
			return handler.JSONError(fmt.Errorf("%w: days must be between 0 and 365", handler.ErrBadRequest))
		}
		stats, err := h.engine.Stats(ctx, req.Days)
		if err != nil {
			return h.fail(ctx, err)
		}
		return handler.JSON(stats)
	}, binder.Query())
}

func (h *handlers) createLead() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, req dialersvc.LeadInput) handler.Response {
		lead, err := h.engine.AddLead(ctx, req)
		if err != nil {
			return h.fail(ctx, err)
		}
		return handler.JSON(lead, handler.WithJSONStatus(http.StatusCreated))
	}, binder.JSON())
}

func (h *handlers) getLead() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, req leadRequest) handler.Response {
		lead, err := h.engine.GetLead(ctx, req.ID)
		if err != nil {
			return h.fail(ctx, err)
		}
		return handler.JSON(lead)
	}, pathID())
}

func (h *handlers) updateLead() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, req updateLeadRequest) handler.Response {
		lead, err := h.engine.UpdateLead(ctx, req.ID, req.LeadPatch)
		if err != nil {
			return h.fail(ctx, err)
		}
		return handler.JSON(lead)
	}, pathID(), binder.JSON())
}

func (h *handlers) scheduleCall() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, req scheduleCallRequest) handler.Response {
		var at time.Time
		if req.At != nil {
			at = *req.At
		}
		lead, err := h.engine.ScheduleCall(ctx, req.ID, at)
		if err != nil {
			return h.fail(ctx, err)
		}
		return handler.JSON(lead)
	}, pathID(), binder.JSON())
}

func (h *handlers) deleteLead() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, req leadRequest) handler.Response {
		if err := h.engine.DeleteLead(ctx, req.ID); err != nil {
			return h.fail(ctx, err)
		}
		return handler.Empty()
	}, pathID())
}

func (h *handlers) leadCalls() http.HandlerFunc {
	return wrap(h.onError, func(ctx handler.Context, req leadRequest) handler.Response {
		calls, err := h.engine.LeadHistory(ctx, req.ID)
		if err != nil {
			return h.fail(ctx, err)
		}
		return handler.JSON(calls, handler.WithJSONMeta(map[string]any{"total": len(calls)}))
	}, pathID())
}

// bearerAuth rejects requests whose Authorization header does not carry token.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
