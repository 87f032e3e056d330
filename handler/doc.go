// Package handler turns typed request handlers into http.HandlerFuncs.
//
// A handler receives a Context and a request struct filled by binders, and
// returns a Response:
//
//	type getLeadRequest struct {
//		ID uuid.UUID `path:"id"`
//	}
//
//	func (h *Handler) getLead(ctx handler.Context, req getLeadRequest) handler.Response {
//		lead, err := h.engine.GetLead(ctx, req.ID)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(lead)
//	}
//
//	r.Get("/leads/{id}", handler.Wrap(h.getLead,
//		handler.WithBinders[handler.Context, getLeadRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[handler.Context, getLeadRequest](handler.NewErrorHandler(log)),
//	))
//
// JSON bodies use the JSONResponse envelope. JSONError maps HTTPError,
// validator.ValidationErrors and binder errors to status codes; other
// errors become a 500 without leaking their message.
package handler
