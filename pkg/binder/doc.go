// Package binder fills request structs from JSON bodies, query strings and
// path parameters.
//
//	type UpdateLeadRequest struct {
//		ID     uuid.UUID `path:"id"`
//		DryRun bool      `query:"dry_run"`
//		Name   *string   `json:"name"`
//	}
//
//	handler.Wrap(h, handler.WithBinders[handler.Context, UpdateLeadRequest](
//		binder.Path(chi.URLParam),
//		binder.Query(),
//		binder.JSON(),
//	))
//
// Fields implementing encoding.TextUnmarshaler, such as uuid.UUID, are
// decoded through UnmarshalText. Binders that do not apply to a request
// return ErrBinderNotApplicable.
package binder
