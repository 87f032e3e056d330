package binder

import "errors"

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMissingContentType   = errors.New("missing content type")
	ErrFailedToParseJSON    = errors.New("failed to parse JSON request body")
	ErrFailedToParseQuery   = errors.New("failed to parse query parameters")
	ErrFailedToParsePath    = errors.New("failed to parse path parameters")
	// ErrBinderNotApplicable tells the caller to skip the binder for this
	// request, e.g. a body binder on a GET.
	ErrBinderNotApplicable = errors.New("binder not applicable")
)
