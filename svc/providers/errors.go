package providers

import "errors"

var (
	ErrInvalidConfig     = errors.New("providers: invalid config")
	ErrInvalidSignature  = errors.New("providers: invalid request signature")
	ErrUnknownCallStatus = errors.New("providers: unknown call status")
	ErrMissingCallHandle = errors.New("providers: callback without call handle")
	ErrInvalidReport     = errors.New("providers: invalid conversation report")
	ErrInvalidResponse   = errors.New("providers: invalid provider response")
)
