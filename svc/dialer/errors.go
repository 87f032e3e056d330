package dialer

import "errors"

var (
	ErrLeadNotFound        = errors.New("lead not found")
	ErrDuplicateLead       = errors.New("lead with this phone already exists")
	ErrLeadBusy            = errors.New("lead has an active call attempt")
	ErrAttemptNotFound     = errors.New("call attempt not found")
	ErrActiveAttemptExists = errors.New("lead already has an active call attempt")
	ErrAttemptNumber       = errors.New("attempt number must increase per lead")
	ErrAttemptNotActive    = errors.New("call attempt is not active")
	ErrLeadNotClaimable    = errors.New("lead is no longer claimed for this attempt")

	ErrSlotNotHeld    = errors.New("admission slot is not held")
	ErrEngineStopped  = errors.New("engine event loop is not running")
	ErrEngineRunning  = errors.New("engine is already running")
	ErrSchedulerOff   = errors.New("scheduler is stopped")
	ErrUnknownEvent   = errors.New("unknown event kind")
	ErrEventTarget    = errors.New("event has neither attempt id nor call handle")
	ErrNilDependency  = errors.New("required dependency is nil")
	ErrInvalidConfig  = errors.New("invalid dialer configuration")
	ErrInvalidLead    = errors.New("invalid lead")
)
