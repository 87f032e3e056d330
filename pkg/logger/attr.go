package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// LeadID records the lead identifier under the key "lead_id".
// If id is nil, it returns an empty Attr.
func LeadID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("lead_id", id)
}

// AttemptID records the call attempt identifier under the key "attempt_id".
// If id is nil, it returns an empty Attr.
func AttemptID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("attempt_id", id)
}

// AttemptNumber records the 1-based attempt ordinal under the key "attempt_number".
func AttemptNumber(n int) slog.Attr {
	return slog.Int("attempt_number", n)
}

// CallHandle records the telephony provider's call id under the key "call_handle".
// If handle is empty, it returns an empty Attr.
func CallHandle(handle string) slog.Attr {
	if handle == "" {
		return slog.Attr{}
	}
	return slog.String("call_handle", handle)
}

// CallState records a lifecycle state under the key "call_state".
func CallState(state string) slog.Attr {
	return slog.String("call_state", state)
}

// Outcome records a terminal call outcome under the key "outcome".
func Outcome(outcome string) slog.Attr {
	return slog.String("outcome", outcome)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
