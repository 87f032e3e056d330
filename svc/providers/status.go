package providers

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coldcall/svc/dialer"
)

// Twilio CallStatus values.
const (
	CallStatusQueued     = "queued"
	CallStatusInitiated  = "initiated"
	CallStatusRinging    = "ringing"
	CallStatusInProgress = "in-progress"
	CallStatusAnswered   = "answered"
	CallStatusCompleted  = "completed"
	CallStatusBusy       = "busy"
	CallStatusNoAnswer   = "no-answer"
	CallStatusFailed     = "failed"
	CallStatusCanceled   = "canceled"
)

// StatusCallback is a parsed Twilio status callback.
type StatusCallback struct {
	AttemptID    uuid.UUID
	CallSid      string
	CallStatus   string
	Duration     time.Duration
	RecordingURL string
	ErrorCode    string
}

// ParseStatusCallback reads the callback form. query holds the parameters
// of the callback URL, where PlaceCall put the attempt id.
func ParseStatusCallback(query, form url.Values) (StatusCallback, error) {
	cb := StatusCallback{
		CallSid:      form.Get("CallSid"),
		CallStatus:   form.Get("CallStatus"),
		RecordingURL: form.Get("RecordingUrl"),
		ErrorCode:    form.Get("ErrorCode"),
	}
	if cb.CallSid == "" {
		return StatusCallback{}, ErrMissingCallHandle
	}
	if raw := query.Get("attempt_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return StatusCallback{}, fmt.Errorf("%w: attempt_id: %w", ErrInvalidReport, err)
		}
		cb.AttemptID = id
	}
	if raw := form.Get("CallDuration"); raw != "" {
		if sec, err := strconv.Atoi(raw); err == nil {
			cb.Duration = time.Duration(sec) * time.Second
		}
	}
	return cb, nil
}

// Event maps the callback to a lifecycle event stamped at.
func (cb StatusCallback) Event(at time.Time) (dialer.Event, error) {
	ev := dialer.Event{
		AttemptID:  cb.AttemptID,
		CallHandle: cb.CallSid,
		At:         at,
		Artifacts:  dialer.Artifacts{RecordingURL: cb.RecordingURL},
	}

	switch cb.CallStatus {
	case CallStatusQueued, CallStatusInitiated:
		ev.Kind = dialer.EventHandleAssigned
	case CallStatusRinging:
		ev.Kind = dialer.EventRinging
	case CallStatusInProgress, CallStatusAnswered:
		ev.Kind = dialer.EventAnswered
	case CallStatusCompleted:
		ev.Kind = dialer.EventHangup
	case CallStatusBusy:
		ev.Kind = dialer.EventBusy
	case CallStatusNoAnswer:
		ev.Kind = dialer.EventNoAnswer
	case CallStatusFailed, CallStatusCanceled:
		ev.Kind = dialer.EventProviderFailed
		ev.Reason = cb.CallStatus
		if cb.ErrorCode != "" {
			ev.Reason += ": " + cb.ErrorCode
		}
	default:
		return dialer.Event{}, fmt.Errorf("%w: %q", ErrUnknownCallStatus, cb.CallStatus)
	}
	return ev, nil
}
