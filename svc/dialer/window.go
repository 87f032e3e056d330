package dialer

import (
	"fmt"
	"time"
)

// CallWindow limits dialing to the hours [Start, End) in Location and,
// with WeekdaysOnly, to Monday through Friday. Start == End leaves the
// hours open. The zero window allows every instant.
type CallWindow struct {
	Start        int
	End          int
	WeekdaysOnly bool
	Location     *time.Location
}

// Enabled reports whether the window restricts anything.
func (w CallWindow) Enabled() bool { return w.Start != w.End || w.WeekdaysOnly }

// Allows reports whether a call may start at t.
func (w CallWindow) Allows(t time.Time) bool {
	lt := t.In(w.location())
	if w.WeekdaysOnly && !weekday(lt.Weekday()) {
		return false
	}
	if w.Start == w.End {
		return true
	}
	h := lt.Hour()
	return h >= w.Start && h < w.End
}

// Adjust returns t when the window allows it, otherwise the next opening
// after t. The result keeps t's location.
func (w CallWindow) Adjust(t time.Time) time.Time {
	if w.Allows(t) {
		return t
	}

	lt := t.In(w.location())
	open := w.opensAt()
	next := time.Date(lt.Year(), lt.Month(), lt.Day(), open, 0, 0, 0, lt.Location())
	if !lt.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for w.WeekdaysOnly && !weekday(next.Weekday()) {
		next = next.AddDate(0, 0, 1)
	}
	return next.In(t.Location())
}

func (w CallWindow) String() string {
	if !w.Enabled() {
		return "always"
	}
	days := "daily"
	if w.WeekdaysOnly {
		days = "mon-fri"
	}
	return fmt.Sprintf("%s %02d:00-%02d:00 %s", days, w.opensAt(), w.closesAt(), w.location())
}

func (w CallWindow) opensAt() int {
	if w.Start == w.End {
		return 0
	}
	return w.Start
}

func (w CallWindow) closesAt() int {
	if w.Start == w.End {
		return 24
	}
	return w.End
}

func (w CallWindow) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

func weekday(d time.Weekday) bool { return d != time.Saturday && d != time.Sunday }
