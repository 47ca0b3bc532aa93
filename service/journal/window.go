package journal

import (
	"time"
)

// Window is a half-open UTC interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowEndingAt returns [now - hours, now).
func WindowEndingAt(now time.Time, hours int) Window {
	now = now.UTC()
	return Window{
		Start: now.Add(-time.Duration(hours) * time.Hour),
		End:   now,
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
