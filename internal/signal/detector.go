// Package signal implements the four behavioral signal detectors: credit,
// income, savings, and subscriptions. Detectors are pure over the storage
// layer: given a user and a time window they produce an immutable bundle,
// and a user with no accounts of the relevant subtype gets a valid zero
// result, never an error.
package signal

import (
	"time"
)

// Window is a trailing period over which signals are computed. Both the
// short and long windows for one classification run must be derived from a
// single "now" snapshot so the four detectors agree on boundaries.
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// NewWindow builds a trailing window of the given length anchored at now.
func NewWindow(now time.Time, days int) Window {
	return Window{
		Start: now.AddDate(0, 0, -days),
		End:   now,
		Days:  days,
	}
}

// Months returns the window length in 30-day months.
func (w Window) Months() float64 {
	return float64(w.Days) / 30.0
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
