// Package availability answers the question "is this table busy
// during [start, end)?" without scanning every booking.  It keeps a
// per table slot bitset as a fast path and the raw busy window list
// for exact overlap checks and conflict reporting.  All windows are
// half open: a window ending at 19:00 never conflicts with one
// starting at 19:00.
package availability

import (
    "fmt"
    "time"
)

// Window is a half open time interval [Start, End) in UTC.
type Window struct {
    Start time.Time `json:"start"` // inclusive
    End   time.Time `json:"end"`   // exclusive
}

// NewWindow builds a window and validates its ordering.  Callers pass
// times in any location; they are normalised to UTC.
func NewWindow(start, end time.Time) (Window, error) {
    w := Window{Start: start.UTC(), End: end.UTC()}
    if !w.End.After(w.Start) {
        return Window{}, fmt.Errorf("window end %s is not after start %s", end, start)
    }
    return w, nil
}

// Overlaps reports whether two half open windows intersect.  Adjacent
// windows (a.End == b.Start) do not overlap.
func (w Window) Overlaps(o Window) bool {
    return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Contains reports whether the instant t falls inside the window.
func (w Window) Contains(t time.Time) bool {
    return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
    return w.End.Sub(w.Start)
}
