package model

import "time"

// EventStyle carries optional per-event display overrides.
type EventStyle struct {
	// DefaultHeight, if set, fixes the rendered height of the event and
	// bypasses any time-based height computation.
	DefaultHeight *float64

	// Color is an optional fill color (any SVG color string).
	Color string
}

// Event is a single concrete, already expanded calendar event.
//
// Start and End are wall-clock times in the display timezone; recurrence
// expansion and timezone conversion happen before events reach the layout
// engine (see internal/ics).
type Event struct {
	ID       string // stable per-instance key
	SourceID string // calendar source ID (e.g., config ICS ID)
	UID      string // iCalendar UID

	Title    string
	Location string

	AllDay bool

	Start time.Time
	End   time.Time

	Style *EventStyle
}

// FixedHeight returns the height override, if any. Safe on a nil style.
func (s *EventStyle) FixedHeight() (float64, bool) {
	if s == nil || s.DefaultHeight == nil {
		return 0, false
	}
	return *s.DefaultHeight, true
}

// FixedHeight returns the event's height override, if any.
func (e Event) FixedHeight() (float64, bool) {
	return e.Style.FixedHeight()
}

// SameDay reports whether a and b fall on the same calendar date, compared
// in their own wall-clock fields.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Intersects reports whether the event overlaps the calendar day containing
// day (the half-open range [00:00, next 00:00)).
func (e Event) Intersects(day time.Time) bool {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	if e.End.Equal(e.Start) {
		return !e.Start.Before(dayStart) && e.Start.Before(dayEnd)
	}
	return e.Start.Before(dayEnd) && e.End.After(dayStart)
}

// Float is a small helper for building *float64 style overrides.
func Float(v float64) *float64 {
	return &v
}
