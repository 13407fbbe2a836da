package layout

import (
	"time"

	"daytimeline/internal/model"
)

// MinHeight is the height given to an event whose start and end share the
// same hour and minute, so it never collapses to an invisible rectangle.
const MinHeight = 30.0

// Rect is an on-screen rectangle. X/Y is the top-left corner.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Bottom returns the y-coordinate of the bottom edge.
func (r Rect) Bottom() float64 {
	return r.Y + r.Height
}

// Context holds everything the time axis needs for one layout pass. It is a
// plain value: callers build one per page and may share it between
// goroutines as long as nobody writes to Anchors.
type Context struct {
	// PageFrame seeds every rectangle; X and Width are passed through.
	PageFrame Rect

	// StartHour is the first visible hour of the page. Events that started
	// on an earlier day are pinned to it.
	StartHour int

	// Anchors are the hour gridlines in ascending hour order.
	Anchors []Anchor

	// TimeY is the uniform spacing between labels, already multiplied by
	// the current zoom scale. One hour row spans TimeY + label height.
	TimeY float64

	// OffsetEvent is the visual gap subtracted from event heights. The
	// overlap grouper reuses it, in seconds, to shrink end times.
	OffsetEvent float64

	// CenterLabels places gridlines on the vertical midline of their label.
	CenterLabels bool
}

// pitch is the pixel extent of one hour row.
func (c Context) pitch(a Anchor) float64 {
	return c.TimeY + a.Height
}

// anchorY is the y-coordinate of the anchor's own gridline.
func (c Context) anchorY(a Anchor) float64 {
	y := float64(a.Hour) * c.pitch(a)
	if c.CenterLabels {
		y += a.Height / 2
	}
	return y
}

// MinuteToY maps a minute within the anchor's hour to a y-coordinate.
func (c Context) MinuteToY(minute int, a Anchor) float64 {
	return c.anchorY(a) + c.pitch(a)*float64(minute)/60
}

// Anchor returns the first anchor tagged with hour.
func (c Context) Anchor(hour int) (Anchor, bool) {
	for _, a := range c.Anchors {
		if int(a.Hour) == hour {
			return a, true
		}
	}
	return Anchor{}, false
}

// EventRect computes the rectangle of an event spanning [start, end) on the
// page showing day. Only Y and Height are computed; the rest of PageFrame is
// returned as is. With no anchors the page frame itself is returned.
func (c Context) EventRect(start, end, day time.Time, style *model.EventStyle) Rect {
	frame := c.PageFrame
	if len(c.Anchors) == 0 {
		return frame
	}
	first := c.Anchors[0]

	if model.SameDay(start, day) {
		for _, a := range c.Anchors {
			if a.Hour.ValueHash() != start.Hour() {
				continue
			}
			if a.Hour.IsMidnightWrap() {
				a = first
			}
			frame.Y = c.MinuteToY(start.Minute(), a)
		}
	} else if a, ok := c.Anchor(c.StartHour); ok {
		// Continues from a previous day: StartHour is mapped as a minute
		// offset into its own anchor row.
		frame.Y = c.MinuteToY(c.StartHour, a)
	}

	if h, ok := style.FixedHeight(); ok {
		frame.Height = h
		return frame
	}

	if !model.SameDay(end, day) {
		// Runs past this page: extend to the last gridline.
		last := c.Anchors[len(c.Anchors)-1]
		frame.Height = c.anchorY(last) - frame.Y
		return frame
	}

	matched, ok := Anchor{}, false
	for _, a := range c.Anchors {
		if a.Hour.ValueHash() == end.Hour() {
			matched, ok = a, true
		}
	}
	if !ok {
		return frame
	}
	if start.Hour() == end.Hour() && start.Minute() == end.Minute() {
		frame.Height = MinHeight
		return frame
	}
	if matched.Hour.IsMidnightWrap() {
		matched = first
	}
	frame.Height = c.MinuteToY(end.Minute(), matched) - frame.Y - c.OffsetEvent
	return frame
}

// EventRects returns one rectangle per event, in input order.
func (c Context) EventRects(events []model.Event, day time.Time) []Rect {
	out := make([]Rect, 0, len(events))
	for _, ev := range events {
		out = append(out, c.EventRect(ev.Start, ev.End, day, ev.Style))
	}
	return out
}

// CrossEvents groups events using the context's OffsetEvent as the gap.
func (c Context) CrossEvents(events []model.Event) map[EventTime]CrossEvent {
	return CrossEvents(events, c.OffsetEvent)
}
