package layout

import (
	"time"

	"daytimeline/internal/model"
)

// EventTime is the canonical key of an overlap cluster: the seed event's
// start and end in epoch seconds.
type EventTime struct {
	Start int64
	End   int64
}

// TimeOf returns the EventTime of e.
func TimeOf(e model.Event) EventTime {
	return EventTime{Start: e.Start.Unix(), End: e.End.Unix()}
}

// CrossEvent is one overlap cluster: every event whose interval intersects
// the seed at EventTime, the seed included.
type CrossEvent struct {
	EventTime EventTime
	Events    []model.Event
}

// Count returns the number of events in the cluster.
func (c CrossEvent) Count() int {
	return len(c.Events)
}

// Contains reports whether e is a member, matched by ID and time.
func (c CrossEvent) Contains(e model.Event) bool {
	key := TimeOf(e)
	for _, m := range c.Events {
		if m.ID == e.ID && TimeOf(m) == key {
			return true
		}
	}
	return false
}

// CrossEvents builds, for every event, the cluster of events it overlaps.
//
// offset is subtracted, in seconds, from every end time before comparison so
// back-to-back events are not reported as overlapping. With a positive offset
// the containment ranges are closed; with none they are half-open, so
// touching intervals still stay apart. Seeds are taken in
// input order and always matched against the full event list, which makes
// clusters neighbourhoods rather than a partition: an event may be a member
// of several clusters. Events sharing an EventTime share one entry.
func CrossEvents(events []model.Event, offset float64) map[EventTime]CrossEvent {
	out := make(map[EventTime]CrossEvent, len(events))
	shift := time.Duration(offset * float64(time.Second))

	startIn, endIn := startWithin, endWithin
	if shift > 0 {
		startIn, endIn = closedWithin, closedWithin
	}

	pending := events
	for len(pending) > 0 {
		seed := pending[0]
		start := seed.Start
		endCalculated := seed.End.Add(-shift)

		cross := CrossEvent{EventTime: TimeOf(seed)}
		for _, item := range events {
			itemStart := item.Start
			itemEnd := item.End.Add(-shift)
			if !itemEnd.After(itemStart) || !endCalculated.After(start) {
				continue
			}
			if startIn(itemStart, start, endCalculated) ||
				endIn(itemEnd, start, endCalculated) ||
				startIn(start, itemStart, itemEnd) ||
				endIn(endCalculated, itemStart, itemEnd) {
				cross.Events = append(cross.Events, item)
			}
		}

		out[cross.EventTime] = cross
		pending = pending[1:]
	}

	return out
}

// startWithin reports t in [lo, hi).
func startWithin(t, lo, hi time.Time) bool {
	return !t.Before(lo) && t.Before(hi)
}

// endWithin reports t in (lo, hi].
func endWithin(t, lo, hi time.Time) bool {
	return t.After(lo) && !t.After(hi)
}

// closedWithin reports t in [lo, hi].
func closedWithin(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

// ColumnCount returns the size of the largest cluster containing e, or 1 if
// e is in none.
func ColumnCount(e model.Event, clusters map[EventTime]CrossEvent) int {
	n := 1
	for _, c := range clusters {
		if c.Count() > n && c.Contains(e) {
			n = c.Count()
		}
	}
	return n
}
