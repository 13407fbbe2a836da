package model

import (
	"testing"
	"time"
)

func TestSameDay(t *testing.T) {
	a := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	if !SameDay(a, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Error("same date should match")
	}
	// Day-of-month alone is not enough.
	if SameDay(a, time.Date(2025, 4, 10, 23, 59, 0, 0, time.UTC)) {
		t.Error("different month should not match")
	}
}

func TestIntersects(t *testing.T) {
	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := map[string]struct {
		start, end time.Time
		want       bool
	}{
		"inside":          {time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), true},
		"from yesterday":  {time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC), true},
		"ends at 00:00":   {time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), false},
		"zero length":     {time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), true},
		"next day":        {time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC), false},
		"spans whole day": {time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := Event{Start: tt.start, End: tt.end}
			if got := e.Intersects(day); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFixedHeight(t *testing.T) {
	if _, ok := (Event{}).FixedHeight(); ok {
		t.Error("event without style has no fixed height")
	}
	if _, ok := (Event{Style: &EventStyle{Color: "red"}}).FixedHeight(); ok {
		t.Error("style without DefaultHeight has no fixed height")
	}
	if h, ok := (Event{Style: &EventStyle{DefaultHeight: Float(12)}}).FixedHeight(); !ok || h != 12 {
		t.Errorf("FixedHeight() = %v, %v", h, ok)
	}
}
