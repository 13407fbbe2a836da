package layout

import (
	"reflect"
	"testing"

	"daytimeline/internal/model"
)

func ids(c CrossEvent) []string {
	out := make([]string, 0, len(c.Events))
	for _, e := range c.Events {
		out = append(out, e.ID)
	}
	return out
}

func TestCrossEvents(t *testing.T) {
	a := model.Event{ID: "a", Start: at(10, 9, 0), End: at(10, 10, 0)}
	b := model.Event{ID: "b", Start: at(10, 9, 30), End: at(10, 10, 30)}
	c := model.Event{ID: "c", Start: at(10, 8, 0), End: at(10, 9, 0)}
	d := model.Event{ID: "d", Start: at(10, 9, 0), End: at(10, 10, 0)}
	long := model.Event{ID: "long", Start: at(10, 8, 0), End: at(10, 12, 0)}
	zero := model.Event{ID: "zero", Start: at(10, 11, 0), End: at(10, 11, 0)}

	type tc struct {
		events []model.Event
		offset float64
		want   map[EventTime][]string
	}

	tests := map[string]tc{
		"empty": {
			events: nil,
			want:   map[EventTime][]string{},
		},
		"overlapping pair": {
			events: []model.Event{a, b},
			want: map[EventTime][]string{
				TimeOf(a): {"a", "b"},
				TimeOf(b): {"a", "b"},
			},
		},
		"back to back without gap": {
			events: []model.Event{c, d},
			want: map[EventTime][]string{
				TimeOf(c): {"c"},
				TimeOf(d): {"d"},
			},
		},
		"back to back with gap": {
			events: []model.Event{c, d},
			offset: 60,
			want: map[EventTime][]string{
				TimeOf(c): {"c"},
				TimeOf(d): {"d"},
			},
		},
		"neighbourhoods are not disjoint": {
			events: []model.Event{c, long, b},
			want: map[EventTime][]string{
				TimeOf(c):    {"c", "long"},
				TimeOf(long): {"c", "long", "b"},
				TimeOf(b):    {"long", "b"},
			},
		},
		"degenerate event matches nothing": {
			events: []model.Event{long, zero},
			want: map[EventTime][]string{
				TimeOf(long): {"long"},
				TimeOf(zero): {},
			},
		},
		"offset swallowing the event": {
			events: []model.Event{a, b},
			offset: 3600,
			want: map[EventTime][]string{
				TimeOf(a): {},
				TimeOf(b): {},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := CrossEvents(tt.events, tt.offset)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d clusters, want %d", len(got), len(tt.want))
			}
			for key, want := range tt.want {
				cluster, ok := got[key]
				if !ok {
					t.Fatalf("missing cluster %+v", key)
				}
				if cluster.EventTime != key {
					t.Errorf("cluster key = %+v, stored under %+v", cluster.EventTime, key)
				}
				if gotIDs := ids(cluster); !reflect.DeepEqual(gotIDs, want) {
					t.Errorf("cluster %+v = %v, want %v", key, gotIDs, want)
				}
			}
		})
	}
}

func TestCrossEvents_PositiveOverlapAfterGap(t *testing.T) {
	// 10 minutes of real overlap survives a 60s gap.
	x := model.Event{ID: "x", Start: at(10, 9, 0), End: at(10, 10, 10)}
	y := model.Event{ID: "y", Start: at(10, 10, 0), End: at(10, 11, 0)}

	got := CrossEvents([]model.Event{x, y}, 60)
	for _, e := range []model.Event{x, y} {
		cluster := got[TimeOf(e)]
		if !cluster.Contains(x) || !cluster.Contains(y) {
			t.Errorf("cluster of %s = %v, want both x and y", e.ID, ids(cluster))
		}
	}
}

func TestCrossEvents_GapBoundaryIsInclusive(t *testing.T) {
	// x ends at 10:01, so with a 60s gap its shifted end lands exactly on
	// y's start.
	x := model.Event{ID: "x", Start: at(10, 9, 0), End: at(10, 10, 1)}
	y := model.Event{ID: "y", Start: at(10, 10, 0), End: at(10, 11, 0)}

	tests := map[string]struct {
		offset float64
		want   []string
	}{
		"gap makes the boundary inclusive": {offset: 60, want: []string{"x", "y"}},
		"shifted end short of the start":   {offset: 61, want: []string{"x"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := CrossEvents([]model.Event{x, y}, tt.offset)
			if members := ids(got[TimeOf(x)]); !reflect.DeepEqual(members, tt.want) {
				t.Errorf("cluster of x = %v, want %v", members, tt.want)
			}
		})
	}
}

func TestCrossEvents_Idempotent(t *testing.T) {
	events := []model.Event{
		{ID: "1", Start: at(10, 8, 0), End: at(10, 9, 30)},
		{ID: "2", Start: at(10, 9, 0), End: at(10, 10, 0)},
		{ID: "3", Start: at(10, 9, 45), End: at(10, 11, 0)},
		{ID: "4", Start: at(10, 14, 0), End: at(10, 15, 0)},
	}

	first := CrossEvents(events, 30)
	second := CrossEvents(events, 30)
	if len(first) != len(second) {
		t.Fatalf("cluster count changed: %d vs %d", len(first), len(second))
	}
	for key, c := range first {
		if !reflect.DeepEqual(ids(c), ids(second[key])) {
			t.Errorf("cluster %+v changed: %v vs %v", key, ids(c), ids(second[key]))
		}
	}
}

func TestColumnCount(t *testing.T) {
	a := model.Event{ID: "a", Start: at(10, 9, 0), End: at(10, 10, 0)}
	b := model.Event{ID: "b", Start: at(10, 9, 30), End: at(10, 10, 30)}
	solo := model.Event{ID: "solo", Start: at(10, 15, 0), End: at(10, 16, 0)}

	ctx := uniformContext(23)
	clusters := ctx.CrossEvents([]model.Event{a, b, solo})

	if got := ColumnCount(a, clusters); got != 2 {
		t.Errorf("ColumnCount(a) = %d, want 2", got)
	}
	if got := ColumnCount(solo, clusters); got != 1 {
		t.Errorf("ColumnCount(solo) = %d, want 1", got)
	}
}
