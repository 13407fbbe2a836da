package render

import (
	"sort"
	"time"

	"daytimeline/internal/config"
	"daytimeline/internal/layout"
	"daytimeline/internal/model"
)

// Placed is an event with its final on-page rectangle.
type Placed struct {
	Event   model.Event
	Rect    layout.Rect
	Column  int
	Columns int
}

// NewContext builds the layout context for one page from the timeline style.
func NewContext(tl config.TimelineConfig) layout.Context {
	last := 23
	if tl.IncludeMidnight {
		last = int(layout.MidnightWrap)
	}
	return layout.Context{
		PageFrame:    layout.Rect{X: tl.PageLeft, Width: tl.PageWidth},
		StartHour:    tl.StartHour,
		Anchors:      layout.NewAnchors(tl.StartHour, last, tl.LabelHeight),
		TimeY:        tl.TimeY(),
		OffsetEvent:  tl.OffsetEvent,
		CenterLabels: tl.CenterLabels,
	}
}

type memberKey struct {
	id string
	t  layout.EventTime
}

// Place computes raw rectangles and overlap clusters for events on day and
// splits the page frame horizontally so events sharing a cluster sit side by
// side. Columns are handed out first-free in start order.
func Place(ctx layout.Context, day time.Time, events []model.Event) ([]Placed, map[layout.EventTime]layout.CrossEvent) {
	rects := ctx.EventRects(events, day)
	clusters := ctx.CrossEvents(events)

	index := make(map[memberKey]int, len(events))
	for i, ev := range events {
		k := memberKey{id: ev.ID, t: layout.TimeOf(ev)}
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}
	neighbours := func(i int) []int {
		var out []int
		for _, m := range clusters[layout.TimeOf(events[i])].Events {
			if j, ok := index[memberKey{id: m.ID, t: layout.TimeOf(m)}]; ok && j != i {
				out = append(out, j)
			}
		}
		return out
	}

	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return events[order[a]].Start.Before(events[order[b]].Start)
	})

	column := make([]int, len(events))
	assigned := make([]bool, len(events))
	for _, i := range order {
		taken := map[int]bool{}
		for _, j := range neighbours(i) {
			if assigned[j] {
				taken[column[j]] = true
			}
		}
		c := 0
		for taken[c] {
			c++
		}
		column[i] = c
		assigned[i] = true
	}

	out := make([]Placed, len(events))
	for i, ev := range events {
		n := column[i] + 1
		for _, j := range neighbours(i) {
			if column[j]+1 > n {
				n = column[j] + 1
			}
		}

		r := rects[i]
		w := r.Width / float64(n)
		r.X += w * float64(column[i])
		r.Width = w
		out[i] = Placed{Event: ev, Rect: r, Column: column[i], Columns: n}
	}
	return out, clusters
}
