package layout

import "fmt"

// Hour tags an hour gridline. Values 0..23 are hours of the displayed day;
// MidnightWrap marks the closing 24:00 gridline, which aliases hour 0 of the
// next visual row.
type Hour int

// MidnightWrap is the sentinel hour for the bottom-most "00:00" gridline.
const MidnightWrap Hour = 24

// IsMidnightWrap reports whether h is the 24:00 sentinel.
func (h Hour) IsMidnightWrap() bool {
	return h == MidnightWrap
}

// Valid reports whether h is in 0..24.
func (h Hour) Valid() bool {
	return h >= 0 && h <= MidnightWrap
}

// ValueHash is the value compared against an event's wall-clock hour. The
// sentinel hashes like hour 0.
func (h Hour) ValueHash() int {
	return int(h) % 24
}

// String returns the gridline label, e.g. "09:00". The sentinel renders as
// "00:00".
func (h Hour) String() string {
	return fmt.Sprintf("%02d:00", h.ValueHash())
}

// Anchor is one rendered hour gridline: its hour tag and the pixel height of
// the label row. Anchors are owned by the caller and never mutated here.
type Anchor struct {
	Hour   Hour
	Height float64
}

// NewAnchors builds one anchor per hour in [from, to], each with the same
// label height. to may be MidnightWrap (24) to include the closing gridline.
// Out-of-range bounds are clamped to 0..24.
func NewAnchors(from, to int, height float64) []Anchor {
	if from < 0 {
		from = 0
	}
	if to > int(MidnightWrap) {
		to = int(MidnightWrap)
	}
	if to < from {
		return nil
	}
	out := make([]Anchor, 0, to-from+1)
	for h := from; h <= to; h++ {
		out = append(out, Anchor{Hour: Hour(h), Height: height})
	}
	return out
}
