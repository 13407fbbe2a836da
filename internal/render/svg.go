package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"daytimeline/internal/config"
	"daytimeline/internal/layout"
	"daytimeline/internal/model"
)

const (
	fontFamily   = "Helvetica, Arial, sans-serif"
	allDayHeight = 24.0
	labelWidth   = 48.0
)

// Page is everything needed to draw one day.
type Page struct {
	Day     time.Time
	Context layout.Context
	Placed  []Placed
	AllDay  []model.Event
	Style   config.TimelineConfig
	// ShowAllDay draws the all-day strip above the grid.
	ShowAllDay bool
}

// NewPage lays out the timed events of day and keeps the all-day ones for
// the header strip.
func NewPage(tl config.TimelineConfig, day time.Time, timed, allDay []model.Event, showAllDay bool) Page {
	ctx := NewContext(tl)
	placed, _ := Place(ctx, day, timed)
	return Page{
		Day:        day,
		Context:    ctx,
		Placed:     placed,
		AllDay:     allDay,
		Style:      tl,
		ShowAllDay: showAllDay,
	}
}

// gridTop is the y-offset applied to grid coordinates so the first anchor
// sits right under the header.
func (p Page) gridTop() float64 {
	top := 0.0
	if p.ShowAllDay && len(p.AllDay) > 0 {
		top = allDayHeight * float64(len(p.AllDay))
	}
	if len(p.Context.Anchors) > 0 {
		top -= p.Context.MinuteToY(0, p.Context.Anchors[0])
	}
	return top
}

// Size returns the rendered width and height.
func (p Page) Size() (float64, float64) {
	w := p.Context.PageFrame.X + p.Context.PageFrame.Width
	if w < labelWidth {
		w = labelWidth
	}
	h := p.gridTop()
	if n := len(p.Context.Anchors); n > 0 {
		last := p.Context.Anchors[n-1]
		h += p.Context.MinuteToY(0, last) + last.Height
	}
	for _, pl := range p.Placed {
		if b := p.gridTop() + pl.Rect.Bottom(); b > h {
			h = b
		}
	}
	return w, h
}

// WriteSVG renders the page as a standalone SVG document.
func WriteSVG(w io.Writer, p Page) error {
	bw := bufio.NewWriter(w)
	width, height := p.Size()

	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg width="%.0f" height="%.0f" viewBox="0 0 %.2f %.2f" xmlns="http://www.w3.org/2000/svg" font-family="%s">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, fontFamily, escapeXML(p.Style.Background))

	if p.ShowAllDay {
		for i, ev := range p.AllDay {
			y := allDayHeight * float64(i)
			fmt.Fprintf(bw, `<rect class="all-day" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="3" fill="%s"/>`+"\n",
				p.Context.PageFrame.X, y+1, p.Context.PageFrame.Width, allDayHeight-2, escapeXML(fill(ev, p.Style)))
			fmt.Fprintf(bw, `<text x="%.2f" y="%.2f" font-size="12" fill="#ffffff">%s</text>`+"\n",
				p.Context.PageFrame.X+4, y+16, escapeXML(ev.Title))
		}
	}

	fmt.Fprintf(bw, `<g transform="translate(0 %.2f)">`+"\n", p.gridTop())
	for _, a := range p.Context.Anchors {
		y := p.Context.MinuteToY(0, a)
		fmt.Fprintf(bw, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#d0d0d0" stroke-width="1"/>`+"\n",
			labelWidth, y, width, y)
		fmt.Fprintf(bw, `<text x="4" y="%.2f" font-size="11" fill="#666666" dominant-baseline="middle">%s</text>`+"\n",
			y, a.Hour)
	}
	for _, pl := range p.Placed {
		writeEvent(bw, pl, p.Style)
	}
	bw.WriteString("</g>\n</svg>\n")

	return bw.Flush()
}

func writeEvent(w io.Writer, pl Placed, style config.TimelineConfig) {
	r := pl.Rect
	fmt.Fprintf(w, `<g class="event" data-id="%s" data-column="%d" data-columns="%d">`+"\n",
		escapeXML(pl.Event.ID), pl.Column, pl.Columns)
	fmt.Fprintf(w, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="3" fill="%s" fill-opacity="0.85"/>`+"\n",
		r.X+1, r.Y, max(r.Width-2, 0), max(r.Height, 0), escapeXML(fill(pl.Event, style)))
	fmt.Fprintf(w, `<text x="%.2f" y="%.2f" font-size="12" fill="#ffffff">%s</text>`+"\n",
		r.X+4, r.Y+14, escapeXML(label(pl.Event)))
	io.WriteString(w, "</g>\n")
}

func fill(ev model.Event, style config.TimelineConfig) string {
	if ev.Style != nil && ev.Style.Color != "" {
		return ev.Style.Color
	}
	return style.EventColor
}

func label(ev model.Event) string {
	title := ev.Start.Format("15:04") + " " + ev.Title
	if ev.Location != "" {
		title += " · " + ev.Location
	}
	return title
}

// escapeXML escapes the five XML special characters. Invalid UTF-8 becomes
// U+FFFD and runes outside the XML 1.0 character range are dropped.
func escapeXML(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return xmlEscaper.Replace(strings.Map(xmlRune, s))
}

func xmlRune(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return r
	case r < 0x20, r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return -1
	}
	return r
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)
