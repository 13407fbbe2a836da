package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//daytimeline//test//EN
BEGIN:VEVENT
UID:standup
SUMMARY:Standup
DTSTART:20250310T090000Z
DTEND:20250310T093000Z
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20250312T090000Z
END:VEVENT
BEGIN:VEVENT
UID:standup
SUMMARY:Standup (moved)
RECURRENCE-ID:20250311T090000Z
DTSTART:20250311T100000Z
DTEND:20250311T110000Z
END:VEVENT
BEGIN:VEVENT
UID:review
SUMMARY:Review
LOCATION:Room 2
DTSTART:20250310T140000Z
DTEND:20250310T150000Z
END:VEVENT
BEGIN:VEVENT
UID:holiday
SUMMARY:Holiday
DTSTART;VALUE=DATE:20250313
DTEND;VALUE=DATE:20250314
END:VEVENT
BEGIN:VEVENT
SUMMARY:No UID
DTSTART:20250310T080000Z
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseICS(t *testing.T) {
	src := Source{ID: "work", URL: "https://example.com/work.ics"}
	events, err := ParseICS(src, crlf(sampleICS))
	if err != nil {
		t.Fatalf("ParseICS() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("ParseICS() returned %d events, want 4 (UID-less event skipped)", len(events))
	}

	byKey := map[string]ParsedEvent{}
	for _, ev := range events {
		key := ev.UID
		if ev.IsOverride() {
			key += "/override"
		}
		byKey[key] = ev
	}

	standup := byKey["standup"]
	if standup.RawRRule != "FREQ=DAILY;COUNT=5" {
		t.Errorf("standup RRULE = %q", standup.RawRRule)
	}
	if len(standup.ExDates) != 1 || !standup.ExDates[0].Equal(time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("standup EXDATE = %v", standup.ExDates)
	}
	if ov, ok := byKey["standup/override"]; !ok || !ov.Recurrence.Equal(time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("override missing or wrong RECURRENCE-ID: %+v", ov)
	}
	if r := byKey["review"]; r.Location != "Room 2" || r.Source.ID != "work" || r.AllDay {
		t.Errorf("review = %+v", r)
	}
	if !byKey["holiday"].AllDay {
		t.Errorf("holiday should be all-day")
	}
}

func TestParseICS_Empty(t *testing.T) {
	if _, err := ParseICS(Source{ID: "x"}, nil); err == nil {
		t.Fatal("ParseICS(nil) should fail")
	}
}

func TestExpandOccurrences(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "work"}, crlf(sampleICS))
	if err != nil {
		t.Fatalf("ParseICS() error = %v", err)
	}

	res, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Colors:          map[string]string{"work": "#3366cc"},
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences() error = %v", err)
	}

	want := []struct {
		title string
		start time.Time
	}{
		{"Standup", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"Review", time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)},
		{"Standup (moved)", time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)},
		{"Holiday", time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)},
		{"Standup", time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC)},
		{"Standup", time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)},
	}
	if len(res.Events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(res.Events), len(want), res.Events)
	}
	for i, w := range want {
		got := res.Events[i]
		if got.Title != w.title || !got.Start.Equal(w.start) {
			t.Errorf("event %d = %q at %v, want %q at %v", i, got.Title, got.Start, w.title, w.start)
		}
		if got.Style == nil || got.Style.Color != "#3366cc" {
			t.Errorf("event %d style = %+v, want source color", i, got.Style)
		}
	}
	if end := res.Events[3].End; !end.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("holiday end = %v", end)
	}
}

func TestExpandOccurrences_BadRange(t *testing.T) {
	now := time.Now()
	if _, err := ExpandOccurrences(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestExpandOccurrences_Cap(t *testing.T) {
	parsed := []ParsedEvent{{
		UID:      "daily",
		Start:    time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY",
	}}
	res, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 10,
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences() error = %v", err)
	}
	if len(res.Events) != 10 {
		t.Errorf("got %d events, want 10", len(res.Events))
	}
	if len(res.TruncatedUIDs) != 1 || res.TruncatedUIDs[0] != "daily" {
		t.Errorf("TruncatedUIDs = %v", res.TruncatedUIDs)
	}
}

func TestEventsForDay(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "work"}, crlf(sampleICS))
	if err != nil {
		t.Fatalf("ParseICS() error = %v", err)
	}
	res, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences() error = %v", err)
	}

	timed, allDay := EventsForDay(res.Events, time.Date(2025, 3, 13, 12, 0, 0, 0, time.UTC))
	if len(timed) != 1 || timed[0].UID != "standup" {
		t.Errorf("timed = %+v", timed)
	}
	if len(allDay) != 1 || allDay[0].UID != "holiday" {
		t.Errorf("allDay = %+v", allDay)
	}
}

func TestFetcher_CacheAndFallback(t *testing.T) {
	mode := "ok"
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		switch {
		case mode == "fail":
			http.Error(w, "boom", http.StatusInternalServerError)
		case r.Header.Get("If-None-Match") == `"v1"`:
			w.WriteHeader(http.StatusNotModified)
		default:
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write(crlf(sampleICS))
		}
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "work", URL: srv.URL + "/cal.ics?token=secret"}
	ctx := context.Background()

	first, err := f.FetchOne(ctx, src)
	if err != nil || first.FromCache || len(first.Body) == 0 {
		t.Fatalf("first fetch = %+v, %v", first, err)
	}

	second, err := f.FetchOne(ctx, src)
	if err != nil || !second.FromCache || string(second.Body) != string(first.Body) {
		t.Fatalf("conditional fetch = %+v, %v", second, err)
	}

	mode = "fail"
	third, err := f.FetchOne(ctx, src)
	if err != nil || !third.FromCache {
		t.Fatalf("fallback fetch = %+v, %v", third, err)
	}

	results, errs := f.FetchAll(ctx, []Source{src, {ID: "empty"}})
	if len(results) != 1 || len(errs) != 1 {
		t.Errorf("FetchAll() = %d results, %d errors; want 1, 1", len(results), len(errs))
	}
	if hits != 4 {
		t.Errorf("server hits = %d, want 4", hits)
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://cal.example.com/private/abc.ics?token=x"); got != "https://cal.example.com/...(redacted)" {
		t.Errorf("redactURL() = %q", got)
	}
	if got := redactURL("not a url"); got != "ics://...(redacted)" {
		t.Errorf("redactURL() = %q", got)
	}
}
