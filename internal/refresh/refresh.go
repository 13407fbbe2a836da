package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"daytimeline/internal/config"
	"daytimeline/internal/ics"
	appLog "daytimeline/internal/log"
	"daytimeline/internal/model"
)

// Snapshot is one refreshed view of all sources.
type Snapshot struct {
	Events        []model.Event
	TruncatedUIDs []string
	RangeStart    time.Time
	RangeEnd      time.Time
	UpdatedAt     time.Time
}

// Store holds the latest snapshot. Readers get a copy of the slice header;
// snapshots are replaced, never mutated.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

// Get returns the current snapshot.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Set replaces the current snapshot.
func (s *Store) Set(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Runner refreshes a Store from the configured ICS sources.
type Runner struct {
	cfg     *config.Config
	fetcher *ics.Fetcher
	store   *Store
	loc     *time.Location
	now     func() time.Time

	runMu sync.Mutex
}

// NewRunner wires a runner for cfg. loc is the display zone.
func NewRunner(cfg *config.Config, fetcher *ics.Fetcher, store *Store, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{cfg: cfg, fetcher: fetcher, store: store, loc: loc, now: time.Now}
}

// Sources converts configured subscriptions into fetch sources and a source
// color table.
func Sources(cfg *config.Config) ([]ics.Source, map[string]string) {
	sources := make([]ics.Source, 0, len(cfg.ICS))
	colors := make(map[string]string)
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		id := c.SourceID()
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
		if c.Color != "" {
			colors[id] = c.Color
		}
	}
	return sources, colors
}

// Run performs one fetch, parse and expand cycle and publishes the result.
// Partial source failures still publish what succeeded; the joined error is
// returned alongside.
func (r *Runner) Run(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	now := r.now().In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	rangeStart := today.AddDate(0, 0, -r.cfg.BackfillDays)
	rangeEnd := today.AddDate(0, 0, r.cfg.HorizonDays+1)

	sources, colors := Sources(r.cfg)
	results, fetchErrs := r.fetcher.FetchAll(ctx, sources)

	parsed := make([]ics.ParsedEvent, 0)
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			fetchErrs = append(fetchErrs, err)
			continue
		}
		parsed = append(parsed, events...)
	}

	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: r.loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		Colors:          colors,
	})
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	r.store.Set(Snapshot{
		Events:        expanded.Events,
		TruncatedUIDs: expanded.TruncatedUIDs,
		RangeStart:    rangeStart,
		RangeEnd:      rangeEnd,
		UpdatedAt:     r.now(),
	})
	appLog.Info("refresh completed",
		"sources", len(sources),
		"events", len(expanded.Events),
		"errors", len(fetchErrs),
	)

	return errors.Join(fetchErrs...)
}

// Start runs once immediately, then on cfg.RefreshCron until ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(r.cfg.RefreshCron, func() {
		if err := r.Run(ctx); err != nil {
			appLog.Error("scheduled refresh had errors", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh: bad schedule %q: %w", r.cfg.RefreshCron, err)
	}

	if err := r.Run(ctx); err != nil {
		appLog.Error("initial refresh had errors", err)
	}

	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}
