package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	URL  string `yaml:"url" json:"url"`
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// Color is the fill used for this source's events.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// SourceID returns ID, falling back to Name then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web surface.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TimelineConfig is the style of the day grid: hour label metrics, spacing
// and the visual gap between events.
type TimelineConfig struct {
	// StartHour is the first visible hour of a page (0..23).
	StartHour int `yaml:"start_hour" json:"start_hour"`
	// LabelHeight is the pixel height of one hour label row.
	LabelHeight float64 `yaml:"label_height" json:"label_height"`
	// OffsetTimeY is the spacing between labels before scaling.
	OffsetTimeY float64 `yaml:"offset_time_y" json:"offset_time_y"`
	// Scale multiplies OffsetTimeY (zoom).
	Scale float64 `yaml:"scale" json:"scale"`
	// OffsetEvent is the gap subtracted from event heights; it is also the
	// shrink, in seconds, applied to end times when grouping overlaps.
	OffsetEvent float64 `yaml:"offset_event" json:"offset_event"`
	// CenterLabels draws gridlines on the label midline.
	CenterLabels bool `yaml:"center_labels" json:"center_labels"`
	// IncludeMidnight adds the closing 24:00 gridline.
	IncludeMidnight bool `yaml:"include_midnight" json:"include_midnight"`

	// PageLeft / PageWidth are the horizontal frame events are placed in.
	PageLeft  float64 `yaml:"page_left" json:"page_left"`
	PageWidth float64 `yaml:"page_width" json:"page_width"`

	// EventColor is the default fill for events without a source color.
	EventColor string `yaml:"event_color" json:"event_color"`
	// Background is the page background color.
	Background string `yaml:"background" json:"background"`
}

// TimeY returns the scaled label spacing.
func (t TimelineConfig) TimeY() float64 {
	return t.OffsetTimeY * t.Scale
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone events are displayed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is the cron schedule for refetching ICS sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays / BackfillDays bound the expansion window around today.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// ShowAllDay toggles the all-day strip in rendered pages.
	ShowAllDay bool `yaml:"show_all_day" json:"show_all_day"`

	// CacheDir holds per-source ICS caches.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Timeline TimelineConfig `yaml:"timeline" json:"timeline"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "UTC",
		RefreshCron:  "*/15 * * * *",
		HorizonDays:  7,
		BackfillDays: 1,
		ShowAllDay:   true,
		CacheDir:     "./var/ics-cache",
		LogLevel:     "info",
		Timeline:     DefaultTimeline(),
		ICS:          []ICSConfig{},
	}
}

// DefaultTimeline is 60px per hour with minute precision and a 1px gap.
func DefaultTimeline() TimelineConfig {
	return TimelineConfig{
		StartHour:       0,
		LabelHeight:     20,
		OffsetTimeY:     40,
		Scale:           1,
		OffsetEvent:     1,
		IncludeMidnight: true,
		PageLeft:        60,
		PageWidth:       400,
		EventColor:      "#4a90d9",
		Background:      "#ffffff",
	}
}

// Normalize fills in missing or invalid values so partially-filled configs
// still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	c.Timeline.normalize()
}

func (t *TimelineConfig) normalize() {
	def := DefaultTimeline()
	if t.StartHour < 0 || t.StartHour > 23 {
		t.StartHour = def.StartHour
	}
	if t.LabelHeight < 0 {
		t.LabelHeight = 0
	}
	if t.OffsetTimeY < 0 {
		t.OffsetTimeY = 0
	}
	if t.LabelHeight+t.OffsetTimeY == 0 {
		t.LabelHeight, t.OffsetTimeY = def.LabelHeight, def.OffsetTimeY
	}
	if t.Scale <= 0 {
		t.Scale = def.Scale
	}
	if t.OffsetEvent < 0 {
		t.OffsetEvent = 0
	}
	if t.PageWidth <= 0 {
		t.PageWidth = def.PageWidth
	}
	if t.EventColor == "" {
		t.EventColor = def.EventColor
	}
	if t.Background == "" {
		t.Background = def.Background
	}
}

// Load loads configuration from the given YAML path. A missing file is
// created with defaults (0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			// Even if save fails, return cfg so the caller can decide.
			return cfg, Save(path, cfg)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".daytimeline-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
