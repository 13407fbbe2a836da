package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"daytimeline/internal/capture"
	"daytimeline/internal/config"
	"daytimeline/internal/ics"
	appLog "daytimeline/internal/log"
	"daytimeline/internal/refresh"
	"daytimeline/internal/render"
	"daytimeline/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	date       string
	out        string
	png        string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"start_hour", conf.Timeline.StartHour,
		"offset_event", conf.Timeline.OffsetEvent,
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := web.ResolveLocation(conf.Timezone)
	store := &refresh.Store{}
	runner := refresh.NewRunner(conf, ics.NewFetcher(conf.CacheDir, nil), store, loc)

	if flags.once {
		if err := runOnce(ctx, conf, runner, store, loc, flags); err != nil {
			appLog.Error("one-shot render failed", err)
			os.Exit(1)
		}
		return
	}

	if err := runner.Start(ctx); err != nil {
		appLog.Error("failed to start refresh scheduler", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, store, loc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		appLog.Info("signal received, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	appLog.Info("daytimeline exiting")
}

// runOnce refreshes, writes the SVG for one day and optionally a PNG of it.
func runOnce(ctx context.Context, conf *config.Config, runner *refresh.Runner, store *refresh.Store, loc *time.Location, flags flagConfig) error {
	if err := runner.Run(ctx); err != nil {
		// Partial failures still render what was fetched.
		appLog.Error("refresh had errors", err)
	}

	day := time.Now().In(loc)
	if flags.date != "" {
		d, err := time.ParseInLocation(time.DateOnly, flags.date, loc)
		if err != nil {
			return err
		}
		day = d
	}

	timed, allDay := ics.EventsForDay(store.Get().Events, day)
	page := render.NewPage(conf.Timeline, day, timed, allDay, conf.ShowAllDay)

	f, err := os.Create(flags.out)
	if err != nil {
		return err
	}
	if err := render.WriteSVG(f, page); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	appLog.Info("svg written", "path", flags.out, "date", day.Format(time.DateOnly), "events", len(timed))

	if flags.png == "" {
		return nil
	}
	abs, err := filepath.Abs(flags.out)
	if err != nil {
		return err
	}
	w, h := page.Size()
	if err := capture.CapturePNG(ctx, capture.Options{
		URL:        "file://" + abs,
		OutputPath: flags.png,
		Width:      int(w),
		Height:     int(h),
	}); err != nil {
		return err
	}
	appLog.Info("png written", "path", flags.png)
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/daytimeline/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh once, render one day and exit")
	flag.StringVar(&cfg.date, "date", "", "Day to render with -once (YYYY-MM-DD, default today)")
	flag.StringVar(&cfg.out, "out", "day.svg", "SVG output path for -once")
	flag.StringVar(&cfg.png, "png", "", "Also capture a PNG of the SVG via headless Chromium (-once only)")

	flag.Parse()

	return cfg
}
