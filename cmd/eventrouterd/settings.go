package main

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
	"github.com/randalmurphal/eventrouter/pkg/eventrouter/archive"
	"github.com/randalmurphal/eventrouter/pkg/eventrouter/config"
)

// envPrefix prefixes every environment override, e.g.
// EVENTROUTER_HTTP_ADDR or EVENTROUTER_MAX_QUEUE_SIZE.
const envPrefix = "EVENTROUTER"

// settings is the daemon's configuration. Router keys sit at the top level
// of the same file.
type settings struct {
	HTTPAddr         string
	LogLevel         slog.Level
	LogFormat        string
	Router           eventrouter.Config
	ArchivePath      string
	SnapshotSchedule string
	MetricsPath      string
	StatsdAddr       string
	StatsdInterval   time.Duration
	OtelMetrics      bool
	OtelTracing      bool
	ShutdownTimeout  time.Duration
}

func envSchema() map[string]any {
	schema := map[string]any{
		"http_addr":         "",
		"log_level":         "",
		"log_format":        "",
		"archive_path":      "",
		"snapshot_schedule": "",
		"metrics_path":      "",
		"statsd_addr":       "",
		"statsd_interval":   time.Duration(0),
		"otel_metrics":      false,
		"otel_tracing":      false,
		"shutdown_timeout":  time.Duration(0),
	}
	maps.Copy(schema, eventrouter.EnvSchema())
	return schema
}

// loadConfig reads path (optional) and applies environment overrides.
func loadConfig(path string) (config.Config, error) {
	cfg := config.New(nil)
	if path != "" {
		var err error
		if cfg, err = config.FromFile(path); err != nil {
			return config.Config{}, err
		}
	}
	return cfg.WithEnv(envPrefix, envSchema())
}

func settingsFrom(cfg config.Config) (settings, error) {
	level, err := parseLevel(cfg.String("log_level", "info"))
	if err != nil {
		return settings{}, err
	}

	s := settings{
		HTTPAddr:         cfg.String("http_addr", ":8080"),
		LogLevel:         level,
		LogFormat:        cfg.String("log_format", "json"),
		Router:           eventrouter.ConfigFrom(cfg),
		ArchivePath:      cfg.String("archive_path", ""),
		SnapshotSchedule: cfg.String("snapshot_schedule", archive.DefaultSnapshotSchedule),
		MetricsPath:      cfg.String("metrics_path", "/metrics"),
		StatsdAddr:       cfg.String("statsd_addr", ""),
		StatsdInterval:   cfg.Duration("statsd_interval", 10*time.Second),
		OtelMetrics:      cfg.Bool("otel_metrics", false),
		OtelTracing:      cfg.Bool("otel_tracing", false),
		ShutdownTimeout:  cfg.Duration("shutdown_timeout", 10*time.Second),
	}

	switch s.LogFormat {
	case "json", "text":
	default:
		return settings{}, fmt.Errorf("unknown log_format %q (want json or text)", s.LogFormat)
	}
	return s, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}
