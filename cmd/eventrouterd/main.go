// Command eventrouterd runs an event router behind its HTTP API.
//
// Usage:
//
//	eventrouterd -config ./eventrouterd.yaml
//
// Every setting can also be given as an EVENTROUTER_* environment variable.
// The log level is reloaded when the config file changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
	"github.com/randalmurphal/eventrouter/pkg/eventrouter/archive"
	"github.com/randalmurphal/eventrouter/pkg/eventrouter/config"
	"github.com/randalmurphal/eventrouter/pkg/eventrouter/exporter"
	"github.com/randalmurphal/eventrouter/pkg/eventrouter/httpapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "eventrouterd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML, JSON or TOML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s, err := settingsFrom(cfg)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(s.LogLevel)
	logger := newLogger(os.Stdout, s.LogFormat, level)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		logger.Info("shutdown requested", slog.String("signal", sig.String()))
		cancel()
	}()

	if *configPath != "" {
		err := config.Watch(ctx, *configPath, func(c config.Config, err error) {
			if err != nil {
				logger.Warn("config reload failed", slog.String("error", err.Error()))
				return
			}
			reloadLogLevel(logger, level, c)
		})
		if err != nil {
			logger.Warn("config watch disabled", slog.String("error", err.Error()))
		}
	}

	d, err := newDaemon(s, logger)
	if err != nil {
		return err
	}
	return d.serve(ctx)
}

func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// reloadLogLevel applies the log_level of a reloaded file. Environment
// overrides still win.
func reloadLogLevel(logger *slog.Logger, level *slog.LevelVar, c config.Config) {
	c, err := c.WithEnv(envPrefix, envSchema())
	if err != nil {
		logger.Warn("config reload failed", slog.String("error", err.Error()))
		return
	}
	next, err := parseLevel(c.String("log_level", "info"))
	if err != nil {
		logger.Warn("config reload failed", slog.String("error", err.Error()))
		return
	}
	if next != level.Level() {
		logger.Info("log level changed", slog.String("from", level.Level().String()), slog.String("to", next.String()))
		level.Set(next)
	}
}

// daemon owns the router and everything wired around it.
type daemon struct {
	settings    settings
	logger      *slog.Logger
	router      *eventrouter.Router
	store       archive.Store
	snapshotter *archive.Snapshotter
	statsd      *exporter.StatsdExporter
	registry    *prometheus.Registry
}

func newDaemon(s settings, logger *slog.Logger) (*daemon, error) {
	d := &daemon{settings: s, logger: logger, registry: prometheus.NewRegistry()}

	opts := []eventrouter.Option{
		eventrouter.WithLogger(logger),
		eventrouter.WithMetrics(s.OtelMetrics),
		eventrouter.WithTracing(s.OtelTracing),
	}
	if s.ArchivePath != "" {
		store, err := archive.NewSQLiteStore(s.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		d.store = store
		opts = append(opts, eventrouter.WithArchive(store))
	}
	d.router = eventrouter.New(s.Router, opts...)

	if d.store != nil {
		d.snapshotter = archive.NewSnapshotter(d.store, d.router, logger)
	}
	if s.StatsdAddr != "" {
		exp, err := exporter.NewStatsdExporter(d.router, "", s.StatsdAddr, s.StatsdInterval, nil, logger)
		if err != nil {
			d.closeStore()
			return nil, err
		}
		d.statsd = exp
	}

	d.registry.MustRegister(
		exporter.NewPrometheusCollector(d.router, ""),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return d, nil
}

// handler builds the HTTP surface: the events API under /api and the
// Prometheus endpoint.
func (d *daemon) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		httpapi.New(d.router, d.logger).Mount(r)
	})
	r.Handle(d.settings.MetricsPath, promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	return r
}

// serve runs until ctx is done, then shuts everything down in order.
func (d *daemon) serve(ctx context.Context) error {
	if d.snapshotter != nil {
		if err := d.snapshotter.Start(d.settings.SnapshotSchedule); err != nil {
			d.closeStore()
			return err
		}
	}
	if d.statsd != nil {
		go d.statsd.Run(ctx)
	}

	srv := &http.Server{
		Addr:              d.settings.HTTPAddr,
		Handler:           d.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.settings.ShutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, srv.Shutdown(shutdownCtx), d.shutdown(shutdownCtx))
}

func (d *daemon) shutdown(ctx context.Context) error {
	var errs []error
	if d.snapshotter != nil {
		if err := d.snapshotter.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.router.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close router: %w", err))
	}
	if d.snapshotter != nil {
		if err := d.snapshotter.Snapshot(ctx); err != nil {
			errs = append(errs, fmt.Errorf("final snapshot: %w", err))
		}
	}
	if err := d.statsd.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("close archive: %w", err))
	}
	d.logger.Info("eventrouterd stopped")
	return errors.Join(errs...)
}

func (d *daemon) closeStore() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
