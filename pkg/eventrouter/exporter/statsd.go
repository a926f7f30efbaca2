package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	statsd "github.com/DataDog/datadog-go/v5/statsd"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
)

// StatsdExporter periodically flushes router counters as gauges to a
// StatsD or DogStatsD endpoint. It sends:
//
//	<prefix>.events_total
//	<prefix>.handler_errors_total
//	<prefix>.queue.size
//	<prefix>.queue.dropped_total
//	<prefix>.events_by_type_total (tags: event:<name>)
//	<prefix>.healthy
type StatsdExporter struct {
	source   Source
	client   gaugeClient
	addr     string
	interval time.Duration
	baseTags []string
	logger   *slog.Logger
}

// gaugeClient is the part of *statsd.Client the exporter uses.
type gaugeClient interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Flush() error
	Close() error
}

// NewStatsdExporter creates an exporter. addr example: "127.0.0.1:8125".
// prefix defaults to DefaultNamespace if empty. interval must be > 0.
// Failed periodic flushes are logged to logger, or slog.Default() if nil.
func NewStatsdExporter(source Source, prefix, addr string, interval time.Duration, baseTags []string, logger *slog.Logger) (*StatsdExporter, error) {
	if source == nil {
		return nil, errNilSource
	}
	if interval <= 0 {
		return nil, errInvalidInterval
	}
	if prefix == "" {
		prefix = DefaultNamespace
	}
	client, err := statsd.New(addr, statsd.WithNamespace(prefix+"."),
		statsd.WithoutTelemetry(),
		statsd.WithoutClientSideAggregation(),
	)
	if err != nil {
		return nil, fmt.Errorf("exporter: creating statsd client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsdExporter{
		source:   source,
		client:   client,
		addr:     addr,
		interval: interval,
		baseTags: baseTags,
		logger:   logger,
	}, nil
}

// Run flushes on every interval until ctx is done.
func (e *StatsdExporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Flush(); err != nil {
				e.logger.Warn("statsd flush failed",
					slog.String("addr", e.addr),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Flush sends the current values and flushes the client's buffer. It
// returns every gauge and flush error joined.
func (e *StatsdExporter) Flush() error {
	stats := e.source.Stats()
	health := e.source.Health()

	healthy := 0.0
	if health.Status == eventrouter.StatusHealthy {
		healthy = 1
	}

	var errs []error
	gauge := func(name string, value float64, tags []string) {
		if err := e.client.Gauge(name, value, tags, 1); err != nil {
			errs = append(errs, fmt.Errorf("gauge %s: %w", name, err))
		}
	}
	gauge("events_total", float64(stats.Performance.TotalEvents), e.baseTags)
	gauge("handler_errors_total", float64(stats.Performance.Errors), e.baseTags)
	gauge("queue.size", float64(stats.Queue.CurrentSize), e.baseTags)
	gauge("queue.dropped_total", float64(stats.Queue.TotalDropped), e.baseTags)
	gauge("healthy", healthy, e.baseTags)
	for event, n := range stats.Events.ByType {
		gauge("events_by_type_total", float64(n), e.tags("event:"+event))
	}
	if err := e.client.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	return errors.Join(errs...)
}

func (e *StatsdExporter) tags(extra ...string) []string {
	out := make([]string, 0, len(e.baseTags)+len(extra))
	out = append(out, e.baseTags...)
	return append(out, extra...)
}

// Close closes the underlying statsd client.
func (e *StatsdExporter) Close() error {
	if e == nil || e.client == nil {
		return nil
	}
	if err := e.client.Close(); err != nil {
		return fmt.Errorf("exporter: closing statsd client: %w", err)
	}
	return nil
}
