// Package exporter publishes router statistics to external metrics systems.
//
// Both exporters are pull-based: they read Router.Stats and Router.Health
// when scraped or flushed, so the emit path carries no extra
// instrumentation.
//
// Usage (Prometheus):
//
//	prometheus.MustRegister(exporter.NewPrometheusCollector(router, ""))
//
// Usage (StatsD / DogStatsD):
//
//	exp, err := exporter.NewStatsdExporter(router, "", "127.0.0.1:8125", 10*time.Second, nil, logger)
//	if err != nil {
//		return err
//	}
//	go exp.Run(ctx)
//	defer exp.Close()
package exporter

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter"
)

// DefaultNamespace prefixes metric names when none is given.
const DefaultNamespace = "eventrouter"

var (
	errNilSource       = errors.New("exporter: nil stats source")
	errInvalidInterval = errors.New("exporter: interval must be > 0")
)

// Source is implemented by *eventrouter.Router.
type Source interface {
	Stats() eventrouter.Stats
	Health() eventrouter.Health
}

// PrometheusCollector implements prometheus.Collector over a router's
// statistics. Values are generated as const metrics on every scrape.
type PrometheusCollector struct {
	source Source

	eventsDesc      *prometheus.Desc
	eventTypeDesc   *prometheus.Desc
	moduleDesc      *prometheus.Desc
	errorsDesc      *prometheus.Desc
	queueEventsDesc *prometheus.Desc
	queueSizeDesc   *prometheus.Desc
	historyDesc     *prometheus.Desc
	listenersDesc   *prometheus.Desc
	healthyDesc     *prometheus.Desc
}

// NewPrometheusCollector creates a collector for source. namespace is used
// as the metric prefix (DefaultNamespace if empty).
func NewPrometheusCollector(source Source, namespace string) *PrometheusCollector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(fmt.Sprintf("%s_%s", namespace, name), help, labels, nil)
	}
	return &PrometheusCollector{
		source:          source,
		eventsDesc:      desc("events_total", "Total emitted events since the last reset"),
		eventTypeDesc:   desc("events_by_type_total", "Emitted events per event name", "event"),
		moduleDesc:      desc("module_events_total", "Emitted events per source module", "module"),
		errorsDesc:      desc("handler_errors_total", "Failed handler invocations and dispatch faults"),
		queueEventsDesc: desc("queue_events_total", "Queue throughput by outcome", "outcome"),
		queueSizeDesc:   desc("queue_size", "Events currently waiting in the delivery queue"),
		historyDesc:     desc("history_size", "Records currently held in the history"),
		listenersDesc:   desc("listeners", "Registered handlers per event name", "event"),
		healthyDesc:     desc("healthy", "1 when the router reports healthy, 0 when degraded"),
	}
}

// Describe sends metric descriptors.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.eventsDesc
	ch <- c.eventTypeDesc
	ch <- c.moduleDesc
	ch <- c.errorsDesc
	ch <- c.queueEventsDesc
	ch <- c.queueSizeDesc
	ch <- c.historyDesc
	ch <- c.listenersDesc
	ch <- c.healthyDesc
}

// Collect gathers current stats and emits const metrics.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	health := c.source.Health()

	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v int, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), labels...)
	}

	counter(c.eventsDesc, stats.Performance.TotalEvents)
	counter(c.errorsDesc, stats.Performance.Errors)
	for event, n := range stats.Events.ByType {
		counter(c.eventTypeDesc, n, event)
	}
	for module, ms := range stats.Modules {
		counter(c.moduleDesc, ms.EventsEmitted, module)
	}

	counter(c.queueEventsDesc, stats.Queue.TotalQueued, "queued")
	counter(c.queueEventsDesc, stats.Queue.TotalProcessed, "processed")
	counter(c.queueEventsDesc, stats.Queue.TotalDropped, "dropped")
	gauge(c.queueSizeDesc, stats.Queue.CurrentSize)
	gauge(c.historyDesc, stats.Events.Total)

	for event, n := range stats.Routes.ByEvent {
		gauge(c.listenersDesc, n, event)
	}

	healthy := 0
	if health.Status == eventrouter.StatusHealthy {
		healthy = 1
	}
	gauge(c.healthyDesc, healthy)
}
