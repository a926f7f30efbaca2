package eventrouter

import (
	"time"

	"github.com/randalmurphal/eventrouter/pkg/eventrouter/config"
)

// Config sizes the router's buffers. Zero or negative sizes fall back to
// the defaults.
type Config struct {
	// MaxEventHistory bounds the history ring.
	// Default: 500
	MaxEventHistory int

	// MaxQueueSize bounds the delivery queue. Emissions beyond it are dropped.
	// Default: 1000
	MaxQueueSize int

	// EnableQueuing routes emissions through the queue instead of
	// dispatching them immediately.
	// Default: true
	EnableQueuing bool

	// HandlerTimeout bounds each handler invocation. A handler that overruns
	// is recorded as failed and no longer waited for.
	// Default: 0 (no timeout)
	HandlerTimeout time.Duration

	// MaxTrackedModules caps the number of source modules with stats.
	// The least recently active module is forgotten first.
	// Default: 1024
	MaxTrackedModules int

	// MaxTrackedEvents caps the number of event names with counters.
	// Default: 4096
	MaxTrackedEvents int

	// MaxFailedDeliveries bounds the failed-delivery log.
	// Default: 100
	MaxFailedDeliveries int
}

// DefaultConfig returns the default router configuration.
func DefaultConfig() Config {
	return Config{
		MaxEventHistory:     500,
		MaxQueueSize:        1000,
		EnableQueuing:       true,
		MaxTrackedModules:   1024,
		MaxTrackedEvents:    4096,
		MaxFailedDeliveries: 100,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxEventHistory <= 0 {
		c.MaxEventHistory = def.MaxEventHistory
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = def.MaxQueueSize
	}
	if c.HandlerTimeout < 0 {
		c.HandlerTimeout = 0
	}
	if c.MaxTrackedModules <= 0 {
		c.MaxTrackedModules = def.MaxTrackedModules
	}
	if c.MaxTrackedEvents <= 0 {
		c.MaxTrackedEvents = def.MaxTrackedEvents
	}
	if c.MaxFailedDeliveries <= 0 {
		c.MaxFailedDeliveries = def.MaxFailedDeliveries
	}
	return c
}

// ConfigFrom reads router settings from cfg, keeping the defaults for
// missing keys.
//
//	max_event_history: 500
//	max_queue_size: 1000
//	enable_queuing: true
//	handler_timeout: 5s
//	max_tracked_modules: 1024
//	max_tracked_events: 4096
//	max_failed_deliveries: 100
func ConfigFrom(cfg config.Config) Config {
	def := DefaultConfig()
	return Config{
		MaxEventHistory:     cfg.Int("max_event_history", def.MaxEventHistory),
		MaxQueueSize:        cfg.Int("max_queue_size", def.MaxQueueSize),
		EnableQueuing:       cfg.Bool("enable_queuing", def.EnableQueuing),
		HandlerTimeout:      cfg.Duration("handler_timeout", def.HandlerTimeout),
		MaxTrackedModules:   cfg.Int("max_tracked_modules", def.MaxTrackedModules),
		MaxTrackedEvents:    cfg.Int("max_tracked_events", def.MaxTrackedEvents),
		MaxFailedDeliveries: cfg.Int("max_failed_deliveries", def.MaxFailedDeliveries),
	}
}

// EnvSchema lists the keys ConfigFrom understands with sample values of the
// expected types, for use with config.Config.WithEnv.
func EnvSchema() map[string]any {
	return map[string]any{
		"max_event_history":     0,
		"max_queue_size":        0,
		"enable_queuing":        false,
		"handler_timeout":       time.Duration(0),
		"max_tracked_modules":   0,
		"max_tracked_events":    0,
		"max_failed_deliveries": 0,
	}
}
