package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

var durationType = reflect.TypeOf(time.Duration(0))

// WithEnv overlays environment variables onto c.
//
// For every key in schema the variable PREFIX_KEY (upper-cased) is consulted.
// A set, non-empty variable replaces the file value after being converted to
// the type of the schema's sample value. Durations are kept as strings and
// parsed by Duration.
//
//	cfg, err = cfg.WithEnv("EVENTROUTER", map[string]any{
//	    "max_queue_size": 0,
//	    "enable_queuing": false,
//	})
func (c Config) WithEnv(prefix string, schema map[string]any) (Config, error) {
	return c.withLookup(prefix, schema, os.LookupEnv)
}

func (c Config) withLookup(prefix string, schema map[string]any, lookup func(string) (string, bool)) (Config, error) {
	out := c
	for key, sample := range schema {
		name := EnvName(prefix, key)
		raw, ok := lookup(name)
		if !ok || raw == "" {
			continue
		}

		t := reflect.TypeOf(sample)
		if t == nil || t == durationType {
			out = out.with(key, raw)
			continue
		}

		v, err := cast.FromType(raw, t)
		if err != nil {
			return Config{}, fmt.Errorf("env %s: cannot convert %q to %v: %w", name, raw, t, err)
		}
		out = out.with(key, v)
	}
	return out, nil
}

// EnvName returns the environment variable consulted for key.
func EnvName(prefix, key string) string {
	name := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if prefix == "" {
		return name
	}
	return strings.ToUpper(prefix) + "_" + name
}
