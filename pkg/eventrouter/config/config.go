package config

import (
	"reflect"
	"time"

	"github.com/golobby/cast"
)

// Config is a read-only view over decoded configuration. Accessors return
// the caller's default when a key is missing or its value has the wrong
// shape, so a bad value degrades to the default instead of an error.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

func (c Config) lookup(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok && v != nil
}

// String returns the string stored under key.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Duration returns the duration stored under key. Strings use
// time.ParseDuration syntax; bare numbers count seconds.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	v, ok := c.lookup(key)
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case time.Duration:
		return val
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		return defaultVal
	}
	if secs, ok := number(v); ok {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultVal
}

// Bool returns the boolean stored under key. Strings such as "true", "0"
// or "FALSE" are converted.
func (c Config) Bool(key string, defaultVal bool) bool {
	v, ok := c.lookup(key)
	if !ok {
		return defaultVal
	}
	if b, ok := v.(bool); ok {
		return b
	}
	if s, ok := v.(string); ok {
		if b, err := cast.FromType(s, reflect.TypeOf(false)); err == nil {
			return b.(bool)
		}
	}
	return defaultVal
}

// Int returns the integer stored under key. Whole floats (as decoded from
// JSON) and numeric strings (as read from the environment) are converted.
func (c Config) Int(key string, defaultVal int) int {
	v, ok := c.lookup(key)
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		if n, err := cast.FromType(s, reflect.TypeOf(0)); err == nil {
			return n.(int)
		}
		return defaultVal
	}
	if f, ok := number(v); ok && f == float64(int(f)) {
		return int(f)
	}
	return defaultVal
}

// number widens the numeric types YAML, JSON and TOML decoders produce.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Has reports whether key is present, even with a nil value.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Sub returns the nested section stored under key, or an empty Config if the
// key is missing or not a map.
func (c Config) Sub(key string) Config {
	m, _ := c.data[key].(map[string]any)
	return New(m)
}

// with returns a copy of c with key set to value.
func (c Config) with(key string, value any) Config {
	data := make(map[string]any, len(c.data)+1)
	for k, v := range c.data {
		data[k] = v
	}
	data[key] = value
	return Config{data: data}
}
