package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type decodeFunc func([]byte, any) error

// decoders maps a lower-cased file extension to its format.
var decoders = map[string]struct {
	format string
	decode decodeFunc
}{
	".yaml": {"yaml", yaml.Unmarshal},
	".yml":  {"yaml", yaml.Unmarshal},
	".json": {"json", json.Unmarshal},
	".toml": {"toml", toml.Unmarshal},
}

// FromFile reads path and decodes it according to its extension
// (.yaml, .yml, .json or .toml).
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := decoders[ext]
	if !ok {
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return decode(d.format, d.decode, data)
}

// FromYAML parses YAML data into a Config.
func FromYAML(data []byte) (Config, error) { return decode("yaml", yaml.Unmarshal, data) }

// FromJSON parses JSON data into a Config.
func FromJSON(data []byte) (Config, error) { return decode("json", json.Unmarshal, data) }

// FromTOML parses TOML data into a Config. Integers decode as int64.
func FromTOML(data []byte) (Config, error) { return decode("toml", toml.Unmarshal, data) }

func decode(format string, fn decodeFunc, data []byte) (Config, error) {
	var m map[string]any
	if err := fn(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", format, err)
	}
	return New(m), nil
}
