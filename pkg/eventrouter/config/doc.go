/*
Package config provides type-safe configuration extraction from map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that
return the supplied default when a key is missing or holds an unusable value.
The event router daemon uses it to read its settings from YAML, JSON or TOML
files, with environment variables layered on top.

# Basic Usage

	cfg := config.New(map[string]any{
	    "max_queue_size":  1000,
	    "enable_queuing":  true,
	    "handler_timeout": "5s",
	})

	size := cfg.Int("max_queue_size", 500)                 // 1000
	queuing := cfg.Bool("enable_queuing", false)           // true
	timeout := cfg.Duration("handler_timeout", 0)          // 5s
	addr := cfg.Sub("http").String("addr", ":8080")        // ":8080"

# File Loading

	cfg, err := config.FromFile("eventrouter.toml")

FromFile picks the parser by extension: .yaml/.yml, .json or .toml.

# Environment Overlay

WithEnv replaces values with PREFIX_KEY environment variables, converting
each one to the type of a sample value:

	cfg, err = cfg.WithEnv("EVENTROUTER", map[string]any{"max_queue_size": 0})

# Reloading

Watch re-reads a file on every write and hands the new Config to a callback.

# Thread Safety

Config is safe for concurrent read access. WithEnv returns a copy and never
modifies the receiver.
*/
package config
