// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional per-project configuration file
// (config.yaml in the metadata root). A missing file yields the
// defaults; a present file is validated strictly so that a typo in a
// policy field fails loudly instead of silently changing merge
// behavior.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the per-project configuration.
type Config struct {
	// Shell is the command exec'd by "zoner shell" inside a zone.
	// Defaults to $SHELL, then /bin/bash.
	Shell string `yaml:"shell"`

	// Daemon configures the daemon process.
	Daemon DaemonConfig `yaml:"daemon"`

	// Merge configures the reconciliation policy.
	Merge MergeConfig `yaml:"merge"`
}

// DaemonConfig configures the daemon process.
type DaemonConfig struct {
	// ReadyTimeout bounds how long clients and the daemon wait for
	// readiness handshakes (anchor startup, daemon startup).
	ReadyTimeout time.Duration `yaml:"ready_timeout"`

	// RequestTimeout bounds a single request/response exchange on the
	// daemon socket.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// LogLevel is the slog level for the daemon log: "debug", "info",
	// "warn" or "error".
	LogLevel string `yaml:"log_level"`
}

// SlogLevel converts the configured level name to a slog.Level.
// validate has already rejected unknown names.
func (d *DaemonConfig) SlogLevel() slog.Level {
	switch d.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MergeConfig configures the reconciliation policy.
type MergeConfig struct {
	// AutoApplyConflicts also applies conflicting paths when merging,
	// with the zone's version overwriting the target's. Off by
	// default: conflicts are reported and require an explicit flag.
	AutoApplyConflicts bool `yaml:"auto_apply_conflicts"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}
	return &Config{
		Shell: shell,
		Daemon: DaemonConfig{
			ReadyTimeout:   10 * time.Second,
			RequestTimeout: 30 * time.Second,
			LogLevel:       "info",
		},
		Merge: MergeConfig{AutoApplyConflicts: false},
	}
}

// Load reads the configuration at path, applying defaults for unset
// fields. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Shell == "" {
		return fmt.Errorf("shell must not be empty")
	}
	if c.Daemon.ReadyTimeout <= 0 {
		return fmt.Errorf("daemon.ready_timeout must be positive, got %v", c.Daemon.ReadyTimeout)
	}
	if c.Daemon.RequestTimeout <= 0 {
		return fmt.Errorf("daemon.request_timeout must be positive, got %v", c.Daemon.RequestTimeout)
	}
	switch c.Daemon.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("daemon.log_level must be one of debug/info/warn/error, got %q", c.Daemon.LogLevel)
	}
	return nil
}
