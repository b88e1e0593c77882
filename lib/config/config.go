// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Log formats accepted by LogConfig.Format.
const (
	// FormatAuto picks text on a terminal and JSON otherwise.
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the complete configuration of a bridge process.
type Config struct {
	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// Tunnels lists the bridges to run. Order is preserved: it is the
	// order endpoints are opened and serviced in.
	Tunnels []Tunnel `yaml:"tunnels"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is a slog level name: debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is auto, text, or json.
	// Default: auto
	Format string `yaml:"format"`
}

// Default returns a configuration with no tunnels and default logging.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: FormatAuto,
		},
	}
}

// LoadFile loads configuration from path on top of Default.
//
// Files ending in .json or .jsonc may contain comments and trailing
// commas; they are normalized to plain JSON and then decoded with the
// YAML decoder, which accepts JSON as a subset. Unknown top-level keys
// are an error. An empty file yields the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// SlogLevel converts Level to a slog.Level. An empty Level is info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", l.Level)
	}
	return level, nil
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", FormatAuto, FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q (want auto, text, or json)", c.Log.Format))
	}

	if len(c.Tunnels) == 0 {
		errs = append(errs, errors.New("at least one tunnel is required"))
	}

	listenPorts := make(map[uint16]int)
	for index, tunnel := range c.Tunnels {
		if err := tunnel.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tunnels[%d] %s: %w", index, tunnel, err))
			continue
		}
		if tunnel.ListenPort == 0 {
			continue
		}
		if previous, ok := listenPorts[tunnel.ListenPort]; ok {
			errs = append(errs, fmt.Errorf("tunnels[%d] %s: listen port %d already used by tunnels[%d]",
				index, tunnel, tunnel.ListenPort, previous))
			continue
		}
		listenPorts[tunnel.ListenPort] = index
	}

	return errors.Join(errs...)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default} with values from the
// environment. An unset or empty variable takes the default, which is
// itself empty when omitted.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
