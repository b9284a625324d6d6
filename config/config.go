// Package config provides YAML configuration parsing for the carestore binary.
//
// Example configuration:
//
//	port: 8080
//	log_level: debug
//
//	snapshot:
//	  path: ${CARESTORE_DATA:-/var/lib/carestore}/carestore.db
//	  flush_interval: 2s
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultFlushInterval = 5 * time.Second

	// minFlushInterval keeps a misconfigured flusher from hammering the disk.
	minFlushInterval = 100 * time.Millisecond
)

// Config is the root configuration structure for carestore.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Port is the inspection server port. Zero disables the server.
	Port int `yaml:"port"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// Snapshot configures persistence. Omit to keep state in memory only.
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// SnapshotConfig configures the bbolt snapshot file.
type SnapshotConfig struct {
	// Path is the snapshot file. Empty disables persistence.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Path string `yaml:"path"`

	// FlushInterval is how often pending changes are written.
	// Accepts duration strings like "5s" or "500ms". Defaults to 5s.
	FlushInterval Duration `yaml:"flush_interval"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// SlogLevel returns the configured log level as a [slog.Level].
// Call after [Parse]; an unknown level has already been rejected there.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
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

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the snapshot path. Defaults are
// applied for LogLevel (info) and Snapshot.FlushInterval (5s). An empty
// document is valid and yields an in-memory store with no server.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Snapshot.FlushInterval == 0 {
		cfg.Snapshot.FlushInterval = Duration(defaultFlushInterval)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}

	if c.Snapshot.Path != "" {
		expanded, err := expandEnvVars(c.Snapshot.Path)
		if err != nil {
			return fmt.Errorf("snapshot.path: %w", err)
		}
		if strings.TrimSpace(expanded) == "" {
			return fmt.Errorf("snapshot.path: expands to an empty path")
		}
		c.Snapshot.Path = expanded
	}

	if c.Snapshot.FlushInterval.Duration() < minFlushInterval {
		return fmt.Errorf("snapshot.flush_interval must be at least %s, got %s",
			minFlushInterval, c.Snapshot.FlushInterval.Duration())
	}

	return nil
}
