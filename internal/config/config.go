// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the supervisor configuration: where declarations,
// PID records and captured logs live, plus the optional behaviors layered
// on top of the core engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

const (
	// DefaultConfigPath is read when neither --config nor SINITC_CONFIG is set.
	DefaultConfigPath = "/etc/sinitc/sinitc.yaml"

	// EnvConfigPath names the config file when --config is not given.
	EnvConfigPath = "SINITC_CONFIG"

	// DefaultConfigRoot holds one directory per declared service.
	DefaultConfigRoot = "/etc/sinitc"

	// DefaultRunRoot holds PID records and lock files.
	DefaultRunRoot = "/var/run/sinitc"

	// DefaultLogRoot holds captured stdout/stderr per service.
	DefaultLogRoot = "/var/log/sinitc"

	// DefaultPattern matches declaration files relative to the config root.
	DefaultPattern = "*/service.toml"

	// DefaultSettleDelay is how long init waits after triggering starts
	// before replacing its own image.
	DefaultSettleDelay = 10 * time.Millisecond
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Tracing exporters understood by internal/tracing.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

// Config represents the complete sinitc configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Lock serializes start/stop/restart of the same service across
	// concurrent invocations with a per-service flock.
	// Default: true
	Lock bool `yaml:"lock"`

	// LivenessCheck records the process start time next to the PID and
	// treats a mismatch as a stale record.
	// Default: true
	LivenessCheck bool `yaml:"liveness_check"`

	// Journal appends start/stop events to <log_root>/lifecycle.jsonl.
	// Default: true
	Journal bool `yaml:"journal"`

	Init    InitConfig    `yaml:"init"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// PathsConfig configures where state lives on disk.
type PathsConfig struct {
	// ConfigRoot is searched for service declarations.
	// Environment: SINITC_CONFIG_ROOT
	ConfigRoot string `yaml:"config_root"`

	// RunRoot holds <name>/service.pid and <name>.lock.
	// Environment: SINITC_RUN_ROOT
	RunRoot string `yaml:"run_root"`

	// LogRoot holds <name>/stdout and <name>/stderr.
	// Environment: SINITC_LOG_ROOT
	LogRoot string `yaml:"log_root"`
}

// DiscoveryConfig configures how declarations are found and loaded.
type DiscoveryConfig struct {
	// Pattern is a doublestar glob relative to ConfigRoot.
	// Default: */service.toml
	Pattern string `yaml:"pattern"`

	// SkipInvalid loads the valid declarations and reports the broken ones
	// instead of refusing to load anything.
	// Default: false
	SkipInvalid bool `yaml:"skip_invalid"`
}

// InitConfig configures init mode.
type InitConfig struct {
	// SettleDelay is the pause between triggering starts and exec.
	// Default: 10ms
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// Level sets the minimum log level (debug, info, warn, error).
	// Environment: SINITC_LOG_LEVEL, LOG_LEVEL
	// Default: warn
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: text
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: LOG_SOURCE
	AddSource bool `yaml:"add_source"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Exporter is "none", "stdout", "otlp-grpc" or "otlp-http".
	// Default: none
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector address (host:port). Empty defers to
	// OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers"`
}

// MetricsConfig configures the prometheus textfile export.
type MetricsConfig struct {
	// Textfile is where `sinitc metrics` writes the exposition.
	// Default: <run_root>/sinitc.prom
	Textfile string `yaml:"textfile"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			ConfigRoot: DefaultConfigRoot,
			RunRoot:    DefaultRunRoot,
			LogRoot:    DefaultLogRoot,
		},
		Discovery: DiscoveryConfig{
			Pattern: DefaultPattern,
		},
		Lock:          true,
		LivenessCheck: true,
		Journal:       true,
		Init: InitConfig{
			SettleDelay: DefaultSettleDelay,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Tracing: TracingConfig{
			Exporter: ExporterNone,
		},
	}
}

// ResolvePath returns the config file to read and whether it was asked for
// explicitly. An explicit file must exist; the default one may not.
func ResolvePath(flagPath string) (string, bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, true
	}
	return DefaultConfigPath, false
}

// Load reads configuration from configPath (see ResolvePath), then applies
// environment overrides and validates the result.
func Load(configPath string) (*Config, error) {
	path, explicit := ResolvePath(configPath)

	cfg := Default()
	if err := cfg.loadFromFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, &sinitcerrors.ConfigParseError{
				Path:   path,
				Reason: "failed to load configuration",
				Cause:  err,
			}
		}
	}

	cfg.loadFromEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, &sinitcerrors.ConfigParseError{
			Path:   path,
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// loadFromFile decodes a YAML file over the current values, so keys absent
// from the file keep their defaults.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv applies environment variable overrides.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("SINITC_CONFIG_ROOT"); val != "" {
		c.Paths.ConfigRoot = val
	}
	if val := os.Getenv("SINITC_RUN_ROOT"); val != "" {
		c.Paths.RunRoot = val
	}
	if val := os.Getenv("SINITC_LOG_ROOT"); val != "" {
		c.Paths.LogRoot = val
	}

	// SINITC_LOG_LEVEL takes precedence over LOG_LEVEL
	if val := os.Getenv("SINITC_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	} else if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}
	if val := os.Getenv("SINITC_DEBUG"); val == "1" || val == "true" {
		c.Log.Level = "debug"
		c.Log.AddSource = true
	}
}

// applyDefaults fills in values left empty by the file or environment.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Paths.ConfigRoot == "" {
		c.Paths.ConfigRoot = defaults.Paths.ConfigRoot
	}
	if c.Paths.RunRoot == "" {
		c.Paths.RunRoot = defaults.Paths.RunRoot
	}
	if c.Paths.LogRoot == "" {
		c.Paths.LogRoot = defaults.Paths.LogRoot
	}
	if c.Discovery.Pattern == "" {
		c.Discovery.Pattern = defaults.Discovery.Pattern
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaults.Tracing.Exporter
	}
	if c.Metrics.Textfile == "" {
		c.Metrics.Textfile = filepath.Join(c.Paths.RunRoot, "sinitc.prom")
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	for key, dir := range map[string]string{
		"paths.config_root": c.Paths.ConfigRoot,
		"paths.run_root":    c.Paths.RunRoot,
		"paths.log_root":    c.Paths.LogRoot,
	} {
		if dir == "" {
			errs = append(errs, fmt.Sprintf("%s must not be empty", key))
		} else if !filepath.IsAbs(dir) {
			errs = append(errs, fmt.Sprintf("%s must be an absolute path, got %q", key, dir))
		}
	}

	if !doublestar.ValidatePattern(c.Discovery.Pattern) {
		errs = append(errs, fmt.Sprintf("discovery.pattern is not a valid glob: %q", c.Discovery.Pattern))
	}

	if c.Init.SettleDelay < 0 {
		errs = append(errs, fmt.Sprintf("init.settle_delay must not be negative, got %v", c.Init.SettleDelay))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [debug, info, warn, warning, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	switch c.Tracing.Exporter {
	case ExporterNone, ExporterStdout, ExporterOTLPGRPC, ExporterOTLPHTTP:
	default:
		errs = append(errs, fmt.Sprintf("tracing.exporter must be one of [none, stdout, otlp-grpc, otlp-http], got %q", c.Tracing.Exporter))
	}
	if c.Tracing.Endpoint != "" && (c.Tracing.Exporter == ExporterNone || c.Tracing.Exporter == ExporterStdout) {
		errs = append(errs, fmt.Sprintf("tracing.endpoint is only used by the otlp exporters, got exporter %q", c.Tracing.Exporter))
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// JournalPath returns the lifecycle journal location, or "" when disabled.
func (c *Config) JournalPath() string {
	if !c.Journal {
		return ""
	}
	return filepath.Join(c.Paths.LogRoot, "lifecycle.jsonl")
}
