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

// Package log builds the slog loggers used across sinitc.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Attribute keys shared by every component so log lines can be grepped and
// joined with journal events.
const (
	ServiceKey       = "service"
	PIDKey           = "pid"
	CorrelationIDKey = "correlation_id"
)

// Config holds the logging configuration.
type Config struct {
	// Level is one of debug, info, warn (or warning) and error. Anything
	// else logs at info.
	Level string

	Format    Format
	Output    io.Writer
	AddSource bool
}

// DefaultConfig logs warnings and errors as text on stderr, so normal
// operation prints nothing but the command's own output.
func DefaultConfig() *Config {
	return &Config{
		Level:  "warn",
		Format: FormatText,
		Output: os.Stderr,
	}
}

// FromEnv starts from DefaultConfig and applies, in increasing precedence,
// LOG_LEVEL, SINITC_LOG_LEVEL and SINITC_DEBUG. LOG_FORMAT and LOG_SOURCE
// set the format and source annotation.
//
// It is used before the configuration file has been read, and by init
// where the file may be unreadable.
func FromEnv() *Config {
	cfg := DefaultConfig()

	for _, key := range []string{"LOG_LEVEL", "SINITC_LOG_LEVEL"} {
		if v := os.Getenv(key); v != "" {
			cfg.Level = strings.ToLower(v)
		}
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Format = Format(strings.ToLower(v))
	}
	cfg.AddSource = os.Getenv("LOG_SOURCE") == "1"

	if truthy(os.Getenv("SINITC_DEBUG")) {
		cfg.Level = "debug"
		cfg.AddSource = true
	}
	return cfg
}

func truthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// New builds a logger from cfg. A nil cfg means DefaultConfig.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	if cfg.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithCorrelationID tags every record from logger with the invocation's
// correlation ID.
func WithCorrelationID(logger *slog.Logger, correlationID string) *slog.Logger {
	return logger.With(CorrelationIDKey, correlationID)
}

func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

func WithService(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String(ServiceKey, name))
}

// Error creates an error attribute.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
