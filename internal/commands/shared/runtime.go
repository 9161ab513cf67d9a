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

package shared

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tombee/sinitc/internal/config"
	"github.com/tombee/sinitc/internal/lifecycle"
	"github.com/tombee/sinitc/internal/log"
	"github.com/tombee/sinitc/internal/metrics"
	"github.com/tombee/sinitc/internal/registry"
	"github.com/tombee/sinitc/internal/service"
	"github.com/tombee/sinitc/internal/tracing"
)

// Runtime is what a command needs to act on services: configuration, the
// loaded registry and the ambient logger, tracer and metrics.
type Runtime struct {
	Config        *config.Config
	Logger        *slog.Logger
	Registry      *registry.Registry
	Metrics       *metrics.Recorder
	CorrelationID tracing.CorrelationID

	provider *tracing.Provider
}

type runtimeOptions struct {
	procs     registry.ProcessController
	logOutput io.Writer
}

// RuntimeOption customizes NewRuntime.
type RuntimeOption func(*runtimeOptions)

// WithProcessController replaces the OS process controller.
func WithProcessController(procs registry.ProcessController) RuntimeOption {
	return func(o *runtimeOptions) { o.procs = procs }
}

// WithLogOutput sends diagnostics to w instead of stderr.
func WithLogOutput(w io.Writer) RuntimeOption {
	return func(o *runtimeOptions) { o.logOutput = w }
}

// testRuntimeOptions are appended to every NewRuntime call.
var testRuntimeOptions []RuntimeOption

// SetRuntimeOptionsForTest injects options into every runtime built by
// commands. Pass nothing to reset.
func SetRuntimeOptionsForTest(opts ...RuntimeOption) {
	testRuntimeOptions = opts
}

// NewRuntime loads configuration and declarations and wires the registry.
// Configuration and declaration failures are returned as ExitConfig errors.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	o := runtimeOptions{logOutput: os.Stderr}
	for _, opt := range append(opts, testRuntimeOptions...) {
		opt(&o)
	}

	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, NewConfigError("failed to load configuration", err)
	}

	id := tracing.FromEnv()
	logger := log.WithCorrelationID(log.New(logConfig(cfg, o.logOutput)), id.String())

	provider, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		Headers:        cfg.Tracing.Headers,
		ServiceVersion: build.version,
	})
	if err != nil {
		return nil, NewConfigError("failed to set up tracing", err)
	}

	defs, err := service.Discover(cfg.Paths.ConfigRoot,
		service.WithPattern(cfg.Discovery.Pattern),
		service.WithSkipInvalid(cfg.Discovery.SkipInvalid),
	)
	if err != nil {
		if !cfg.Discovery.SkipInvalid {
			return nil, NewConfigError("failed to load service declarations", err)
		}
		logger.Warn("skipping invalid service declarations", log.Error(err))
	}

	rec := metrics.New()

	regOpts := []registry.Option{
		registry.WithLogger(log.WithComponent(logger, "registry")),
		registry.WithTracer(provider.Tracer("github.com/tombee/sinitc/internal/registry")),
		registry.WithMetrics(rec),
		registry.WithLivenessCheck(cfg.LivenessCheck),
	}
	if cfg.Lock {
		regOpts = append(regOpts, registry.WithLocker(lifecycle.NewLocker(cfg.Paths.RunRoot)))
	}
	if cfg.Journal {
		journal := lifecycle.NewJournal(cfg.JournalPath()).WithCorrelationID(id.String())
		regOpts = append(regOpts, registry.WithJournal(journal))
	}

	procs := o.procs
	if procs == nil {
		// Services inherit the correlation ID of the command that started them.
		spawner := lifecycle.NewSpawner().WithEnv(append(os.Environ(), id.Environ()))
		procs = lifecycle.NewControllerWithSpawner(spawner)
	}

	reg, err := registry.New(defs,
		lifecycle.NewPIDStore(cfg.Paths.RunRoot),
		lifecycle.NewLogStore(cfg.Paths.LogRoot),
		procs,
		regOpts...,
	)
	if err != nil {
		return nil, NewConfigError("failed to build service registry", err)
	}

	logger.Debug("runtime ready",
		"config_root", cfg.Paths.ConfigRoot, "services", len(defs))

	return &Runtime{
		Config:        cfg,
		Logger:        logger,
		Registry:      reg,
		Metrics:       rec,
		CorrelationID: id,
		provider:      provider,
	}, nil
}

// Context returns ctx carrying the runtime's logger and correlation ID.
func (r *Runtime) Context(ctx context.Context) context.Context {
	ctx = tracing.ToContext(ctx, r.CorrelationID)
	return log.NewContext(ctx, r.Logger)
}

// flushTimeout bounds span export at exit so an unreachable collector
// cannot hold a command (or init's hand-off) open.
const flushTimeout = 2 * time.Second

// Close flushes spans.
func (r *Runtime) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	return r.provider.Shutdown(ctx)
}

// logConfig derives the logger configuration from cfg and the global flags.
func logConfig(cfg *config.Config, out io.Writer) *log.Config {
	lc := &log.Config{
		Level:     cfg.Log.Level,
		Format:    log.Format(cfg.Log.Format),
		Output:    out,
		AddSource: cfg.Log.AddSource,
	}
	if GetVerbose() && lc.Level != "debug" {
		lc.Level = "info"
	}
	if GetQuiet() {
		lc.Level = "error"
	}
	return lc
}
