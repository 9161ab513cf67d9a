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

// Package registry is the service lifecycle engine: it binds the declared
// services to their PID records, captured output and processes, and
// implements start, stop, restart, status and log retrieval.
//
// Every operation takes a service name and fails with ServiceNotFoundError
// before touching the filesystem or any process when the name is unknown.
// The engine is synchronous; nothing here runs in the background.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/sinitc/internal/lifecycle"
	"github.com/tombee/sinitc/internal/log"
	"github.com/tombee/sinitc/internal/metrics"
	"github.com/tombee/sinitc/internal/service"
	"github.com/tombee/sinitc/internal/tracing"
	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// tracerName is the instrumentation scope of registry spans.
const tracerName = "github.com/tombee/sinitc/internal/registry"

// startTimeTolerance absorbs jitter in how the OS reports creation times.
const startTimeTolerance = int64(time.Second / time.Millisecond)

// PIDStore persists one PID record per service.
type PIDStore interface {
	Read(name string) (lifecycle.PIDRecord, bool, error)
	Write(name string, rec lifecycle.PIDRecord) error
	Remove(name string) error
}

// LogStore manages captured stdout/stderr per service.
type LogStore interface {
	Recreate(name string) (stdout, stderr *os.File, err error)
	ReadLines(name string, stream lifecycle.Stream) ([]string, error)
	Follow(ctx context.Context, name string, stream lifecycle.Stream, fn func(line string)) error
}

// ProcessController spawns, signals and inspects OS processes.
type ProcessController interface {
	Spawn(name string, spec service.CommandSpec, stdout, stderr *os.File) (int, error)
	Signal(pid int, sig syscall.Signal) error
	Query(ctx context.Context, pid int) (lifecycle.ProcessInfo, error)
}

// Locker serializes mutating operations on the same service.
type Locker interface {
	Acquire(ctx context.Context, name string) (*lifecycle.Lock, error)
}

// Journal records start/stop events for audit.
type Journal interface {
	LogStart(name string, pid int) error
	LogStartFailure(name string, err error) error
	LogStop(name string, pid int, err error) error
	LogStalePID(name string, pid int, reason string) error
	LogAlreadyRunning(name string, pid int) error
}

// Registry is the set of declared services plus the stores they use.
type Registry struct {
	defs  []service.Definition
	index map[string]int

	pids  PIDStore
	logs  LogStore
	procs ProcessController

	locker        Locker
	journal       Journal
	livenessCheck bool

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Recorder
}

// Option configures a Registry.
type Option func(*Registry)

// WithLocker serializes start/stop/restart per service through locker.
func WithLocker(locker Locker) Option {
	return func(r *Registry) { r.locker = locker }
}

// WithJournal records lifecycle events to journal.
func WithJournal(journal Journal) Option {
	return func(r *Registry) { r.journal = journal }
}

// WithLivenessCheck enables recording and comparing process start times so
// a recycled PID is reported as stale rather than as the service.
func WithLivenessCheck(enabled bool) Option {
	return func(r *Registry) { r.livenessCheck = enabled }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Registry) { r.tracer = tracer }
}

// WithMetrics records operation counters and service gauges to m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Registry) { r.metrics = m }
}

// New builds a registry over defs. Duplicate names are a ConfigParseError.
func New(defs []service.Definition, pids PIDStore, logs LogStore, procs ProcessController, opts ...Option) (*Registry, error) {
	r := &Registry{
		defs:          make([]service.Definition, 0, len(defs)),
		index:         make(map[string]int, len(defs)),
		pids:          pids,
		logs:          logs,
		procs:         procs,
		livenessCheck: true,
		logger:        log.Discard(),
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, def := range defs {
		if _, dup := r.index[def.Name]; dup {
			return nil, &sinitcerrors.ConfigParseError{
				Path:   def.Source,
				Reason: fmt.Sprintf("duplicate service name %q", def.Name),
			}
		}
		r.index[def.Name] = len(r.defs)
		r.defs = append(r.defs, def)
	}
	r.metrics.RecordDeclared(len(r.defs))

	return r, nil
}

// Services returns the definitions in registry order.
func (r *Registry) Services() []service.Definition {
	out := make([]service.Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Find returns the definition for name.
func (r *Registry) Find(name string) (service.Definition, error) {
	i, ok := r.index[name]
	if !ok {
		return service.Definition{}, &sinitcerrors.ServiceNotFoundError{Name: name}
	}
	return r.defs[i], nil
}

// Status reports the state of name's recorded process.
func (r *Registry) Status(ctx context.Context, name string) (st Status, err error) {
	ctx, done := r.instrument(ctx, "status", name)
	defer func() { done(st.PID, err) }()

	if _, err := r.Find(name); err != nil {
		return Status{Name: name, State: StateStopped}, err
	}

	st, _, err = r.observe(ctx, name)
	if err == nil {
		r.metrics.RecordService(name, st.Running(), st.PID)
	}
	return st, err
}

// observe reads the record for name and classifies its process. live is
// the OS view of the process when the record points at one.
func (r *Registry) observe(ctx context.Context, name string) (Status, *lifecycle.ProcessInfo, error) {
	st := Status{Name: name, State: StateStopped}

	rec, ok, err := r.pids.Read(name)
	if err != nil {
		return st, nil, err
	}
	if !ok {
		return st, nil, nil
	}
	st.PID = rec.PID

	info, err := r.procs.Query(ctx, rec.PID)
	if err != nil {
		if sinitcerrors.IsProcessGone(err) {
			st.State = StateStale
			return st, nil, nil
		}
		return st, nil, err
	}

	if r.livenessCheck && !sameProcess(rec, info) {
		r.logger.Debug("PID reused by another process",
			log.ServiceKey, name, log.PIDKey, rec.PID,
			"recorded_start", rec.StartTime, "actual_start", info.StartTime)
		st.State = StateStale
		return st, nil, nil
	}

	st.ProcState = info.State
	st.State = classify(info.State)
	return st, &info, nil
}

// sameProcess compares creation times when both sides know them.
func sameProcess(rec lifecycle.PIDRecord, info lifecycle.ProcessInfo) bool {
	if rec.StartTime == 0 || info.StartTime == 0 {
		return true
	}
	diff := rec.StartTime - info.StartTime
	if diff < 0 {
		diff = -diff
	}
	return diff <= startTimeTolerance
}

// Start launches name and returns its PID. Captured output from any
// previous run is discarded first. Starting a service whose recorded
// process is still alive fails with AlreadyRunningError.
func (r *Registry) Start(ctx context.Context, name string) (pid int, err error) {
	ctx, done := r.instrument(ctx, "start", name)
	defer func() { done(pid, err) }()

	def, err := r.Find(name)
	if err != nil {
		return 0, err
	}

	unlock, err := r.lock(ctx, name)
	if err != nil {
		return 0, err
	}
	defer unlock()

	return r.start(ctx, def)
}

func (r *Registry) start(ctx context.Context, def service.Definition) (int, error) {
	logger := log.WithService(r.logger, def.Name)

	current, _, err := r.observe(ctx, def.Name)
	if err != nil {
		// A corrupt record must not block a fresh start.
		logger.Warn("ignoring unreadable PID record", log.Error(err))
	}
	switch {
	case current.Running():
		r.journalEvent(logger, func(j Journal) error { return j.LogAlreadyRunning(def.Name, current.PID) })
		return 0, &sinitcerrors.AlreadyRunningError{Name: def.Name, PID: current.PID}
	case current.State == StateStale:
		r.journalEvent(logger, func(j Journal) error { return j.LogStalePID(def.Name, current.PID, "process not found") })
	}

	stdout, stderr, err := r.logs.Recreate(def.Name)
	if err != nil {
		r.journalEvent(logger, func(j Journal) error { return j.LogStartFailure(def.Name, err) })
		return 0, err
	}
	defer stdout.Close()
	defer stderr.Close()

	pid, err := r.procs.Spawn(def.Name, def.Exec, stdout, stderr)
	if err != nil {
		r.journalEvent(logger, func(j Journal) error { return j.LogStartFailure(def.Name, err) })
		return 0, err
	}
	logger = logger.With(log.PIDKey, pid)

	rec := lifecycle.PIDRecord{PID: pid}
	if r.livenessCheck {
		// A child that already exited has no start time; the record then
		// falls back to PID-only liveness.
		if info, err := r.procs.Query(ctx, pid); err == nil {
			rec.StartTime = info.StartTime
		}
	}

	if err := r.pids.Write(def.Name, rec); err != nil {
		logger.Error("process started but its PID could not be recorded", log.Error(err))
		r.journalEvent(logger, func(j Journal) error { return j.LogStartFailure(def.Name, err) })
		return 0, err
	}

	logger.Info("service started")
	r.journalEvent(logger, func(j Journal) error { return j.LogStart(def.Name, pid) })
	return pid, nil
}

// Stop sends SIGTERM to name's recorded process and deletes the record. It
// does not wait for the process to exit. A missing record is a no-op and a
// process that is already gone counts as stopped. The returned status is
// what the OS reported right after the signal.
func (r *Registry) Stop(ctx context.Context, name string) (st Status, err error) {
	ctx, done := r.instrument(ctx, "stop", name)
	defer func() { done(st.PID, err) }()

	if _, err := r.Find(name); err != nil {
		return Status{Name: name, State: StateStopped}, err
	}

	unlock, err := r.lock(ctx, name)
	if err != nil {
		return Status{Name: name, State: StateStopped}, err
	}
	defer unlock()

	return r.stop(ctx, name)
}

func (r *Registry) stop(ctx context.Context, name string) (Status, error) {
	logger := log.WithService(r.logger, name)

	current, _, observeErr := r.observe(ctx, name)
	if observeErr == nil && current.State == StateStopped {
		return current, nil
	}

	var sigErr error
	if observeErr == nil && current.State != StateStale {
		sigErr = r.procs.Signal(current.PID, syscall.SIGTERM)
		if sinitcerrors.IsProcessGone(sigErr) {
			sigErr = nil
		}
		if after, _, err := r.observe(ctx, name); err == nil {
			current = after
		}
	}

	if current.PID != 0 {
		logger = logger.With(log.PIDKey, current.PID)
	}
	r.journalEvent(logger, func(j Journal) error { return j.LogStop(name, current.PID, sigErr) })

	removeErr := r.pids.Remove(name)
	if sigErr != nil {
		logger.Warn("signal failed; PID record removed anyway", log.Error(sigErr))
	}

	return current, errors.Join(observeErr, sigErr, removeErr)
}

// Restart stops then starts name under one lock. A failed stop does not
// prevent the start; both errors are returned.
func (r *Registry) Restart(ctx context.Context, name string) (pid int, err error) {
	ctx, done := r.instrument(ctx, "restart", name)
	defer func() { done(pid, err) }()

	def, err := r.Find(name)
	if err != nil {
		return 0, err
	}

	unlock, err := r.lock(ctx, name)
	if err != nil {
		return 0, err
	}
	defer unlock()

	_, stopErr := r.stop(ctx, name)
	if stopErr != nil {
		log.WithService(r.logger, name).Warn("stop failed during restart", log.Error(stopErr))
	}

	pid, startErr := r.start(ctx, def)
	return pid, errors.Join(stopErr, startErr)
}

// ReadLogs returns the captured lines of stream ("stdout" or "stderr").
// A service that never ran has empty logs.
func (r *Registry) ReadLogs(ctx context.Context, name, stream string) (lines []string, err error) {
	_, done := r.instrument(ctx, "read_logs", name)
	defer func() { done(0, err) }()

	if _, err := r.Find(name); err != nil {
		return nil, err
	}
	s, err := lifecycle.ParseStream(stream)
	if err != nil {
		return nil, err
	}
	return r.logs.ReadLines(name, s)
}

// FollowLogs delivers existing and newly appended lines of stream to fn
// until ctx is cancelled or the service is started again.
func (r *Registry) FollowLogs(ctx context.Context, name, stream string, fn func(line string)) error {
	if _, err := r.Find(name); err != nil {
		return err
	}
	s, err := lifecycle.ParseStream(stream)
	if err != nil {
		return err
	}
	return r.logs.Follow(ctx, name, s, fn)
}

// lock takes the per-service lock when one is configured.
func (r *Registry) lock(ctx context.Context, name string) (func(), error) {
	if r.locker == nil {
		return func() {}, nil
	}
	l, err := r.locker.Acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := l.Release(); err != nil {
			log.WithService(r.logger, name).Warn("failed to release lock", log.Error(err))
		}
	}, nil
}

// journalEvent writes to the journal if one is configured. Journal
// failures are logged and never fail the operation.
func (r *Registry) journalEvent(logger *slog.Logger, write func(Journal) error) {
	if r.journal == nil {
		return
	}
	if err := write(r.journal); err != nil {
		logger.Warn("failed to write lifecycle journal", log.Error(err))
	}
}

// instrument opens a span for op and returns a func that closes it and
// records the outcome in metrics.
func (r *Registry) instrument(ctx context.Context, op, name string) (context.Context, func(pid int, err error)) {
	started := time.Now()
	attrs := []attribute.KeyValue{attribute.String("sinitc.service", name)}
	if id := tracing.FromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("sinitc.correlation_id", id.String()))
	}
	ctx, span := r.tracer.Start(ctx, "registry."+op, trace.WithAttributes(attrs...))

	return ctx, func(pid int, err error) {
		if pid != 0 {
			span.SetAttributes(attribute.Int("sinitc.pid", pid))
		}

		result := metrics.ResultOK
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			result = sinitcerrors.Classify(err)
			if result == "" {
				result = metrics.ResultError
			}
		}
		span.End()

		r.metrics.RecordOperation(op, result, time.Since(started))
	}
}
