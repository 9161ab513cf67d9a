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

// Package boot implements the init hand-off: trigger a start of every
// declared service, then replace the current process with the real init
// command.
package boot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tombee/sinitc/internal/lifecycle"
	"github.com/tombee/sinitc/internal/log"
	"github.com/tombee/sinitc/internal/service"
)

// DefaultSettleDelay is how long Run waits between the last trigger and the
// exec, giving the detached starts a moment to fork.
const DefaultSettleDelay = 10 * time.Millisecond

// ErrEmptyCommand is returned by Run when no command was given.
var ErrEmptyCommand = errors.New("init requires a command to exec")

// ExecFunc replaces the current process image. It does not return on
// success; any return is a failure. unix.Exec satisfies it.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// TriggerFunc asks for name to be started without waiting for it.
type TriggerFunc func(ctx context.Context, name string) error

// Sequencer triggers service starts and hands off to the init command.
type Sequencer struct {
	services []service.Definition
	trigger  TriggerFunc
	exec     ExecFunc
	lookPath func(file string) (string, error)
	env      []string
	settle   time.Duration
	logger   *slog.Logger
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithTrigger replaces the default self-spawning trigger.
func WithTrigger(fn TriggerFunc) Option {
	return func(s *Sequencer) { s.trigger = fn }
}

// WithExec replaces unix.Exec.
func WithExec(fn ExecFunc) Option {
	return func(s *Sequencer) { s.exec = fn }
}

// WithLookPath replaces exec.LookPath for resolving the command.
func WithLookPath(fn func(file string) (string, error)) Option {
	return func(s *Sequencer) { s.lookPath = fn }
}

// WithEnv sets the environment of the exec'd command.
func WithEnv(env []string) Option {
	return func(s *Sequencer) { s.env = env }
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Sequencer) { s.settle = d }
}

// WithLogger sets the logger trigger failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = logger }
}

// NewSequencer creates a sequencer over services, in the order given.
func NewSequencer(services []service.Definition, opts ...Option) *Sequencer {
	s := &Sequencer{
		services: services,
		exec:     unix.Exec,
		lookPath: exec.LookPath,
		env:      os.Environ(),
		settle:   DefaultSettleDelay,
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.trigger == nil {
		s.trigger = SelfTrigger(lifecycle.NewSpawner().WithEnv(s.env), "")
	}
	return s
}

// SelfTrigger returns a trigger that runs "<self> start <name>" as a
// detached process. An empty self resolves to the running executable.
func SelfTrigger(spawner *lifecycle.Spawner, self string) TriggerFunc {
	return func(ctx context.Context, name string) error {
		binary := self
		if binary == "" {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve own executable: %w", err)
			}
			binary = exe
		}
		_, err := spawner.SpawnDetached(binary, []string{"start", name})
		return err
	}
}

// Run triggers every service, waits the settle delay and execs argv. It
// returns only when something prevented the exec.
//
// Services are triggered in order without waiting on each other; the
// "after" hints are not enforced.
func (s *Sequencer) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return ErrEmptyCommand
	}

	// Resolve before touching any service so a typo does not leave a
	// half-booted system behind.
	path, err := s.lookPath(argv[0])
	if err != nil {
		return fmt.Errorf("resolve init command %q: %w", argv[0], err)
	}

	for _, def := range s.services {
		if err := s.trigger(ctx, def.Name); err != nil {
			s.logger.Error("failed to trigger service start",
				log.ServiceKey, def.Name, log.Error(err))
			continue
		}
		s.logger.Debug("triggered service start", log.ServiceKey, def.Name)
	}

	if s.settle > 0 {
		timer := time.NewTimer(s.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.logger.Debug("handing off to init command", "path", path, "argv", argv)
	if err := s.exec(path, argv, s.env); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}
