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

package lifecycle

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/tombee/sinitc/internal/service"
	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// Spawner starts service processes detached from the supervisor's session.
type Spawner struct {
	// Env is the base environment the command's overrides are applied to.
	Env []string
}

// NewSpawner creates a spawner that inherits the current environment.
func NewSpawner() *Spawner {
	return &Spawner{
		Env: os.Environ(),
	}
}

// WithEnv replaces the base environment.
func (s *Spawner) WithEnv(env []string) *Spawner {
	s.Env = env
	return s
}

// Spawn starts spec with stdout and stderr bound to the given files and
// returns the child's PID without waiting for it.
//
// The child:
//   - runs in a new session, so terminal signals aimed at the supervisor
//     do not reach it
//   - has stdin attached to the null device
//   - sees Env plus spec's overrides, split on the first '='
//
// If the supervisor outlives the child, a background Wait reaps it so it
// does not linger as a zombie.
func (s *Spawner) Spawn(name string, spec service.CommandSpec, stdout, stderr *os.File) (int, error) {
	env, err := spec.Environ(s.Env)
	if err != nil {
		return 0, err
	}

	cmd := exec.Command(spec.Path, spec.Options...)
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return 0, &sinitcerrors.ProcessSpawnError{Service: name, Path: spec.Path, Cause: err}
	}

	go func() {
		_ = cmd.Wait()
	}()

	return cmd.Process.Pid, nil
}

// SpawnDetached starts binary with args in a new session sharing the
// supervisor's stdout and stderr, and releases it immediately. The child is
// never reaped by this process; it is meant to outlive it.
func (s *Spawner) SpawnDetached(binary string, args []string) (int, error) {
	cmd := exec.Command(binary, args...)
	cmd.Env = s.Env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return 0, &sinitcerrors.ProcessSpawnError{Path: binary, Cause: err}
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, &sinitcerrors.ProcessSpawnError{Path: binary, Cause: err}
	}
	return pid, nil
}
