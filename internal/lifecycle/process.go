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
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"

	"github.com/tombee/sinitc/internal/service"
	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// ProcessInfo is the OS view of a live PID.
type ProcessInfo struct {
	PID int

	// State is the first status string the OS reports, verbatim
	// ("running", "sleep", "zombie", "stop", "idle", ...).
	State string

	// StartTime is the creation time in milliseconds since the epoch,
	// or 0 when the platform cannot report it.
	StartTime int64

	// Command is the process command line when it can be read.
	Command string
}

// Controller is the only component that touches OS process primitives.
type Controller struct {
	spawner *Spawner
}

// NewController creates a controller spawning with the current environment.
func NewController() *Controller {
	return &Controller{spawner: NewSpawner()}
}

// NewControllerWithSpawner creates a controller using spawner.
func NewControllerWithSpawner(spawner *Spawner) *Controller {
	return &Controller{spawner: spawner}
}

// Spawn starts a service process; see Spawner.Spawn.
func (c *Controller) Spawn(name string, spec service.CommandSpec, stdout, stderr *os.File) (int, error) {
	return c.spawner.Spawn(name, spec, stdout, stderr)
}

// Signal delivers sig to pid. A PID absent from the process table is a
// ProcessNotFoundError.
func (c *Controller) Signal(pid int, sig syscall.Signal) error {
	return SendSignal(pid, sig)
}

// Query reports the OS view of pid, or ProcessNotFoundError when the PID
// is not in the process table.
func (c *Controller) Query(ctx context.Context, pid int) (ProcessInfo, error) {
	if pid <= 0 {
		return ProcessInfo{}, &sinitcerrors.ProcessNotFoundError{PID: pid}
	}

	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return ProcessInfo{}, &sinitcerrors.ProcessNotFoundError{PID: pid}
		}
		return ProcessInfo{}, fmt.Errorf("query process %d: %w", pid, err)
	}

	states, err := p.StatusWithContext(ctx)
	if err != nil {
		// The process can exit between the existence check and the read.
		if !IsProcessRunning(pid) {
			return ProcessInfo{}, &sinitcerrors.ProcessNotFoundError{PID: pid}
		}
		return ProcessInfo{}, fmt.Errorf("query process %d status: %w", pid, err)
	}

	info := ProcessInfo{PID: pid}
	if len(states) > 0 {
		info.State = states[0]
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		info.StartTime = created
	}
	if cmd, err := p.CmdlineWithContext(ctx); err == nil {
		info.Command = strings.TrimSpace(cmd)
	}
	return info, nil
}

// IsProcessRunning checks if a process with the given PID exists.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	// Signal 0 checks existence and permission without delivering anything.
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// SendSignal sends a signal to the given process.
func SendSignal(pid int, sig syscall.Signal) error {
	// kill(2) treats 0 and negative PIDs as process groups.
	if pid <= 0 {
		return &sinitcerrors.ProcessNotFoundError{PID: pid}
	}

	if err := unix.Kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return &sinitcerrors.ProcessNotFoundError{PID: pid}
		}
		return fmt.Errorf("failed to send signal %v to process %d: %w", sig, pid, err)
	}
	return nil
}
