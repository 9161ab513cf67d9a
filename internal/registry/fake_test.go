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

package registry

import (
	"context"
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/tombee/sinitc/internal/lifecycle"
	"github.com/tombee/sinitc/internal/service"
	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// fakeProcs is an in-memory process table. Spawned processes write one
// line to stdout and exit when they receive a signal.
type fakeProcs struct {
	mu sync.Mutex

	nextPID int
	table   map[int]lifecycle.ProcessInfo
	spawned []string
	signals []int

	spawnErr  error
	signalErr error
	// keepOnSignal leaves the process alive after a signal.
	keepOnSignal bool
}

func newFakeProcs() *fakeProcs {
	return &fakeProcs{nextPID: 1000, table: make(map[int]lifecycle.ProcessInfo)}
}

func (f *fakeProcs) Spawn(name string, spec service.CommandSpec, stdout, stderr *os.File) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.spawnErr != nil {
		return 0, &sinitcerrors.ProcessSpawnError{Service: name, Path: spec.Path, Cause: f.spawnErr}
	}

	f.nextPID++
	pid := f.nextPID
	f.table[pid] = lifecycle.ProcessInfo{PID: pid, State: "sleep", StartTime: int64(pid) * 10_000, Command: spec.Path}
	f.spawned = append(f.spawned, name)
	fmt.Fprintf(stdout, "run %d\n", pid)
	return pid, nil
}

func (f *fakeProcs) Signal(pid int, sig syscall.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signals = append(f.signals, pid)
	if f.signalErr != nil {
		return f.signalErr
	}
	if _, ok := f.table[pid]; !ok {
		return &sinitcerrors.ProcessNotFoundError{PID: pid}
	}
	if !f.keepOnSignal {
		delete(f.table, pid)
	}
	return nil
}

func (f *fakeProcs) Query(ctx context.Context, pid int) (lifecycle.ProcessInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, ok := f.table[pid]
	if !ok {
		return lifecycle.ProcessInfo{}, &sinitcerrors.ProcessNotFoundError{PID: pid}
	}
	return info, nil
}

// add inserts a process that was not spawned through the fake.
func (f *fakeProcs) add(info lifecycle.ProcessInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table[info.PID] = info
}

func (f *fakeProcs) signalled() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.signals...)
}

func (f *fakeProcs) spawnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spawned)
}
