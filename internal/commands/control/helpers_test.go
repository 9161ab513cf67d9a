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

package control

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"

	"github.com/tombee/sinitc/internal/commands/shared"
	"github.com/tombee/sinitc/internal/lifecycle"
	"github.com/tombee/sinitc/internal/service"
	pkgerrors "github.com/tombee/sinitc/pkg/errors"
)

// fakeProcs keeps spawned processes in memory; a signal ends them.
type fakeProcs struct {
	mu      sync.Mutex
	nextPID int
	alive   map[int]bool
}

func (f *fakeProcs) Spawn(name string, spec service.CommandSpec, stdout, stderr *os.File) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if spec.Path == "/nonexistent" {
		return 0, &pkgerrors.ProcessSpawnError{Service: name, Path: spec.Path, Cause: os.ErrNotExist}
	}
	f.nextPID++
	f.alive[f.nextPID] = true
	io.WriteString(stdout, "hello from "+name+"\n")
	return f.nextPID, nil
}

func (f *fakeProcs) Signal(pid int, sig syscall.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.alive[pid] {
		return &pkgerrors.ProcessNotFoundError{PID: pid}
	}
	delete(f.alive, pid)
	return nil
}

func (f *fakeProcs) Query(ctx context.Context, pid int) (lifecycle.ProcessInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.alive[pid] {
		return lifecycle.ProcessInfo{}, &pkgerrors.ProcessNotFoundError{PID: pid}
	}
	return lifecycle.ProcessInfo{PID: pid, State: "sleep"}, nil
}

// setupRuntime writes a config and declarations under a temp dir and
// returns a runtime backed by fakeProcs.
func setupRuntime(t *testing.T, declarations map[string]string) *shared.Runtime {
	t.Helper()
	writeFixture(t, declarations)

	rt, err := shared.NewRuntime(context.Background())
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	return rt
}

// writeFixture points the shared flags at a temp config and declarations.
func writeFixture(t *testing.T, declarations map[string]string) {
	t.Helper()

	dir := t.TempDir()
	etc := filepath.Join(dir, "etc")
	for name, body := range declarations {
		if err := os.MkdirAll(filepath.Join(etc, name), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(etc, name, "service.toml"), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfgPath := filepath.Join(dir, "sinitc.yaml")
	cfg := "paths:\n" +
		"  config_root: " + etc + "\n" +
		"  run_root: " + filepath.Join(dir, "run") + "\n" +
		"  log_root: " + filepath.Join(dir, "log") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	shared.SetConfigPathForTest(cfgPath)
	shared.SetRuntimeOptionsForTest(
		shared.WithProcessController(&fakeProcs{nextPID: 500, alive: map[int]bool{}}),
		shared.WithLogOutput(io.Discard),
	)
	t.Cleanup(func() {
		shared.SetConfigPathForTest("")
		shared.SetRuntimeOptionsForTest()
		shared.SetJSONForTest(false)
	})
}

func defaultDeclarations() map[string]string {
	return map[string]string{
		"web": "[service]\nname = \"web\"\nafter = [\"db\"]\n\n[service.exec]\npath = \"/usr/bin/web\"\noptions = [\"--port\", \"8080\"]\n",
		"db":  "[service]\nname = \"db\"\n\n[service.exec]\npath = \"/usr/bin/db\"\n",
		"bad": "[service]\nname = \"bad\"\n\n[service.exec]\npath = \"/nonexistent\"\n",
	}
}

func outputOf(fn func(out *bytes.Buffer) error) (string, error) {
	var buf bytes.Buffer
	err := fn(&buf)
	return buf.String(), err
}
