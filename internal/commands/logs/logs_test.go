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

package logs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/tombee/sinitc/internal/commands/shared"
	"github.com/tombee/sinitc/internal/lifecycle"
	"github.com/tombee/sinitc/internal/service"
	pkgerrors "github.com/tombee/sinitc/pkg/errors"
)

// echoProcs writes its options as lines to stdout and "oops" to stderr,
// then stays alive until signalled.
type echoProcs struct {
	mu    sync.Mutex
	alive map[int]bool
	next  int
}

func (p *echoProcs) Spawn(name string, spec service.CommandSpec, stdout, stderr *os.File) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, opt := range spec.Options {
		io.WriteString(stdout, opt+"\n")
	}
	io.WriteString(stderr, "oops\n")
	p.next++
	p.alive[p.next] = true
	return p.next, nil
}

func (p *echoProcs) Signal(pid int, sig syscall.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.alive, pid)
	return nil
}

func (p *echoProcs) Query(ctx context.Context, pid int) (lifecycle.ProcessInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.alive[pid] {
		return lifecycle.ProcessInfo{}, &pkgerrors.ProcessNotFoundError{PID: pid}
	}
	return lifecycle.ProcessInfo{PID: pid, State: "running"}, nil
}

func setup(t *testing.T) *shared.Runtime {
	t.Helper()

	dir := t.TempDir()
	etc := filepath.Join(dir, "etc")
	if err := os.MkdirAll(filepath.Join(etc, "echo"), 0755); err != nil {
		t.Fatal(err)
	}
	decl := "[service]\nname = \"echo\"\n\n[service.exec]\npath = \"/bin/echo\"\noptions = [\"hi\", \"there\"]\n"
	if err := os.WriteFile(filepath.Join(etc, "echo", "service.toml"), []byte(decl), 0644); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "sinitc.yaml")
	cfg := "paths:\n  config_root: " + etc + "\n  run_root: " + filepath.Join(dir, "run") + "\n  log_root: " + filepath.Join(dir, "log") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	shared.SetConfigPathForTest(cfgPath)
	shared.SetRuntimeOptionsForTest(
		shared.WithProcessController(&echoProcs{alive: map[int]bool{}}),
		shared.WithLogOutput(io.Discard),
	)
	t.Cleanup(func() {
		shared.SetConfigPathForTest("")
		shared.SetRuntimeOptionsForTest()
	})

	rt, err := shared.NewRuntime(context.Background())
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	return rt
}

func TestPrint_NeverStarted(t *testing.T) {
	rt := setup(t)
	var out bytes.Buffer

	err := runPrint(context.Background(), rt, &out, "echo", lifecycle.Stdout)
	if got := shared.ExitCodeFor(err); got != shared.ExitFailure {
		t.Errorf("exit code = %d, want %d", got, shared.ExitFailure)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output for an empty log, got %q", out.String())
	}
}

func TestPrint_Running(t *testing.T) {
	rt := setup(t)
	ctx := context.Background()

	if _, err := rt.Registry.Start(ctx, "echo"); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runPrint(ctx, rt, &out, "echo", lifecycle.Stdout); err != nil {
		t.Fatalf("runPrint() error = %v", err)
	}
	if out.String() != "hi\nthere\n" {
		t.Errorf("stdout = %q", out.String())
	}

	out.Reset()
	if err := runPrint(ctx, rt, &out, "echo", lifecycle.Stderr); err != nil {
		t.Fatalf("runPrint() error = %v", err)
	}
	if out.String() != "oops\n" {
		t.Errorf("stderr = %q", out.String())
	}
}

func TestPrint_AfterStop(t *testing.T) {
	rt := setup(t)
	ctx := context.Background()

	if _, err := rt.Registry.Start(ctx, "echo"); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Registry.Stop(ctx, "echo"); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := runPrint(ctx, rt, &out, "echo", lifecycle.Stdout)
	if got := shared.ExitCodeFor(err); got != shared.ExitFailure {
		t.Errorf("exit code = %d, want %d", got, shared.ExitFailure)
	}
	if out.String() != "hi\nthere\n" {
		t.Errorf("logs should survive the process, got %q", out.String())
	}
}

func TestPrint_UnknownService(t *testing.T) {
	rt := setup(t)

	err := runPrint(context.Background(), rt, io.Discard, "ghost", lifecycle.Stdout)
	if !pkgerrors.IsNotFound(err) {
		t.Errorf("runPrint() error = %v, want ServiceNotFoundError", err)
	}
}

func TestFollow_Cancel(t *testing.T) {
	rt := setup(t)
	if _, err := rt.Registry.Start(context.Background(), "echo"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out safeBuffer
	if err := runFollow(ctx, rt, &out, "echo", lifecycle.Stdout); err != nil {
		t.Fatalf("runFollow() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "hi\nthere\n") {
		t.Errorf("follow output = %q", out.String())
	}
}

func TestCommands(t *testing.T) {
	if cmd := NewStdoutCommand(); cmd.Name() != "stdout" || cmd.Flags().Lookup("follow") == nil {
		t.Errorf("stdout command misconfigured: %s", cmd.Use)
	}
	if cmd := NewStderrCommand(); cmd.Name() != "stderr" {
		t.Errorf("stderr command name = %s", cmd.Name())
	}
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
