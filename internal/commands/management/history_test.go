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

package management

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tombee/sinitc/internal/commands/shared"
	"github.com/tombee/sinitc/internal/lifecycle"
	pkgerrors "github.com/tombee/sinitc/pkg/errors"
)

func TestFilterEvents(t *testing.T) {
	now := time.Now()
	events := []lifecycle.LifecycleEvent{
		{Timestamp: now, Event: lifecycle.EventStart, Service: "web", Success: true},
		{Timestamp: now, Event: lifecycle.EventStartFailure, Service: "db", Success: false},
		{Timestamp: now, Event: lifecycle.EventStop, Service: "web", Success: true},
		{Timestamp: now, Event: lifecycle.EventStopFailure, Service: "web", Success: false},
	}

	tests := []struct {
		name string
		opts historyOptions
		want []string
	}{
		{"all", historyOptions{}, []string{"start", "start_failure", "stop", "stop_failure"}},
		{"by service", historyOptions{service: "web"}, []string{"start", "stop", "stop_failure"}},
		{"failed", historyOptions{failed: true}, []string{"start_failure", "stop_failure"}},
		{"limit keeps newest", historyOptions{limit: 2}, []string{"stop", "stop_failure"}},
		{"service and limit", historyOptions{service: "web", limit: 1}, []string{"stop_failure"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterEvents(events, tt.opts)
			var names []string
			for _, e := range got {
				names = append(names, e.Event)
			}
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("filterEvents() = %v, want %v", names, tt.want)
			}
		})
	}
}

func setup(t *testing.T) *shared.Runtime {
	t.Helper()

	dir := t.TempDir()
	etc := filepath.Join(dir, "etc")
	if err := os.MkdirAll(filepath.Join(etc, "web"), 0755); err != nil {
		t.Fatal(err)
	}
	decl := "[service]\nname = \"web\"\n\n[service.exec]\npath = \"/usr/bin/web\"\n"
	if err := os.WriteFile(filepath.Join(etc, "web", "service.toml"), []byte(decl), 0644); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "sinitc.yaml")
	cfg := "paths:\n  config_root: " + etc + "\n  run_root: " + filepath.Join(dir, "run") + "\n  log_root: " + filepath.Join(dir, "log") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	shared.SetConfigPathForTest(cfgPath)
	shared.SetRuntimeOptionsForTest(shared.WithLogOutput(io.Discard))
	t.Cleanup(func() {
		shared.SetConfigPathForTest("")
		shared.SetRuntimeOptionsForTest()
		shared.SetJSONForTest(false)
	})

	rt, err := shared.NewRuntime(context.Background())
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	return rt
}

func TestRunHistory(t *testing.T) {
	rt := setup(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := runHistory(ctx, rt, &out, historyOptions{}); err != nil {
		t.Fatalf("runHistory() error = %v", err)
	}
	if !strings.Contains(out.String(), "No lifecycle events recorded") {
		t.Errorf("output = %q", out.String())
	}

	journal := lifecycle.NewJournal(rt.Config.JournalPath())
	if err := journal.LogStart("web", 42); err != nil {
		t.Fatal(err)
	}
	if err := journal.LogStop("web", 42, nil); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := runHistory(ctx, rt, &out, historyOptions{service: "web"}); err != nil {
		t.Fatalf("runHistory() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two events, got:\n%s", out.String())
	}
	if !strings.Contains(lines[1], "start") || !strings.Contains(lines[1], "42") {
		t.Errorf("first event line = %q", lines[1])
	}
}

func TestRunHistory_JSON(t *testing.T) {
	rt := setup(t)
	shared.SetJSONForTest(true)

	if err := lifecycle.NewJournal(rt.Config.JournalPath()).LogStart("web", 7); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runHistory(context.Background(), rt, &out, historyOptions{}); err != nil {
		t.Fatal(err)
	}

	var resp historyResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].PID != 7 {
		t.Errorf("events = %+v", resp.Events)
	}
}

func TestRunHistory_UnknownService(t *testing.T) {
	rt := setup(t)

	err := runHistory(context.Background(), rt, io.Discard, historyOptions{service: "ghost"})
	if !pkgerrors.IsNotFound(err) {
		t.Errorf("runHistory() error = %v, want ServiceNotFoundError", err)
	}
}
