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

package metrics

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tombee/sinitc/internal/commands/shared"
)

func setup(t *testing.T) (*shared.Runtime, string) {
	t.Helper()

	dir := t.TempDir()
	etc := filepath.Join(dir, "etc")
	for _, name := range []string{"db", "web"} {
		if err := os.MkdirAll(filepath.Join(etc, name), 0755); err != nil {
			t.Fatal(err)
		}
		decl := "[service]\nname = \"" + name + "\"\n\n[service.exec]\npath = \"/usr/bin/" + name + "\"\n"
		if err := os.WriteFile(filepath.Join(etc, name, "service.toml"), []byte(decl), 0644); err != nil {
			t.Fatal(err)
		}
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
	})

	rt, err := shared.NewRuntime(context.Background())
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	return rt, dir
}

func TestRunMetrics_Print(t *testing.T) {
	rt, _ := setup(t)

	var out bytes.Buffer
	if err := runMetrics(context.Background(), rt, &out, metricsOptions{print: true}); err != nil {
		t.Fatalf("runMetrics() error = %v", err)
	}

	for _, want := range []string{
		"sinitc_services_declared 2",
		`sinitc_service_up{service="db"} 0`,
		`sinitc_service_up{service="web"} 0`,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("exposition missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunMetrics_Textfile(t *testing.T) {
	rt, dir := setup(t)
	path := filepath.Join(dir, "out.prom")

	var out bytes.Buffer
	if err := runMetrics(context.Background(), rt, &out, metricsOptions{textfile: path}); err != nil {
		t.Fatalf("runMetrics() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "sinitc_services_declared 2") {
		t.Errorf("textfile content:\n%s", content)
	}
	if !strings.Contains(out.String(), "wrote "+path) {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunMetrics_DefaultTextfile(t *testing.T) {
	rt, dir := setup(t)

	if err := runMetrics(context.Background(), rt, io.Discard, metricsOptions{}); err != nil {
		t.Fatalf("runMetrics() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run", "sinitc.prom")); err != nil {
		t.Errorf("default textfile not written: %v", err)
	}
}
