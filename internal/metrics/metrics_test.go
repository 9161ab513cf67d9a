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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_RecordOperation(t *testing.T) {
	r := New()

	r.RecordOperation("start", ResultOK, time.Millisecond)
	r.RecordOperation("start", ResultOK, time.Millisecond)
	r.RecordOperation("start", "spawn", time.Millisecond)

	if got := testutil.ToFloat64(r.operations.WithLabelValues("start", ResultOK)); got != 2 {
		t.Errorf("start/ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.operations.WithLabelValues("start", "spawn")); got != 1 {
		t.Errorf("start/spawn = %v, want 1", got)
	}
}

func TestRecorder_RecordService(t *testing.T) {
	r := New()

	r.RecordService("web", true, 4242)
	r.RecordService("db", false, 0)
	r.RecordDeclared(2)

	if got := testutil.ToFloat64(r.serviceUp.WithLabelValues("web")); got != 1 {
		t.Errorf("web up = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.servicePID.WithLabelValues("web")); got != 4242 {
		t.Errorf("web pid = %v, want 4242", got)
	}
	if got := testutil.ToFloat64(r.serviceUp.WithLabelValues("db")); got != 0 {
		t.Errorf("db up = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.declared); got != 2 {
		t.Errorf("declared = %v, want 2", got)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.RecordOperation("stop", ResultOK, 0)
	r.RecordService("web", true, 1)
	r.RecordDeclared(1)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.RecordService("web", true, 7)

	path := filepath.Join(t.TempDir(), "sinitc.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), `sinitc_service_up{service="web"} 1`) {
		t.Errorf("textfile missing service gauge:\n%s", content)
	}
}

func TestRecorder_WriteText(t *testing.T) {
	r := New()
	r.RecordOperation("stop", ResultOK, time.Millisecond)

	var buf strings.Builder
	if err := r.WriteText(&buf); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	if !strings.Contains(buf.String(), `sinitc_operations_total{operation="stop",result="ok"} 1`) {
		t.Errorf("exposition missing counter:\n%s", buf.String())
	}
}
