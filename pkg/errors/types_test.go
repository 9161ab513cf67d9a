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

package errors_test

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

func TestServiceNotFoundError(t *testing.T) {
	err := &sinitcerrors.ServiceNotFoundError{Name: "web"}

	if got, want := err.Error(), "service not found: web"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	var uv sinitcerrors.UserVisibleError = err
	if !uv.IsUserVisible() {
		t.Error("ServiceNotFoundError should be user visible")
	}
	if !strings.Contains(uv.Suggestion(), "sinitc list") {
		t.Errorf("Suggestion() = %q, want mention of 'sinitc list'", uv.Suggestion())
	}
}

func TestConfigParseError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *sinitcerrors.ConfigParseError
		wantMsg string
	}{
		{
			name:    "path and reason",
			err:     &sinitcerrors.ConfigParseError{Path: "/etc/sinitc/web/service.toml", Reason: "missing name"},
			wantMsg: "config error in /etc/sinitc/web/service.toml: missing name",
		},
		{
			name:    "with line",
			err:     &sinitcerrors.ConfigParseError{Path: "a.toml", Line: 3, Reason: "decode"},
			wantMsg: "config error in a.toml:3: decode",
		},
		{
			name:    "cause only",
			err:     &sinitcerrors.ConfigParseError{Cause: fs.ErrPermission},
			wantMsg: "config error: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ConfigParseError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestConfigParseError_UnwrapsEnvParseError(t *testing.T) {
	envErr := &sinitcerrors.EnvParseError{Entry: "KEYVALUE"}
	err := fmt.Errorf("loading: %w", &sinitcerrors.ConfigParseError{Path: "x.toml", Cause: envErr})

	var got *sinitcerrors.EnvParseError
	if !errors.As(err, &got) {
		t.Fatalf("errors.As did not find EnvParseError in %v", err)
	}
	if got.Entry != "KEYVALUE" {
		t.Errorf("Entry = %q, want KEYVALUE", got.Entry)
	}
}

func TestPersistentStateError_Unwrap(t *testing.T) {
	err := &sinitcerrors.PersistentStateError{Op: "read pid", Path: "/run/x", Cause: fs.ErrNotExist}

	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("PersistentStateError should unwrap to its cause")
	}
	if !strings.HasPrefix(err.Error(), "read pid /run/x") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &sinitcerrors.ServiceNotFoundError{Name: "x"}, "not_found"},
		{"wrapped config", fmt.Errorf("ctx: %w", &sinitcerrors.ConfigParseError{Reason: "r"}), "config"},
		{"spawn", &sinitcerrors.ProcessSpawnError{Path: "/bin/false", Cause: fs.ErrPermission}, "spawn"},
		{"conflict", &sinitcerrors.AlreadyRunningError{Name: "x", PID: 10}, "conflict"},
		{"plain", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sinitcerrors.Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsProcessGone(t *testing.T) {
	if !sinitcerrors.IsProcessGone(fmt.Errorf("signal: %w", &sinitcerrors.ProcessNotFoundError{PID: 42})) {
		t.Error("IsProcessGone should match wrapped ProcessNotFoundError")
	}
	if sinitcerrors.IsProcessGone(errors.New("other")) {
		t.Error("IsProcessGone should not match unrelated errors")
	}
}
