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

package initialize

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/sinitc/internal/tracing"
)

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()

	if cmd.Name() != "init" {
		t.Errorf("expected name 'init', got %q", cmd.Name())
	}
	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("expected init without a command to be rejected")
	}

	// Flags after the command belong to it.
	if err := cmd.ParseFlags([]string{"/sbin/agetty", "--noclear", "tty1"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if got := cmd.Flags().Args(); len(got) != 3 || got[1] != "--noclear" {
		t.Errorf("args = %v", got)
	}
}

func TestChildEnviron(t *testing.T) {
	id := tracing.CorrelationID("0b6f3a52-3c1e-4b8e-9d55-2f8a4f3c9e01")
	base := []string{"PATH=/usr/bin"}

	t.Run("default config", func(t *testing.T) {
		env, err := childEnviron(base, id, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"PATH=/usr/bin", "SINITC_CORRELATION_ID=" + string(id)}, env)
	})

	t.Run("explicit config is made absolute", func(t *testing.T) {
		t.Chdir(t.TempDir())
		want, err := filepath.Abs("cfg.yaml")
		require.NoError(t, err)

		env, err := childEnviron(base, id, "cfg.yaml")
		require.NoError(t, err)
		assert.Contains(t, env, "SINITC_CONFIG="+want)
		assert.Contains(t, env, "SINITC_CORRELATION_ID="+string(id))
		assert.Len(t, base, 1, "base environment must not be modified")
	})
}
