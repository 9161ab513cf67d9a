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

package version

import (
	"bytes"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/sinitc/internal/commands/shared"
)

func runVersionCmd(t *testing.T, jsonOut bool) string {
	t.Helper()
	shared.SetVersion("1.0.0", "test123", "2025-12-22")
	shared.SetJSONForTest(jsonOut)
	t.Cleanup(func() {
		shared.SetVersion("dev", "unknown", "unknown")
		shared.SetJSONForTest(false)
	})

	var buf bytes.Buffer
	cmd := NewVersionCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestVersionCommand_RejectsArgs(t *testing.T) {
	cmd := NewVersionCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.Execute())
}

func TestVersionOutput(t *testing.T) {
	out := runVersionCmd(t, false)

	assert.Contains(t, out, "sinitc version 1.0.0")
	assert.Contains(t, out, "test123")
	assert.Contains(t, out, "2025-12-22")
	assert.Contains(t, out, runtime.Version())
}

func TestVersionJSONOutput(t *testing.T) {
	out := runVersionCmd(t, true)

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info), out)
	assert.Equal(t, VersionInfo{
		Version:   "1.0.0",
		Commit:    "test123",
		BuildDate: "2025-12-22",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}, info)
}
