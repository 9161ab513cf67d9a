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

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

func TestParseEnv(t *testing.T) {
	tests := []struct {
		entry     string
		wantKey   string
		wantValue string
		wantErr   bool
	}{
		{entry: "A=1", wantKey: "A", wantValue: "1"},
		{entry: "A=b=c", wantKey: "A", wantValue: "b=c"},
		{entry: "EMPTY=", wantKey: "EMPTY", wantValue: ""},
		{entry: "NOEQUALS", wantErr: true},
		{entry: "=value", wantErr: true},
		{entry: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			key, value, err := ParseEnv(tt.entry)
			if tt.wantErr {
				var envErr *sinitcerrors.EnvParseError
				require.ErrorAs(t, err, &envErr)
				assert.Equal(t, tt.entry, envErr.Entry)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestCommandSpec_Environ(t *testing.T) {
	spec := CommandSpec{
		Path:        "/bin/true",
		Environment: []string{"MODE=prod", "PATH=/opt/bin", "MODE=dev"},
	}

	env, err := spec.Environ([]string{"HOME=/root", "PATH=/usr/bin"})
	require.NoError(t, err)

	assert.Equal(t, []string{"HOME=/root", "MODE=dev", "PATH=/opt/bin"}, env)
}

func TestCommandSpec_EnvironRejectsMalformed(t *testing.T) {
	spec := CommandSpec{Path: "/bin/true", Environment: []string{"OK=1", "BROKEN"}}

	_, err := spec.Environ(nil)
	var envErr *sinitcerrors.EnvParseError
	require.ErrorAs(t, err, &envErr)
	assert.Equal(t, "BROKEN", envErr.Entry)
}

func TestCommandSpec_Argv(t *testing.T) {
	spec := CommandSpec{Path: "/bin/echo", Options: []string{"hi", "there"}}
	assert.Equal(t, []string{"/bin/echo", "hi", "there"}, spec.Argv())
	assert.Equal(t, []string{"/bin/true"}, CommandSpec{Path: "/bin/true"}.Argv())
}
