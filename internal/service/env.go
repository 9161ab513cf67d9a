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
	"strings"

	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// ParseEnv splits an override on its first '='. "KEY=" yields an empty
// value; an entry with no '=' or an empty key is an EnvParseError.
func ParseEnv(entry string) (key, value string, err error) {
	key, value, ok := strings.Cut(entry, "=")
	if !ok {
		return "", "", &sinitcerrors.EnvParseError{Entry: entry, Reason: "missing '='"}
	}
	if key == "" {
		return "", "", &sinitcerrors.EnvParseError{Entry: entry, Reason: "empty key"}
	}
	return key, value, nil
}

// Environ returns base with every override in spec applied. Later entries
// win over earlier ones and over base.
func (c CommandSpec) Environ(base []string) ([]string, error) {
	if len(c.Environment) == 0 {
		return base, nil
	}

	overrides := make(map[string]string, len(c.Environment))
	order := make([]string, 0, len(c.Environment))
	for _, entry := range c.Environment {
		key, value, err := ParseEnv(entry)
		if err != nil {
			return nil, err
		}
		if _, seen := overrides[key]; !seen {
			order = append(order, key)
		}
		overrides[key] = value
	}

	env := make([]string, 0, len(base)+len(order))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := overrides[key]; overridden {
			continue
		}
		env = append(env, kv)
	}
	for _, key := range order {
		env = append(env, key+"="+overrides[key])
	}
	return env, nil
}

// validateEnv checks every override without building an environment.
func (c CommandSpec) validateEnv() error {
	for _, entry := range c.Environment {
		if _, _, err := ParseEnv(entry); err != nil {
			return err
		}
	}
	return nil
}
