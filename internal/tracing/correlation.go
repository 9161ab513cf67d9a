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

package tracing

import (
	"context"
	"os"

	"github.com/google/uuid"
)

// EnvCorrelationID carries a correlation ID into child sinitc processes.
const EnvCorrelationID = "SINITC_CORRELATION_ID"

// CorrelationID ties together the log lines, journal events and spans of one
// invocation and of every sinitc process it spawns. It is a UUID string.
type CorrelationID string

type correlationKey struct{}

// NewCorrelationID returns a random correlation ID.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.NewString())
}

func (c CorrelationID) String() string {
	return string(c)
}

// IsValid reports whether c parses as a hyphenated UUID.
func (c CorrelationID) IsValid() bool {
	if len(c) != 36 {
		return false
	}
	_, err := uuid.Parse(string(c))
	return err == nil
}

// FromEnv returns the correlation ID inherited from a parent process, or a
// new one when none (or an invalid one) was passed down.
func FromEnv() CorrelationID {
	if id := CorrelationID(os.Getenv(EnvCorrelationID)); id.IsValid() {
		return id
	}
	return NewCorrelationID()
}

// Environ returns an environment entry that passes c to a child process.
func (c CorrelationID) Environ() string {
	return EnvCorrelationID + "=" + string(c)
}

// ToContext returns a copy of ctx carrying id.
func ToContext(ctx context.Context, id CorrelationID) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// FromContext returns the correlation ID carried by ctx, or "" if none.
func FromContext(ctx context.Context) CorrelationID {
	id, _ := ctx.Value(correlationKey{}).(CorrelationID)
	return id
}
