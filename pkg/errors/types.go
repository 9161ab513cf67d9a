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

package errors

import (
	"fmt"
)

// ServiceNotFoundError is returned by every registry operation when the
// requested name is not a declared service.
type ServiceNotFoundError struct {
	// Name is the service name that was requested
	Name string
}

// Error implements the error interface.
func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service not found: %s", e.Name)
}

// ErrorType implements ErrorClassifier.
func (e *ServiceNotFoundError) ErrorType() string { return "not_found" }

// IsUserVisible implements UserVisibleError.
func (e *ServiceNotFoundError) IsUserVisible() bool { return true }

// Suggestion implements UserVisibleError.
func (e *ServiceNotFoundError) Suggestion() string {
	return "Run 'sinitc list' to see the declared services"
}

// ConfigParseError represents an unreadable or malformed declaration or
// supervisor configuration file.
type ConfigParseError struct {
	// Path is the file that failed to load (empty for registry-level problems)
	Path string

	// Line is the 1-based line of the problem when the parser reports one
	Line int

	// Reason explains what is wrong
	Reason string

	// Cause is the underlying error (read error, decode error, EnvParseError)
	Cause error
}

// Error implements the error interface.
func (e *ConfigParseError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}

	msg := "config error"
	if loc != "" {
		msg = fmt.Sprintf("config error in %s", loc)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigParseError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigParseError) ErrorType() string { return "config" }

// EnvParseError is returned when an environment override lacks the '='
// separating key from value.
type EnvParseError struct {
	// Entry is the offending override string
	Entry string

	// Reason explains what is wrong with the entry
	Reason string
}

// Error implements the error interface.
func (e *EnvParseError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "expected KEY=VALUE"
	}
	return fmt.Sprintf("invalid environment entry %q: %s", e.Entry, reason)
}

// ErrorType implements ErrorClassifier.
func (e *EnvParseError) ErrorType() string { return "config" }

// ProcessSpawnError is returned when the OS refuses to create a child.
type ProcessSpawnError struct {
	// Service is the service being started
	Service string

	// Path is the executable that was requested
	Path string

	// Cause is the error reported by the OS
	Cause error
}

// Error implements the error interface.
func (e *ProcessSpawnError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("spawn %s (%s): %v", e.Service, e.Path, e.Cause)
	}
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ProcessSpawnError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ProcessSpawnError) ErrorType() string { return "spawn" }

// ProcessNotFoundError is returned when a PID is absent from the process
// table. Callers treat it as "already stopped".
type ProcessNotFoundError struct {
	PID int
}

// Error implements the error interface.
func (e *ProcessNotFoundError) Error() string {
	return fmt.Sprintf("process %d not found", e.PID)
}

// ErrorType implements ErrorClassifier.
func (e *ProcessNotFoundError) ErrorType() string { return "not_found" }

// PersistentStateError wraps a failure reading or writing PID or log state.
type PersistentStateError struct {
	// Op is the operation that failed (e.g. "write pid", "recreate logs")
	Op string

	// Path is the file or directory involved
	Path string

	// Cause is the underlying filesystem error
	Cause error
}

// Error implements the error interface.
func (e *PersistentStateError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *PersistentStateError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *PersistentStateError) ErrorType() string { return "state" }

// AlreadyRunningError is returned by start when the recorded PID still
// belongs to a live instance of the service.
type AlreadyRunningError struct {
	Name string
	PID  int
}

// Error implements the error interface.
func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("service %s already running (pid %d)", e.Name, e.PID)
}

// ErrorType implements ErrorClassifier.
func (e *AlreadyRunningError) ErrorType() string { return "conflict" }
