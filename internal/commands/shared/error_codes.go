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

package shared

import (
	"errors"

	pkgerrors "github.com/tombee/sinitc/pkg/errors"
)

// Error codes for structured JSON output
const (
	// Configuration errors (E200-E299)
	ErrorCodeInvalidConfig = "E202" // Invalid configuration or declaration

	// Execution errors (E100-E199)
	ErrorCodeSpawnFailed    = "E103" // Process could not be spawned
	ErrorCodeAlreadyRunning = "E105" // Service already running

	// Resource errors (E400-E499)
	ErrorCodeNotFound        = "E401" // Service or process not found
	ErrorCodeInternal        = "E402" // Internal error
	ErrorCodeExecutionFailed = "E403" // Execution failed
	ErrorCodeStateFailed     = "E404" // PID or log state unreadable or unwritable
)

// ErrorCode maps err onto a JSON error code via its classification.
func ErrorCode(err error) string {
	switch pkgerrors.Classify(err) {
	case "not_found":
		return ErrorCodeNotFound
	case "config":
		return ErrorCodeInvalidConfig
	case "spawn":
		return ErrorCodeSpawnFailed
	case "state":
		return ErrorCodeStateFailed
	case "conflict":
		return ErrorCodeAlreadyRunning
	}
	return ErrorCodeExecutionFailed
}

// NewJSONError converts err into its JSON form.
func NewJSONError(err error) JSONError {
	je := JSONError{
		Code:    ErrorCode(err),
		Message: err.Error(),
	}

	var cfgErr *pkgerrors.ConfigParseError
	if errors.As(err, &cfgErr) && cfgErr.Path != "" {
		je.Location = &JSONLocation{Path: cfgErr.Path, Line: cfgErr.Line}
	}

	var userErr pkgerrors.UserVisibleError
	if errors.As(err, &userErr) && userErr.IsUserVisible() {
		je.Suggestion = userErr.Suggestion()
	}
	return je
}
