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

// UserVisibleError is an error the CLI can follow with a hint for the
// operator.
type UserVisibleError interface {
	error

	IsUserVisible() bool

	// Suggestion is a next step for the operator, or "".
	Suggestion() string
}

// ErrorClassifier is implemented by errors that carry a category. The CLI
// maps categories onto exit codes and JSON error codes.
type ErrorClassifier interface {
	error

	// ErrorType is one of "not_found", "config", "spawn", "state" and
	// "conflict".
	ErrorType() string
}
