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

import "errors"

// Classify walks the error chain and returns the first ErrorType found,
// or "" when no error in the chain is classified.
func Classify(err error) string {
	var classified ErrorClassifier
	if errors.As(err, &classified) {
		return classified.ErrorType()
	}
	return ""
}

// IsNotFound reports whether err is a ServiceNotFoundError.
func IsNotFound(err error) bool {
	var nf *ServiceNotFoundError
	return errors.As(err, &nf)
}

// IsProcessGone reports whether err means the target PID no longer exists.
func IsProcessGone(err error) bool {
	var pnf *ProcessNotFoundError
	return errors.As(err, &pnf)
}
