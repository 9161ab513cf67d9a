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

package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// Stream names one of the two captured outputs.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// ParseStream validates a stream name.
func ParseStream(s string) (Stream, error) {
	switch Stream(s) {
	case Stdout, Stderr:
		return Stream(s), nil
	}
	return "", fmt.Errorf("unknown log stream %q (want stdout or stderr)", s)
}

// LogStore manages captured output under a log root.
type LogStore struct {
	root string
}

// NewLogStore creates a store rooted at root (normally /var/log/sinitc).
func NewLogStore(root string) *LogStore {
	return &LogStore{root: root}
}

// Dir returns the capture directory for a service.
func (s *LogStore) Dir(name string) string {
	return filepath.Join(s.root, name)
}

// Path returns the capture file for one stream of a service.
func (s *LogStore) Path(name string, stream Stream) string {
	return filepath.Join(s.root, name, string(stream))
}

// Recreate deletes any previous capture directory for name and returns
// freshly created stdout and stderr files. The caller owns both files.
func (s *LogStore) Recreate(name string) (stdout, stderr *os.File, err error) {
	dir := s.Dir(name)

	if err := os.RemoveAll(dir); err != nil {
		return nil, nil, &sinitcerrors.PersistentStateError{Op: "remove logs", Path: dir, Cause: err}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, &sinitcerrors.PersistentStateError{Op: "create logs", Path: dir, Cause: err}
	}

	stdout, err = os.OpenFile(s.Path(name, Stdout), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, &sinitcerrors.PersistentStateError{Op: "create logs", Path: s.Path(name, Stdout), Cause: err}
	}
	stderr, err = os.OpenFile(s.Path(name, Stderr), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		stdout.Close()
		return nil, nil, &sinitcerrors.PersistentStateError{Op: "create logs", Path: s.Path(name, Stderr), Cause: err}
	}
	return stdout, stderr, nil
}

// ReadLines returns the captured lines of one stream. A file that was
// never written is an empty slice, not an error.
func (s *LogStore) ReadLines(name string, stream Stream) ([]string, error) {
	if _, err := ParseStream(string(stream)); err != nil {
		return nil, err
	}

	path := s.Path(name, stream)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, &sinitcerrors.PersistentStateError{Op: "read logs", Path: path, Cause: err}
	}
	return splitLines(string(data)), nil
}

func splitLines(data string) []string {
	lines := []string{}
	for line := range strings.Lines(data) {
		line = strings.TrimSuffix(line, "\n")
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}
	return lines
}
