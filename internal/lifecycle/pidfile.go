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
	"strconv"
	"strings"

	"github.com/google/renameio/v2"

	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// PIDFileName is the record file inside each service's run directory.
const PIDFileName = "service.pid"

var (
	// ErrInvalidPID is returned when the PID file contains invalid data.
	ErrInvalidPID = errors.New("invalid PID in file")

	// ErrUnsafeDirectory is returned when the PID file parent is world-writable.
	ErrUnsafeDirectory = errors.New("PID file directory is world-writable")
)

// PIDRecord is the persisted claim that a service was started as PID.
// Presence does not imply the process is still alive.
type PIDRecord struct {
	PID int

	// StartTime is the process creation time in milliseconds since the
	// epoch, or 0 when unknown.
	StartTime int64
}

// PIDStore reads and writes PID records under a run root.
type PIDStore struct {
	root string
}

// NewPIDStore creates a store rooted at root (normally /var/run/sinitc).
func NewPIDStore(root string) *PIDStore {
	return &PIDStore{root: root}
}

// Root returns the run root.
func (s *PIDStore) Root() string {
	return s.root
}

// Path returns the record file for a service.
func (s *PIDStore) Path(name string) string {
	return filepath.Join(s.root, name, PIDFileName)
}

// Read returns the record for name. ok is false when no record exists.
func (s *PIDStore) Read(name string) (rec PIDRecord, ok bool, err error) {
	path := s.Path(name)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return PIDRecord{}, false, nil
		}
		return PIDRecord{}, false, &sinitcerrors.PersistentStateError{Op: "read pid", Path: path, Cause: err}
	}

	rec, err = parsePIDRecord(string(data))
	if err != nil {
		return PIDRecord{}, false, &sinitcerrors.PersistentStateError{Op: "read pid", Path: path, Cause: err}
	}
	return rec, true, nil
}

// Write stores rec for name, replacing any previous record atomically.
func (s *PIDStore) Write(name string, rec PIDRecord) error {
	path := s.Path(name)
	dir := filepath.Dir(path)

	if err := verifyDirectorySafety(s.root); err != nil {
		return &sinitcerrors.PersistentStateError{Op: "write pid", Path: path, Cause: err}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &sinitcerrors.PersistentStateError{Op: "write pid", Path: path, Cause: err}
	}

	if err := renameio.WriteFile(path, []byte(formatPIDRecord(rec)), 0644); err != nil {
		return &sinitcerrors.PersistentStateError{Op: "write pid", Path: path, Cause: err}
	}
	return nil
}

// Remove deletes the record for name. A missing record is not an error.
func (s *PIDStore) Remove(name string) error {
	path := s.Path(name)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &sinitcerrors.PersistentStateError{Op: "remove pid", Path: path, Cause: err}
	}
	// Best effort; the directory may hold nothing else.
	_ = os.Remove(filepath.Dir(path))
	return nil
}

func formatPIDRecord(rec PIDRecord) string {
	if rec.StartTime > 0 {
		return fmt.Sprintf("%d\n%d\n", rec.PID, rec.StartTime)
	}
	return fmt.Sprintf("%d\n", rec.PID)
}

// parsePIDRecord accepts the bare-PID format as well as PID plus start time.
func parsePIDRecord(data string) (PIDRecord, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")

	pidStr := strings.TrimSpace(lines[0])
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return PIDRecord{}, fmt.Errorf("%w: %q", ErrInvalidPID, pidStr)
	}
	if pid <= 0 {
		return PIDRecord{}, fmt.Errorf("%w: PID must be positive, got %d", ErrInvalidPID, pid)
	}

	rec := PIDRecord{PID: pid}
	if len(lines) > 1 {
		// An unreadable start time only disables the liveness check.
		if st, err := strconv.ParseInt(strings.TrimSpace(lines[1]), 10, 64); err == nil && st > 0 {
			rec.StartTime = st
		}
	}
	return rec, nil
}

// verifyDirectorySafety checks that the directory is not world-writable.
// A world-writable run root would let anyone plant a record pointing stop
// at an arbitrary PID.
func verifyDirectorySafety(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	mode := info.Mode()
	if mode&0002 != 0 && mode&os.ModeSticky == 0 {
		return fmt.Errorf("%w: %s has mode %04o", ErrUnsafeDirectory, dir, mode&os.ModePerm)
	}
	return nil
}
