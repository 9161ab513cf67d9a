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
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Journal event names.
const (
	EventStart          = "start"
	EventStartFailure   = "start_failure"
	EventStop           = "stop"
	EventStopFailure    = "stop_failure"
	EventStalePID       = "stale_pid_detected"
	EventAlreadyRunning = "already_running"
)

// LifecycleEvent represents one start/stop event for a service.
type LifecycleEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Event         string    `json:"event"`
	Service       string    `json:"service"`
	PID           int       `json:"pid,omitempty"`
	Success       bool      `json:"success"`
	Message       string    `json:"message,omitempty"`
	Error         string    `json:"error,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Journal appends lifecycle events to a JSON-lines file.
type Journal struct {
	path          string
	correlationID string
	now           func() time.Time
}

// NewJournal creates a journal writing to path.
func NewJournal(path string) *Journal {
	return &Journal{
		path: path,
		now:  time.Now,
	}
}

// WithCorrelationID stamps every subsequent event with id.
func (j *Journal) WithCorrelationID(id string) *Journal {
	j.correlationID = id
	return j
}

// Path returns the journal file.
func (j *Journal) Path() string {
	return j.path
}

// LogStart logs a successful service start.
func (j *Journal) LogStart(name string, pid int) error {
	return j.writeEvent(LifecycleEvent{
		Event:   EventStart,
		Service: name,
		PID:     pid,
		Success: true,
		Message: "Service started",
	})
}

// LogStartFailure logs a failed service start.
func (j *Journal) LogStartFailure(name string, err error) error {
	return j.writeEvent(LifecycleEvent{
		Event:   EventStartFailure,
		Service: name,
		Success: false,
		Message: "Service failed to start",
		Error:   err.Error(),
	})
}

// LogStop logs a stop. err is the signal delivery error, if any.
func (j *Journal) LogStop(name string, pid int, err error) error {
	event := LifecycleEvent{
		Event:   EventStop,
		Service: name,
		PID:     pid,
		Success: true,
		Message: "SIGTERM sent",
	}
	if err != nil {
		event.Event = EventStopFailure
		event.Success = false
		event.Message = "Failed to signal service"
		event.Error = err.Error()
	}
	return j.writeEvent(event)
}

// LogStalePID logs a record whose process no longer exists.
func (j *Journal) LogStalePID(name string, pid int, reason string) error {
	return j.writeEvent(LifecycleEvent{
		Event:   EventStalePID,
		Service: name,
		PID:     pid,
		Success: true,
		Message: fmt.Sprintf("Stale PID record: %s", reason),
	})
}

// LogAlreadyRunning logs a refused start.
func (j *Journal) LogAlreadyRunning(name string, pid int) error {
	return j.writeEvent(LifecycleEvent{
		Event:   EventAlreadyRunning,
		Service: name,
		PID:     pid,
		Success: true,
		Message: "Service already running",
	})
}

// writeEvent appends a lifecycle event to the journal file.
func (j *Journal) writeEvent(event LifecycleEvent) error {
	event.Timestamp = j.now()
	event.CorrelationID = j.correlationID

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lifecycle journal: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// One write per event keeps concurrent appenders from interleaving.
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// ReadJournal returns every event in the journal at path, oldest first.
// A missing journal is empty.
func ReadJournal(path string) ([]LifecycleEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []LifecycleEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var event LifecycleEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return events, fmt.Errorf("malformed journal line: %w", err)
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}
