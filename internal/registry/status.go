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

package registry

import (
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// State classifies what a service's PID record says about it.
type State string

const (
	// StateStopped means there is no PID record.
	StateStopped State = "stopped"

	// StateStale means a PID record exists but its process is gone (or the
	// PID now belongs to a different process).
	StateStale State = "stale"

	StateRunning     State = "running"
	StateSleeping    State = "sleeping"
	StateZombie      State = "zombie"
	StateStoppedByOS State = "suspended"
	StateIdle        State = "idle"
	StateOther       State = "other"
)

// Status is the observed state of one service.
type Status struct {
	Name string

	// PID is the recorded PID, 0 when there is no record.
	PID int

	State State

	// ProcState is the OS-reported process state, verbatim. Empty unless
	// the recorded process is alive.
	ProcState string
}

// Running reports whether the recorded process is alive and not a zombie.
func (s Status) Running() bool {
	switch s.State {
	case StateRunning, StateSleeping, StateStoppedByOS, StateIdle, StateOther:
		return true
	}
	return false
}

// Label is the human form of the state printed by the CLI.
func (s Status) Label() string {
	switch s.State {
	case StateStopped:
		return "Stopped"
	case StateStale:
		return "Unknown"
	case StateOther:
		if s.ProcState != "" {
			return capitalize(s.ProcState)
		}
		return "Unknown"
	}
	return capitalize(string(s.State))
}

// classify maps an OS process state onto State.
func classify(procState string) State {
	switch procState {
	case process.Running:
		return StateRunning
	case process.Sleep, process.Wait, process.Lock:
		return StateSleeping
	case process.Zombie:
		return StateZombie
	case process.Stop:
		return StateStoppedByOS
	case process.Idle:
		return StateIdle
	}
	return StateOther
}

func capitalize(s string) string {
	// Casers keep state between calls, so each call gets its own.
	return cases.Title(language.Und).String(s)
}
