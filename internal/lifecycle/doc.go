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

/*
Package lifecycle owns every piece of per-service state that lives outside
the supervisor: PID records, captured output, advisory locks, the lifecycle
journal, and the OS process primitives used to spawn, signal and inspect
children.

# PID Records

A PID record is a small text file at <run_root>/<name>/service.pid. The
first line is the decimal PID; the optional second line is the process
creation time in milliseconds, used to detect a recycled PID:

	store := lifecycle.NewPIDStore("/var/run/sinitc")
	if err := store.Write("web", lifecycle.PIDRecord{PID: 1234}); err != nil {
	    // Handle error
	}

	rec, ok, err := store.Read("web")

Writes are atomic (write to a temp file, then rename), so a concurrent reader
sees either the old record or the new one.

# Captured Output

Each start recreates <log_root>/<name>/ with fresh stdout and stderr files
that the child writes to directly:

	logs := lifecycle.NewLogStore("/var/log/sinitc")
	stdout, stderr, err := logs.Recreate("web")
	defer stdout.Close()
	defer stderr.Close()

	lines, err := logs.ReadLines("web", lifecycle.Stdout)

Follow streams appended lines until the context is cancelled or the file is
removed by the next start.

# Processes

Controller spawns children in their own session, delivers signals, and
reports the OS view of a PID:

	ctrl := lifecycle.NewController()
	pid, err := ctrl.Spawn(def.Exec, stdout, stderr)

	info, err := ctrl.Query(ctx, pid)
	if errors.As(err, new(*sinitcerrors.ProcessNotFoundError)) {
	    // Stale record
	}

# Locking

Locker takes a per-service flock so concurrent start/stop invocations for
the same service serialize:

	lock, err := lifecycle.NewLocker("/var/run/sinitc").Acquire(ctx, "web")
	defer lock.Release()

# Journal

Start and stop events are appended as JSON lines for audit purposes:

	journal := lifecycle.NewJournal("/var/log/sinitc/lifecycle.jsonl")
	journal.LogStart("web", pid)
*/
package lifecycle
