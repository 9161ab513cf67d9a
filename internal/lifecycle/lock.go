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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// lockPollInterval is how often a blocked Acquire retries the flock.
const lockPollInterval = 10 * time.Millisecond

// Locker hands out per-service advisory locks at <root>/<name>.lock.
type Locker struct {
	root string
}

// NewLocker creates a locker rooted at root (normally the run root).
func NewLocker(root string) *Locker {
	return &Locker{root: root}
}

// Path returns the lock file for a service.
func (l *Locker) Path(name string) string {
	return filepath.Join(l.root, name+".lock")
}

// Lock is a held advisory lock.
type Lock struct {
	f *os.File
}

// Acquire blocks until the exclusive lock for name is held or ctx is done.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	path := l.Path(name)

	if err := os.MkdirAll(l.root, 0755); err != nil {
		return nil, &sinitcerrors.PersistentStateError{Op: "create lock", Path: path, Cause: err}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, &sinitcerrors.PersistentStateError{Op: "open lock", Path: path, Cause: err}
	}

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, &sinitcerrors.PersistentStateError{Op: "lock", Path: path, Cause: err}
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// Release drops the lock. The lock file itself is left in place so the
// next holder locks the same inode.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
