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
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"

	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// Follow calls fn for every line already captured in stream, then for each
// line appended afterwards. It returns when ctx is cancelled or the file is
// removed, which happens when the service is started again.
func (s *LogStore) Follow(ctx context.Context, name string, stream Stream, fn func(line string)) error {
	if _, err := ParseStream(string(stream)); err != nil {
		return err
	}
	path := s.Path(name, stream)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &sinitcerrors.PersistentStateError{Op: "follow logs", Path: path, Cause: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return &sinitcerrors.PersistentStateError{Op: "follow logs", Path: path, Cause: err}
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		f.Close()
		return &sinitcerrors.PersistentStateError{Op: "follow logs", Path: path, Cause: err}
	}

	tail := &lineReader{r: bufio.NewReader(f), fn: fn}
	if err := tail.drain(); err != nil {
		_ = watcher.Close()
		f.Close()
		return &sinitcerrors.PersistentStateError{Op: "follow logs", Path: path, Cause: err}
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		_ = f.Close()
	})

	base := string(stream)
	sctx.Go(func(sctx *stopper.Context) error {
		defer sctx.Stop(0)

		for {
			select {
			case <-sctx.Stopping():
				return nil
			case <-sctx.Done():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(event.Name) != base {
					continue
				}

				switch {
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					if err := tail.drain(); err != nil {
						return err
					}
					tail.flush()
					return nil
				case event.Has(fsnotify.Write):
					if err := tail.drain(); err != nil {
						return err
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil {
					return &sinitcerrors.PersistentStateError{Op: "follow logs", Path: path, Cause: err}
				}
			}
		}
	})

	return sctx.Wait()
}

// lineReader turns an append-only file into complete lines. A trailing
// partial line is held back until its newline arrives.
type lineReader struct {
	r       *bufio.Reader
	fn      func(string)
	partial strings.Builder
}

func (l *lineReader) drain() error {
	for {
		chunk, err := l.r.ReadString('\n')
		l.partial.WriteString(chunk)

		if err == nil {
			line := strings.TrimSuffix(l.partial.String(), "\n")
			l.partial.Reset()
			l.fn(strings.TrimSuffix(line, "\r"))
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}

func (l *lineReader) flush() {
	if l.partial.Len() > 0 {
		l.fn(l.partial.String())
		l.partial.Reset()
	}
}
