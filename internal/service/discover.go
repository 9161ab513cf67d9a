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

package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	sinitcerrors "github.com/tombee/sinitc/pkg/errors"
)

// DefaultPattern matches one declaration per service directory.
const DefaultPattern = "*/service.toml"

type discoverOptions struct {
	pattern     string
	skipInvalid bool
}

// DiscoverOption configures Discover.
type DiscoverOption func(*discoverOptions)

// WithPattern overrides the doublestar glob used to find declarations.
func WithPattern(pattern string) DiscoverOption {
	return func(o *discoverOptions) {
		if pattern != "" {
			o.pattern = pattern
		}
	}
}

// WithSkipInvalid switches from fail-fast loading to skip-and-report:
// valid definitions are returned together with an error describing every
// skipped file.
func WithSkipInvalid(skip bool) DiscoverOption {
	return func(o *discoverOptions) {
		o.skipInvalid = skip
	}
}

// Discover loads every declaration under root in lexical path order.
//
// By default any unreadable or malformed file, or a duplicate name, fails
// the whole load and no definitions are returned. A missing root is an
// empty set of services.
func Discover(root string, opts ...DiscoverOption) ([]Definition, error) {
	o := discoverOptions{pattern: DefaultPattern}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &sinitcerrors.ConfigParseError{Path: root, Reason: "cannot read config root", Cause: err}
	}

	matches, err := doublestar.Glob(os.DirFS(root), o.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &sinitcerrors.ConfigParseError{Path: root, Reason: fmt.Sprintf("bad pattern %q", o.pattern), Cause: err}
	}
	slices.Sort(matches)

	var (
		defs    []Definition
		skipped []error
		seen    = make(map[string]string)
	)
	for _, rel := range matches {
		path := filepath.Join(root, filepath.FromSlash(rel))

		def, err := LoadFile(path)
		if err == nil {
			if prev, dup := seen[def.Name]; dup {
				err = &sinitcerrors.ConfigParseError{
					Path:   path,
					Reason: fmt.Sprintf("duplicate service name %q (also declared in %s)", def.Name, prev),
				}
			}
		}
		if err != nil {
			if !o.skipInvalid {
				return nil, err
			}
			skipped = append(skipped, err)
			continue
		}

		seen[def.Name] = path
		defs = append(defs, def)
	}

	return defs, errors.Join(skipped...)
}

// LoadFile reads and validates a single declaration.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, &sinitcerrors.ConfigParseError{Path: path, Reason: "cannot read declaration", Cause: err}
	}

	def, err := Parse(data)
	if err != nil {
		var cpe *sinitcerrors.ConfigParseError
		if errors.As(err, &cpe) {
			cpe.Path = path
			return Definition{}, cpe
		}
		return Definition{}, &sinitcerrors.ConfigParseError{Path: path, Cause: err}
	}
	def.Source = path
	return def, nil
}

// Parse decodes and validates a declaration document.
func Parse(data []byte) (Definition, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		perr := &sinitcerrors.ConfigParseError{Reason: "malformed TOML", Cause: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, _ = derr.Position()
		}
		return Definition{}, perr
	}
	if doc.Service == nil {
		return Definition{}, &sinitcerrors.ConfigParseError{Reason: "missing [service] table"}
	}

	def := *doc.Service
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Validate checks the fields every operation relies on.
func (d Definition) Validate() error {
	switch {
	case d.Name == "":
		return &sinitcerrors.ConfigParseError{Reason: "service.name is required"}
	case d.Name == "." || d.Name == ".." || strings.ContainsRune(d.Name, '/'):
		return &sinitcerrors.ConfigParseError{Reason: fmt.Sprintf("service.name %q must be a single path element", d.Name)}
	case d.Exec.Path == "":
		return &sinitcerrors.ConfigParseError{Reason: "service.exec.path is required"}
	}

	if err := d.Exec.validateEnv(); err != nil {
		return &sinitcerrors.ConfigParseError{Reason: "service.exec.environment", Cause: err}
	}
	if d.Reload != nil {
		if err := d.Reload.validateEnv(); err != nil {
			return &sinitcerrors.ConfigParseError{Reason: "service.reload.environment", Cause: err}
		}
	}
	return nil
}
