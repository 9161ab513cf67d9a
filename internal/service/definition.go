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

// Package service loads service declarations from disk.
//
// A declaration is a TOML file with a single [service] table:
//
//	[service]
//	name = "web"
//	after = ["db"]
//
//	[service.exec]
//	path = "/usr/bin/web"
//	options = ["--port", "8080"]
//	environment = ["MODE=prod"]
//
// Definitions are immutable once loaded.
package service

// Definition describes one supervised service.
type Definition struct {
	// Name is the unique key the registry is indexed by.
	Name string `toml:"name"`

	// After lists services this one should start after. It is carried for
	// display only; nothing enforces the order.
	After []string `toml:"after"`

	// Exec is the command that runs the service.
	Exec CommandSpec `toml:"exec"`

	// Reload is reserved for a future reload operation.
	Reload *CommandSpec `toml:"reload"`

	// Source is the file the definition was loaded from.
	Source string `toml:"-"`
}

// CommandSpec is a program, its arguments and its environment overrides.
type CommandSpec struct {
	Path        string   `toml:"path"`
	Options     []string `toml:"options"`
	Environment []string `toml:"environment"`
}

// Argv returns Path followed by Options.
func (c CommandSpec) Argv() []string {
	argv := make([]string, 0, len(c.Options)+1)
	argv = append(argv, c.Path)
	return append(argv, c.Options...)
}

// document is the on-disk shape: everything lives under [service].
type document struct {
	Service *Definition `toml:"service"`
}
