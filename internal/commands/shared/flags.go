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

package shared

// globalFlags are bound to the root command's persistent flags.
type globalFlags struct {
	verbose bool
	quiet   bool
	json    bool
	config  string
}

// buildInfo is injected by main from ldflags.
type buildInfo struct {
	version   string
	commit    string
	buildDate string
}

var (
	flags globalFlags
	build = buildInfo{version: "dev", commit: "unknown", buildDate: "unknown"}
)

// RegisterFlagPointers returns the verbose, quiet, json and config flag
// targets for the root command to bind.
func RegisterFlagPointers() (*bool, *bool, *bool, *string) {
	return &flags.verbose, &flags.quiet, &flags.json, &flags.config
}

// SetVersion records build information from main.
func SetVersion(v, c, b string) {
	build = buildInfo{version: v, commit: c, buildDate: b}
}

// GetVersion returns the version, commit and build date.
func GetVersion() (string, string, string) {
	return build.version, build.commit, build.buildDate
}

func GetVerbose() bool { return flags.verbose }

func GetQuiet() bool { return flags.quiet }

// GetJSON reports whether --json was given.
func GetJSON() bool { return flags.json }

// GetConfigPath returns --config, or "" to fall back to SINITC_CONFIG and
// the default path.
func GetConfigPath() string { return flags.config }

// SetConfigPathForTest overrides --config.
func SetConfigPathForTest(path string) { flags.config = path }

// SetJSONForTest overrides --json.
func SetJSONForTest(v bool) { flags.json = v }
