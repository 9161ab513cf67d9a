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
Package cli provides the root command and help for the sinitc CLI.

This package creates the main Cobra command and handles global concerns like
version information, persistent flags and error handling. Individual commands
are implemented in the internal/commands subpackages and added in main.

# Command Tree

	sinitc
	├── init <cmd>     Start every service, then exec cmd
	├── list           List declared services
	├── status <svc>   Report whether a service is running
	├── start <svc>    Start a service
	├── stop <svc>     Stop a service
	├── restart <svc>  Stop, then start a service
	├── stdout <svc>   Print captured stdout
	├── stderr <svc>   Print captured stderr
	├── history        Show lifecycle journal events
	├── metrics        Write or print prometheus metrics
	├── version        Show version
	└── help           Show help

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	// ... add commands ...
	if err := rootCmd.Execute(); err != nil {
	    cli.HandleExitError(err)
	}

# Global Flags

	--verbose, -v    Enable verbose output
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to config file

# Exit Codes

  - Exit 0: Success
  - Exit 1: Failure, or the service is not running
  - Exit 2: Configuration could not be loaded
*/
package cli
