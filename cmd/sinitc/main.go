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

package main

import (
	"github.com/tombee/sinitc/internal/cli"
	"github.com/tombee/sinitc/internal/commands/control"
	"github.com/tombee/sinitc/internal/commands/initialize"
	"github.com/tombee/sinitc/internal/commands/logs"
	"github.com/tombee/sinitc/internal/commands/management"
	metricscmd "github.com/tombee/sinitc/internal/commands/metrics"
	versioncmd "github.com/tombee/sinitc/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Service commands
	rootCmd.AddCommand(control.NewListCommand())
	rootCmd.AddCommand(control.NewStatusCommand())
	rootCmd.AddCommand(control.NewStartCommand())
	rootCmd.AddCommand(control.NewStopCommand())
	rootCmd.AddCommand(control.NewRestartCommand())

	// Captured output
	rootCmd.AddCommand(logs.NewStdoutCommand())
	rootCmd.AddCommand(logs.NewStderrCommand())

	// Boot
	rootCmd.AddCommand(initialize.NewCommand())

	// Management and observability
	rootCmd.AddCommand(management.NewHistoryCommand())
	rootCmd.AddCommand(metricscmd.NewCommand())

	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
