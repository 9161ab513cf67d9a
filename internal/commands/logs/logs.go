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

// Package logs implements the stdout and stderr commands, which print the
// output captured from a service's most recent run.
package logs

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tombee/sinitc/internal/commands/shared"
	"github.com/tombee/sinitc/internal/lifecycle"
)

type logsResponse struct {
	shared.JSONResponse
	Service string   `json:"service"`
	Stream  string   `json:"stream"`
	Lines   []string `json:"lines"`
	Running bool     `json:"running"`
}

// NewStdoutCommand creates the stdout command.
func NewStdoutCommand() *cobra.Command {
	return newStreamCommand(lifecycle.Stdout)
}

// NewStderrCommand creates the stderr command.
func NewStderrCommand() *cobra.Command {
	return newStreamCommand(lifecycle.Stderr)
}

func newStreamCommand(stream lifecycle.Stream) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use: fmt.Sprintf("%s <service>", stream),
		Annotations: map[string]string{
			"group": "logs",
		},
		Short: fmt.Sprintf("Print a service's captured %s", stream),
		Long: fmt.Sprintf(`Print what a service wrote to %[1]s during its most recent run.

The log is kept after the service exits and replaced when it is started
again. Nothing is printed when the log is empty.

Exits 0 when the service is running and 1 otherwise, so the command doubles
as a liveness check. With --follow, lines are printed as they are written
until interrupted or until the service is started again.`, stream),
		Example: fmt.Sprintf(`  # Print the log
  sinitc %[1]s web

  # Watch new output
  sinitc %[1]s web --follow`, stream),
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: shared.CompleteServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.WithRuntime(cmd, func(ctx context.Context, rt *shared.Runtime) error {
				if follow {
					ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
					defer stop()
					return runFollow(ctx, rt, cmd.OutOrStdout(), args[0], stream)
				}
				return runPrint(ctx, rt, cmd.OutOrStdout(), args[0], stream)
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")

	return cmd
}

func runPrint(ctx context.Context, rt *shared.Runtime, out io.Writer, name string, stream lifecycle.Stream) error {
	lines, err := rt.Registry.ReadLogs(ctx, name, string(stream))
	if err != nil {
		return err
	}

	st, err := rt.Registry.Status(ctx, name)
	if err != nil {
		return err
	}

	if shared.GetJSON() {
		if err := shared.EmitJSON(out, logsResponse{
			JSONResponse: shared.NewJSONResponse(string(stream), true),
			Service:      name,
			Stream:       string(stream),
			Lines:        lines,
			Running:      st.Running(),
		}); err != nil {
			return err
		}
	} else {
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
	}

	if !st.Running() {
		return shared.NewSilentExit(shared.ExitFailure)
	}
	return nil
}

func runFollow(ctx context.Context, rt *shared.Runtime, out io.Writer, name string, stream lifecycle.Stream) error {
	err := rt.Registry.FollowLogs(ctx, name, string(stream), func(line string) {
		fmt.Fprintln(out, line)
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
