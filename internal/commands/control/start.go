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

package control

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/sinitc/internal/commands/shared"
	pkgerrors "github.com/tombee/sinitc/pkg/errors"
)

// NewStartCommand creates the start command.
func NewStartCommand() *cobra.Command {
	return &cobra.Command{
		Use: "start <service>",
		Annotations: map[string]string{
			"group": "services",
		},
		Short: "Start a service",
		Long: `Start a service in the background, then print "[sinitc] <service> >>> Start"
followed by its status line.

Output captured from the previous run is discarded. The new process runs in
its own session and is not waited for.

Starting a service whose recorded process is still alive leaves it alone
and prints a warning.`,
		Example: `  # Start a service
  sinitc start web

  # Start and get the PID
  sinitc start web --json | jq -r '.service.pid'`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: shared.CompleteServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.WithRuntime(cmd, func(ctx context.Context, rt *shared.Runtime) error {
				return runStart(ctx, rt, cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0])
			})
		},
	}
}

func runStart(ctx context.Context, rt *shared.Runtime, out, errOut io.Writer, name string) error {
	_, err := rt.Registry.Start(ctx, name)

	var running *pkgerrors.AlreadyRunningError
	switch {
	case errors.As(err, &running):
		if !shared.GetQuiet() {
			fmt.Fprintln(errOut, shared.RenderWarn(fmt.Sprintf("%s is already running (pid %d)", name, running.PID)))
		}
	case err != nil:
		if pkgerrors.IsNotFound(err) {
			return err
		}
		return shared.NewFailureError(fmt.Sprintf("failed to start %s", name), err)
	}

	if !shared.GetJSON() && !shared.GetQuiet() {
		fmt.Fprintln(out, shared.RenderActionLine(name, "Start", shared.IsTerminal(out)))
	}
	return reportStatus(ctx, rt, out, "start", name)
}

// reportStatus prints the current status of name after a lifecycle command.
func reportStatus(ctx context.Context, rt *shared.Runtime, out io.Writer, command, name string) error {
	st, err := rt.Registry.Status(ctx, name)
	if err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(out, statusResponse{
			JSONResponse: shared.NewJSONResponse(command, true),
			Service:      toServiceStatus(st),
		})
	}
	if !shared.GetQuiet() {
		printStatus(out, st)
	}
	return nil
}
