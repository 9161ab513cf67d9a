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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/sinitc/internal/commands/shared"
	pkgerrors "github.com/tombee/sinitc/pkg/errors"
)

// NewStopCommand creates the stop command.
func NewStopCommand() *cobra.Command {
	return &cobra.Command{
		Use: "stop <service>",
		Annotations: map[string]string{
			"group": "services",
		},
		Short: "Stop a service",
		Long: `Send SIGTERM to a service and forget its PID.

stop does not wait for the process to exit and never escalates to SIGKILL.
The printed status is what the OS reported right after the signal, so a
slow-exiting service may still show as running.

Stopping a service that is not running succeeds.`,
		Example: `  # Stop a service
  sinitc stop web`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: shared.CompleteServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.WithRuntime(cmd, func(ctx context.Context, rt *shared.Runtime) error {
				return runStop(ctx, rt, cmd.OutOrStdout(), args[0])
			})
		},
	}
}

func runStop(ctx context.Context, rt *shared.Runtime, out io.Writer, name string) error {
	st, err := rt.Registry.Stop(ctx, name)
	if pkgerrors.IsNotFound(err) {
		return err
	}

	if shared.GetJSON() {
		if emitErr := shared.EmitJSON(out, statusResponse{
			JSONResponse: shared.NewJSONResponse("stop", err == nil),
			Service:      toServiceStatus(st),
		}); emitErr != nil {
			return emitErr
		}
	} else if !shared.GetQuiet() {
		printStatus(out, st)
	}

	if err != nil {
		return shared.NewFailureError(fmt.Sprintf("failed to stop %s", name), err)
	}
	return nil
}
