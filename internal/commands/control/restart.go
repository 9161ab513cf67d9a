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

// NewRestartCommand creates the restart command.
func NewRestartCommand() *cobra.Command {
	return &cobra.Command{
		Use: "restart <service>",
		Annotations: map[string]string{
			"group": "services",
		},
		Short: "Stop then start a service",
		Long: `Stop a service and start it again.

The stop half sends SIGTERM without waiting, exactly like 'sinitc stop'. A
failed stop does not prevent the start.`,
		Example: `  # Restart a service
  sinitc restart web`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: shared.CompleteServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.WithRuntime(cmd, func(ctx context.Context, rt *shared.Runtime) error {
				return runRestart(ctx, rt, cmd.OutOrStdout(), args[0])
			})
		},
	}
}

func runRestart(ctx context.Context, rt *shared.Runtime, out io.Writer, name string) error {
	if _, err := rt.Registry.Restart(ctx, name); err != nil {
		if pkgerrors.IsNotFound(err) {
			return err
		}
		return shared.NewFailureError(fmt.Sprintf("failed to restart %s", name), err)
	}
	return reportStatus(ctx, rt, out, "restart", name)
}
