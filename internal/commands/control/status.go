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

// Package control implements the per-service lifecycle commands: status,
// start, stop, restart and list.
package control

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/sinitc/internal/commands/shared"
	"github.com/tombee/sinitc/internal/registry"
)

// ServiceStatus is the JSON form of a service's status.
type ServiceStatus struct {
	Name      string `json:"name"`
	PID       int    `json:"pid,omitempty"`
	State     string `json:"state"`
	ProcState string `json:"proc_state,omitempty"`
	Running   bool   `json:"running"`
}

func toServiceStatus(st registry.Status) ServiceStatus {
	return ServiceStatus{
		Name:      st.Name,
		PID:       st.PID,
		State:     string(st.State),
		ProcState: st.ProcState,
		Running:   st.Running(),
	}
}

type statusResponse struct {
	shared.JSONResponse
	Service ServiceStatus `json:"service"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use: "status <service>",
		Annotations: map[string]string{
			"group": "services",
		},
		Short: "Show the state of a service",
		Long: `Show the state of a service's recorded process.

Prints "[sinitc] <service> >>> <State>". State is the OS-reported process
state, "Stopped" when there is no PID record, or "Unknown" when the
recorded process no longer exists.

Exits 0 when the service is running and 1 otherwise.`,
		Example: `  # Check a service
  sinitc status web

  # Use in a script
  sinitc status web >/dev/null && echo up

  # Machine-readable
  sinitc status web --json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: shared.CompleteServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.WithRuntime(cmd, func(ctx context.Context, rt *shared.Runtime) error {
				return runStatus(ctx, rt, cmd.OutOrStdout(), args[0])
			})
		},
	}
}

func runStatus(ctx context.Context, rt *shared.Runtime, out io.Writer, name string) error {
	st, err := rt.Registry.Status(ctx, name)
	if err != nil {
		return err
	}

	if shared.GetJSON() {
		if err := shared.EmitJSON(out, statusResponse{
			JSONResponse: shared.NewJSONResponse("status", true),
			Service:      toServiceStatus(st),
		}); err != nil {
			return err
		}
	} else {
		printStatus(out, st)
	}

	if !st.Running() {
		return shared.NewSilentExit(shared.ExitFailure)
	}
	return nil
}

// printStatus writes the status line for st.
func printStatus(out io.Writer, st registry.Status) {
	io.WriteString(out, shared.RenderStatusLine(st, shared.IsTerminal(out))+"\n")
}
