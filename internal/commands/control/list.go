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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tombee/sinitc/internal/commands/shared"
	"github.com/tombee/sinitc/internal/log"
)

type listEntry struct {
	ServiceStatus
	After  []string `json:"after,omitempty"`
	Exec   string   `json:"exec"`
	Source string   `json:"source,omitempty"`

	label string
}

type listResponse struct {
	shared.JSONResponse
	Services []listEntry `json:"services"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use: "list",
		Annotations: map[string]string{
			"group": "services",
		},
		Aliases: []string{"ls"},
		Short:   "List declared services and their state",
		Long: `List every declared service in load order with its current state, PID
and command line.`,
		Example: `  # Show all services
  sinitc list

  # Names of running services
  sinitc list --json | jq -r '.services[] | select(.running) | .name'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.WithRuntime(cmd, func(ctx context.Context, rt *shared.Runtime) error {
				return runList(ctx, rt, cmd.OutOrStdout())
			})
		},
	}
}

func runList(ctx context.Context, rt *shared.Runtime, out io.Writer) error {
	var entries []listEntry
	for _, def := range rt.Registry.Services() {
		st, err := rt.Registry.Status(ctx, def.Name)
		if err != nil {
			rt.Logger.Warn("failed to read service status", log.ServiceKey, def.Name, log.Error(err))
		}
		entries = append(entries, listEntry{
			ServiceStatus: toServiceStatus(st),
			After:         def.After,
			Exec:          strings.Join(def.Exec.Argv(), " "),
			Source:        def.Source,
			label:         st.Label(),
		})
	}

	if shared.GetJSON() {
		if entries == nil {
			entries = []listEntry{}
		}
		return shared.EmitJSON(out, listResponse{
			JSONResponse: shared.NewJSONResponse("list", true),
			Services:     entries,
		})
	}

	if len(entries) == 0 {
		fmt.Fprintf(out, "No services declared under %s\n", rt.Config.Paths.ConfigRoot)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tPID\tCOMMAND")
	for _, e := range entries {
		pid := "-"
		if e.PID != 0 {
			pid = fmt.Sprint(e.PID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.label, pid, e.Exec)
	}
	return tw.Flush()
}
