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

// Package metrics implements the metrics command, which samples every
// service and exports the result in the Prometheus text format.
package metrics

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/sinitc/internal/commands/shared"
	"github.com/tombee/sinitc/internal/log"
)

type metricsOptions struct {
	textfile string
	print    bool
}

// NewCommand creates the metrics command.
func NewCommand() *cobra.Command {
	var opts metricsOptions

	cmd := &cobra.Command{
		Use: "metrics",
		Annotations: map[string]string{
			"group": "observability",
		},
		Short: "Export service state as Prometheus metrics",
		Long: `Query every declared service and write sinitc_service_up,
sinitc_service_pid and sinitc_services_declared in the Prometheus text
format.

By default the exposition is written atomically to the configured textfile
(metrics.textfile, default <run_root>/sinitc.prom) for node_exporter's
textfile collector. Run it from cron or a timer to keep the file fresh.`,
		Example: `  # Refresh the textfile
  sinitc metrics

  # Write somewhere else
  sinitc metrics --textfile /var/lib/node_exporter/sinitc.prom

  # Print instead of writing
  sinitc metrics --print`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.WithRuntime(cmd, func(ctx context.Context, rt *shared.Runtime) error {
				return runMetrics(ctx, rt, cmd.OutOrStdout(), opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.textfile, "textfile", "", "Write to this file instead of the configured one")
	cmd.Flags().BoolVar(&opts.print, "print", false, "Print the exposition to stdout instead of writing a file")

	return cmd
}

func runMetrics(ctx context.Context, rt *shared.Runtime, out io.Writer, opts metricsOptions) error {
	for _, def := range rt.Registry.Services() {
		if _, err := rt.Registry.Status(ctx, def.Name); err != nil {
			rt.Logger.Warn("failed to sample service", log.ServiceKey, def.Name, log.Error(err))
		}
	}

	if opts.print {
		return rt.Metrics.WriteText(out)
	}

	path := opts.textfile
	if path == "" {
		path = rt.Config.Metrics.Textfile
	}
	if err := rt.Metrics.WriteTextfile(path); err != nil {
		return shared.NewFailureError(fmt.Sprintf("failed to write %s", path), err)
	}

	if !shared.GetQuiet() && !shared.GetJSON() {
		fmt.Fprintln(out, shared.RenderOK("wrote "+path))
	}
	return nil
}
