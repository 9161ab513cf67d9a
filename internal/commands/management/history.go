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

// Package management implements commands that inspect sinitc's own
// records rather than the services themselves.
package management

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/sinitc/internal/commands/shared"
	"github.com/tombee/sinitc/internal/lifecycle"
)

type historyOptions struct {
	service string
	limit   int
	failed  bool
}

type historyResponse struct {
	shared.JSONResponse
	Events []lifecycle.LifecycleEvent `json:"events"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var opts historyOptions

	cmd := &cobra.Command{
		Use: "history [service]",
		Annotations: map[string]string{
			"group": "management",
		},
		Short: "Show recorded start and stop events",
		Long: `Show the lifecycle journal: every start, stop, refused start and stale
PID record sinitc has seen, oldest first.

The journal lives at <log_root>/lifecycle.jsonl and is only written when
journal is enabled in the configuration (the default).`,
		Example: `  # Everything
  sinitc history

  # The last 10 events for one service
  sinitc history web --limit 10

  # Failures only
  sinitc history --failed

  # Events from one boot, by correlation ID
  sinitc history --json | jq '.events[] | select(.correlation_id=="...")'`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: shared.CompleteServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.service = args[0]
			}
			return shared.WithRuntime(cmd, func(ctx context.Context, rt *shared.Runtime) error {
				return runHistory(ctx, rt, cmd.OutOrStdout(), opts)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Show only the most recent N events (0 for all)")
	cmd.Flags().BoolVar(&opts.failed, "failed", false, "Show only failed operations")

	return cmd
}

func runHistory(ctx context.Context, rt *shared.Runtime, out io.Writer, opts historyOptions) error {
	if opts.service != "" {
		if _, err := rt.Registry.Find(opts.service); err != nil {
			return err
		}
	}

	path := rt.Config.JournalPath()
	events, err := lifecycle.ReadJournal(path)
	if err != nil {
		return shared.NewFailureError(fmt.Sprintf("failed to read %s", path), err)
	}
	events = filterEvents(events, opts)

	if shared.GetJSON() {
		if events == nil {
			events = []lifecycle.LifecycleEvent{}
		}
		return shared.EmitJSON(out, historyResponse{
			JSONResponse: shared.NewJSONResponse("history", true),
			Events:       events,
		})
	}

	if len(events) == 0 {
		fmt.Fprintln(out, "No lifecycle events recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSERVICE\tEVENT\tPID\tDETAIL")
	for _, e := range events {
		pid := "-"
		if e.PID != 0 {
			pid = fmt.Sprint(e.PID)
		}
		detail := e.Message
		if e.Error != "" {
			detail = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Service, e.Event, pid, detail)
	}
	return tw.Flush()
}

// filterEvents applies the service, failure and limit filters in that order.
func filterEvents(events []lifecycle.LifecycleEvent, opts historyOptions) []lifecycle.LifecycleEvent {
	var kept []lifecycle.LifecycleEvent
	for _, e := range events {
		if opts.service != "" && e.Service != opts.service {
			continue
		}
		if opts.failed && e.Success {
			continue
		}
		kept = append(kept, e)
	}

	if opts.limit > 0 && len(kept) > opts.limit {
		kept = kept[len(kept)-opts.limit:]
	}
	return kept
}
