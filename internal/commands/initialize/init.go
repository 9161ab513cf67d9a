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

// Package initialize implements the init command, which starts every
// declared service and then replaces itself with the real init program.
package initialize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tombee/sinitc/internal/boot"
	"github.com/tombee/sinitc/internal/commands/shared"
	"github.com/tombee/sinitc/internal/config"
	"github.com/tombee/sinitc/internal/lifecycle"
	"github.com/tombee/sinitc/internal/log"
	"github.com/tombee/sinitc/internal/service"
	"github.com/tombee/sinitc/internal/tracing"
)

// NewCommand creates the init command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "init <command> [args...]",
		Annotations: map[string]string{
			"group": "boot",
		},
		Short: "Start all services, then exec the given command",
		Long: `Start every declared service and replace this process with <command>.

Each service is started by a separate "sinitc start <name>" process, in
declaration order, without waiting for one before the next. The "after"
field is not enforced. After a short settle delay sinitc execs <command>
(resolved through PATH), which keeps sinitc's PID.

Intended to run as PID 1 from the kernel command line or a container
entrypoint. If the configuration cannot be loaded no services are started
but the hand-off still happens.`,
		Example: `  # Container entrypoint
  sinitc init /bin/sh

  # Boot into a getty
  sinitc init /sbin/agetty --noclear tty1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), args)
		},
	}

	// Everything after <command> belongs to it.
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func runInit(ctx context.Context, argv []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	seq := newSequencer(ctx)
	err := seq.Run(ctx, argv)
	return shared.NewFailureError("init failed", err)
}

// newSequencer builds the sequencer from the runtime. A broken
// configuration yields a sequencer with no services so PID 1 still hands
// off.
func newSequencer(ctx context.Context) *boot.Sequencer {
	var (
		services []service.Definition
		settle   = boot.DefaultSettleDelay
		logger   = log.New(log.FromEnv())
		id       = tracing.FromEnv()
	)

	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, shared.RenderError(fmt.Sprintf("starting no services: %v", err)))
	} else {
		services = rt.Registry.Services()
		settle = rt.Config.Init.SettleDelay
		logger = rt.Logger
		id = rt.CorrelationID
		// The exec below never returns, so flush now.
		if err := rt.Close(ctx); err != nil {
			logger.Warn("failed to flush traces", log.Error(err))
		}
	}

	childEnv, err := childEnviron(os.Environ(), id, shared.GetConfigPath())
	if err != nil {
		logger.Warn("children will use the default config", log.Error(err))
	}
	return boot.NewSequencer(services,
		boot.WithTrigger(boot.SelfTrigger(lifecycle.NewSpawner().WithEnv(childEnv), "")),
		boot.WithSettleDelay(settle),
		boot.WithLogger(log.WithComponent(logger, "init")),
	)
}

// childEnviron is the environment for "sinitc start" children. They are
// separate processes, so an explicit --config is passed on as
// SINITC_CONFIG.
func childEnviron(base []string, id tracing.CorrelationID, configPath string) ([]string, error) {
	env := append(slices.Clone(base), id.Environ())
	if configPath == "" {
		return env, nil
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return env, fmt.Errorf("resolve config path %q: %w", configPath, err)
	}
	return append(env, config.EnvConfigPath+"="+abs), nil
}
