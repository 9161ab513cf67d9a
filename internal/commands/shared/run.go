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

package shared

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/sinitc/internal/log"
)

// WithRuntime builds a Runtime for cmd, runs fn and flushes the runtime
// afterwards.
func WithRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
			rt.Logger.Warn("failed to flush traces", log.Error(err))
		}
	}()

	return fn(rt.Context(ctx), rt)
}

// CompleteServices completes declared service names for the per-service
// commands.
func CompleteServices(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	rt, err := NewRuntime(context.Background(), WithLogOutput(io.Discard))
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var names []string
	for _, def := range rt.Registry.Services() {
		if strings.HasPrefix(def.Name, toComplete) {
			names = append(names, def.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
