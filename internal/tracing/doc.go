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

/*
Package tracing provides OpenTelemetry spans and correlation IDs for sinitc.

Every CLI invocation gets a correlation ID. It is attached to diagnostic
logs and journal events, and handed to the start processes init spawns
through the SINITC_CORRELATION_ID environment variable so one boot can be
followed across processes.

Spans are exported only when configured, either pretty-printed to a writer
or over OTLP (gRPC or HTTP) to a collector:

	provider, err := tracing.NewProvider(ctx, tracing.Config{
	    Exporter: "stdout",
	    Writer:   os.Stderr,
	})
	defer provider.Shutdown(ctx)

	tracer := provider.Tracer("github.com/tombee/sinitc/internal/registry")
*/
package tracing
