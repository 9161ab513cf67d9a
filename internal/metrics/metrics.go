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

// Package metrics records supervisor activity as Prometheus metrics.
//
// sinitc has no long-running server to scrape, so metrics are written in
// the node_exporter textfile format for a collector to pick up.
package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Operation result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder holds the metrics of one invocation in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	// operations tracks registry operations by name and result
	operations *prometheus.CounterVec

	// duration tracks how long registry operations take
	duration *prometheus.HistogramVec

	// serviceUp is 1 when the service's recorded process is alive
	serviceUp *prometheus.GaugeVec

	// servicePID is the recorded PID, or 0 when there is none
	servicePID *prometheus.GaugeVec

	// declared is the number of services in the registry
	declared prometheus.Gauge
}

// New creates a recorder with a private registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sinitc_operations_total",
				Help: "Total registry operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sinitc_operation_duration_seconds",
				Help:    "Registry operation latency by operation",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"operation"},
		),
		serviceUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sinitc_service_up",
				Help: "Whether the service's recorded process is alive (1) or not (0)",
			},
			[]string{"service"},
		),
		servicePID: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sinitc_service_pid",
				Help: "Recorded PID of the service, 0 when none",
			},
			[]string{"service"},
		),
		declared: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sinitc_services_declared",
				Help: "Number of declared services",
			},
		),
	}
}

// RecordOperation counts one registry operation.
func (r *Recorder) RecordOperation(operation, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, result).Inc()
	r.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordService sets the liveness gauges for one service.
func (r *Recorder) RecordService(name string, up bool, pid int) {
	if r == nil {
		return
	}
	value := 0.0
	if up {
		value = 1
	}
	r.serviceUp.WithLabelValues(name).Set(value)
	r.servicePID.WithLabelValues(name).Set(float64(pid))
}

// RecordDeclared sets the number of declared services.
func (r *Recorder) RecordDeclared(n int) {
	if r == nil {
		return
	}
	r.declared.Set(float64(n))
}

// Gatherer exposes the recorder's registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes every metric to path in the text
// exposition format, creating the parent directory if needed.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create textfile directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

// WriteText writes every metric to w in the text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
