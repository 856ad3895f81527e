// Copyright 2024 Redpanda Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slack_flow_bridge"

// Prometheus holds the metrics of the process in its own registry.
type Prometheus struct {
	reg *prometheus.Registry

	flowInvocations *prometheus.CounterVec
	flowLatency     *prometheus.SummaryVec
}

// NewPrometheus creates a registry with the flow metrics and the standard Go
// and process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		reg: prometheus.NewRegistry(),
		flowInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_invocations_total",
			Help:      "Flow invocations by outcome.",
		}, []string{"outcome"}),
		flowLatency: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "flow_invocation_latency_ns",
			Help:       "Time taken to consume a flow response stream, in nanoseconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"outcome"}),
	}
	p.reg.MustRegister(
		p.flowInvocations,
		p.flowLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// FlowInvoked records a finished flow invocation.
func (p *Prometheus) FlowInvoked(outcome string, took time.Duration) {
	p.flowInvocations.WithLabelValues(outcome).Inc()
	p.flowLatency.WithLabelValues(outcome).Observe(float64(took.Nanoseconds()))
}

// HandlerFunc returns an http handler that serves the registry in the
// Prometheus exposition format.
func (p *Prometheus) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	}
}
