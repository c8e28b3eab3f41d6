// Package metrics exposes Prometheus counters for the execution core,
// following the teacher's pattern of registering metrics against a
// dedicated registry and serving them via promhttp rather than the global
// default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the pipeline records.
type Collector struct {
	registry   *prometheus.Registry
	callsTotal *prometheus.CounterVec
}

// NewCollector returns a Collector backed by its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	callsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "toolcore_tool_calls_total",
		Help: "Total tool calls processed by the pipeline, by tool name and outcome.",
	}, []string{"tool", "outcome"})
	reg.MustRegister(callsTotal)
	return &Collector{registry: reg, callsTotal: callsTotal}
}

// RecordCall increments the call counter for toolName, labeled success or
// failure.
func (c *Collector) RecordCall(toolName string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.callsTotal.WithLabelValues(toolName, outcome).Inc()
}

// Handler returns an http.Handler serving this collector's metrics in the
// Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
