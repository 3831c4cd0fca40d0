// Package metrics exposes Prometheus counters for dispatched calls and
// client-side cache lookups. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "jsonrpc"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
)

// Collector is a prometheus.Collector for the dispatcher and the caching client.
type Collector struct {
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "dispatcher",
				Name:      "calls_total",
				Help:      "The number of requests answered by the dispatcher.",
			}, []string{"procedure", "transport", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "dispatcher",
				Name:      "call_duration_seconds",
				Help:      "The time taken to answer a request.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 25},
			}, []string{"procedure"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "The number of cache lookups made by the caching client.",
			}, []string{"outcome"},
		),
	}
}

// CallHandled records one answered request.
func (c *Collector) CallHandled(procedure, transport, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.calls.WithLabelValues(procedure, transport, outcome).Inc()
	c.callDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// CacheLookup records one cache lookup.
func (c *Collector) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	outcome := OutcomeMiss
	if hit {
		outcome = OutcomeHit
	}
	c.cacheLookups.WithLabelValues(outcome).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.calls.Describe(ch)
	c.callDuration.Describe(ch)
	c.cacheLookups.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.calls.Collect(ch)
	c.callDuration.Collect(ch)
	c.cacheLookups.Collect(ch)
}
