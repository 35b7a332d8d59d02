// Package metrics records Prometheus metrics for request calls. A nil
// *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeCancelled = "cancelled"
)

// Collector provides the call counters, durations and in-flight gauge. It is
// safe for concurrent use.
type Collector struct {
	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	callsInFlight *prometheus.GaugeVec
}

// New creates a collector registered on reg. A nil reg uses
// [prometheus.DefaultRegisterer].
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Collector{
		callsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "netreq_calls_total",
				Help: "Total number of request calls by response shape and outcome",
			},
			[]string{"shape", "method", "outcome"},
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netreq_call_duration_seconds",
				Help:    "Duration of request calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"shape", "method"},
		),
		callsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netreq_calls_in_flight",
				Help: "Number of request calls currently in flight",
			},
			[]string{"shape"},
		),
	}
}

// Start marks a call as in flight and returns the func that ends it.
func (c *Collector) Start(shape string) func() {
	if c == nil {
		return func() {}
	}

	g := c.callsInFlight.WithLabelValues(shape)
	g.Inc()
	return g.Dec
}

// Record counts one finished call. outcome is [OutcomeSuccess],
// [OutcomeCancelled] or a failure kind name.
func (c *Collector) Record(shape, method, outcome string, since time.Duration) {
	if c == nil {
		return
	}

	c.callsTotal.WithLabelValues(shape, method, outcome).Inc()
	c.callDuration.WithLabelValues(shape, method).Observe(since.Seconds())
}
