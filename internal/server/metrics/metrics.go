// Package metrics provides observability for the serving path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the partition server handler.
// A nil *Metrics is valid and records nothing, so unit tests can run
// handlers without touching the default registry.
type Metrics struct {
	// Latency of single-key gets, recorded unconditionally on return.
	GetLatency prometheus.Histogram

	// Latency of bulk gets.
	GetBulkLatency prometheus.Histogram

	// Response outcomes by operation and kind.
	Outcomes *prometheus.CounterVec

	// Lookups currently submitted and not yet answered.
	InFlight prometheus.Gauge

	// Partitions bound to readers at assembly.
	PartitionsLoaded prometheus.Counter

	// Partitions skipped at assembly for lack of a current version.
	PartitionsSkipped prometheus.Counter
}

// New creates and registers all serving metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		GetLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ringkv_get_duration_seconds",
			Help:    "Duration of single-key get requests",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		GetBulkLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ringkv_get_bulk_duration_seconds",
			Help:    "Duration of bulk get requests",
			Buckets: []float64{0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ringkv_responses_total",
			Help: "Responses by operation and outcome kind",
		}, []string{"op", "kind"}),
		InFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ringkv_gets_in_flight",
			Help: "Lookups submitted to the executor and not yet answered",
		}),
		PartitionsLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ringkv_partitions_loaded_total",
			Help: "Partitions bound to readers at assembly",
		}),
		PartitionsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ringkv_partitions_skipped_total",
			Help: "Partitions skipped at assembly because no current version was set",
		}),
	}
}

// ObserveGet records a single-key get duration.
func (m *Metrics) ObserveGet(d time.Duration) {
	if m != nil {
		m.GetLatency.Observe(d.Seconds())
	}
}

// ObserveGetBulk records a bulk get duration.
func (m *Metrics) ObserveGetBulk(d time.Duration) {
	if m != nil {
		m.GetBulkLatency.Observe(d.Seconds())
	}
}

// IncrementOutcome counts one response by operation and kind.
func (m *Metrics) IncrementOutcome(op, kind string) {
	if m != nil {
		m.Outcomes.WithLabelValues(op, kind).Inc()
	}
}

// AddInFlight adjusts the in-flight gauge.
func (m *Metrics) AddInFlight(delta float64) {
	if m != nil {
		m.InFlight.Add(delta)
	}
}

// IncrementPartitionsLoaded counts a partition bound at assembly.
func (m *Metrics) IncrementPartitionsLoaded() {
	if m != nil {
		m.PartitionsLoaded.Inc()
	}
}

// IncrementPartitionsSkipped counts a partition skipped at assembly.
func (m *Metrics) IncrementPartitionsSkipped() {
	if m != nil {
		m.PartitionsSkipped.Inc()
	}
}
