// Package metrics records table lock activity in Prometheus form. Metrics
// are written to a textfile at the end of a run; nothing is served over the
// network.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements table.Recorder on a private registry, so separate
// runs (and tests) never share counters.
type Recorder struct {
	reg *prometheus.Registry

	acquisitions *prometheus.CounterVec
	releases     *prometheus.CounterVec
	held         *prometheus.HistogramVec
	operations   *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		reg: reg,
		acquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rwkv_lock_acquisitions_total",
				Help: "Table lock acquisitions, by lock mode",
			},
			[]string{"mode"},
		),
		releases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rwkv_lock_releases_total",
				Help: "Table lock releases, by lock mode",
			},
			[]string{"mode"},
		),
		held: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "rwkv_lock_hold_seconds",
				Help: "Time the table lock was held per operation",
				// critical sections are a list walk plus a few log writes
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"mode"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rwkv_operations_total",
				Help: "Completed table operations, by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
	}
}

func (r *Recorder) LockAcquired(mode string) {
	r.acquisitions.WithLabelValues(mode).Inc()
}

func (r *Recorder) LockReleased(mode string, held time.Duration) {
	r.releases.WithLabelValues(mode).Inc()
	r.held.WithLabelValues(mode).Observe(held.Seconds())
}

func (r *Recorder) Outcome(op, outcome string) {
	r.operations.WithLabelValues(op, outcome).Inc()
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// WriteTextfile writes all metrics to path in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
