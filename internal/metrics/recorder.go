// Package metrics records batch runner activity as Prometheus metrics. Each
// Recorder owns its registry so a CLI run can dump exactly its own numbers to
// a node_exporter textfile.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/salarysys/payrun/internal/batch"
)

const namespace = "payrun"

// Outcome label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Run status label values.
const (
	RunCompleted  = "completed"
	RunIncomplete = "incomplete"
	RunCancelled  = "cancelled"
)

// Recorder collects batch metrics.
type Recorder struct {
	registry      *prometheus.Registry
	items         *prometheus.CounterVec
	batches       *prometheus.CounterVec
	runs          *prometheus.CounterVec
	batchDuration prometheus.Histogram
	batchSize     prometheus.Gauge
}

// Option configures a Recorder.
type Option func(*options)

type options struct {
	buckets []float64
}

// WithDurationBuckets overrides the batch duration histogram buckets.
func WithDurationBuckets(buckets []float64) Option {
	return func(o *options) {
		o.buckets = buckets
	}
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder(opts ...Option) *Recorder {
	o := options{buckets: prometheus.ExponentialBuckets(0.01, 2, 10)}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Items processed by the batch runner, by outcome.",
		}, []string{"outcome"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches processed by the batch runner, by outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Batch runs finished, by status.",
		}, []string{"report", "status"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time spent processing one batch.",
			Buckets:   o.buckets,
		}),
		batchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Batch size the runner will use next.",
		}),
	}

	r.registry.MustRegister(r.items, r.batches, r.runs, r.batchDuration, r.batchSize)
	return r
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one finished batch.
func (r *Recorder) Observe(s batch.Stats) {
	r.items.WithLabelValues(OutcomeSucceeded).Add(float64(s.Succeeded))
	r.items.WithLabelValues(OutcomeFailed).Add(float64(s.Failed))

	outcome := OutcomeSucceeded
	if s.Failed > 0 {
		outcome = OutcomeFailed
	}
	r.batches.WithLabelValues(outcome).Inc()
	r.batchDuration.Observe(s.Elapsed.Seconds())
	r.batchSize.Set(float64(s.NextBatchSize))
}

// ObserveRun records the end of a run for the named report.
func (r *Recorder) ObserveRun(report, status string) {
	r.runs.WithLabelValues(report, status).Inc()
}

// WriteTextfile writes every metric in the registry to path in the
// Prometheus text format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
