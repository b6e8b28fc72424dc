package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	stages   *prometheus.CounterVec
	rows     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates a recorder registered on reg (prometheus.DefaultRegisterer in
// production, a fresh registry in tests).
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booster_provider_requests_total",
				Help: "Market-data API requests by endpoint and HTTP status",
			},
			[]string{"endpoint", "status"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booster_retries_total",
				Help: "Retry waits by policy (transient, rate_limit)",
			},
			[]string{"policy"},
		),
		stages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booster_stage_units_total",
				Help: "Pipeline stage outcomes per instrument",
			},
			[]string{"stage", "outcome"},
		),
		rows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booster_rows_written_total",
				Help: "Rows written by table replaces, by timeframe",
			},
			[]string{"timeframe"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booster_errors_total",
				Help: "Total number of errors encountered by kind",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "booster_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
	}
}

// RecordRequest counts one provider request. status 0 means transport failure.
func (r *Recorder) RecordRequest(endpoint string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.requests.WithLabelValues(endpoint, label).Inc()
}

// RecordRetry counts one retry wait under the named policy.
func (r *Recorder) RecordRetry(policy string) {
	r.retries.WithLabelValues(policy).Inc()
}

// RecordStage counts a per-instrument stage outcome (ok, partial, failed, skipped).
func (r *Recorder) RecordStage(stage, outcome string) {
	r.stages.WithLabelValues(stage, outcome).Inc()
}

// RecordRows adds n written rows for timeframe tf.
func (r *Recorder) RecordRows(tf string, n int) {
	r.rows.WithLabelValues(tf).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordRequest(string, int) {}
func (Nop) RecordRetry(string) {}
func (Nop) RecordStage(string, string) {}
func (Nop) RecordRows(string, int) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
