package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	TableRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "booster",
			Subsystem: "pipeline",
			Name:      "table_rows",
			Help:      "Rows in the last written snapshot table",
		},
		[]string{"timeframe", "instrument"},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "booster",
			Subsystem: "pipeline",
			Name:      "run_seconds",
			Help:      "Duration of pipeline runs by result",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"result"},
	)

	LastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "booster",
			Subsystem: "pipeline",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run by result",
		},
		[]string{"result"},
	)
)

// Register adds the pipeline collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(TableRows, RunDuration, LastRun)
	})
}

// ObserveTable records the size of a replaced table.
func ObserveTable(tf, instrument string, rows int) {
	TableRows.WithLabelValues(tf, instrument).Set(float64(rows))
}

// ObserveRun records a finished run. result is "ok" or "partial".
func ObserveRun(result string, started, finished time.Time) {
	RunDuration.WithLabelValues(result).Observe(finished.Sub(started).Seconds())
	LastRun.WithLabelValues(result).Set(float64(finished.Unix()))
}
