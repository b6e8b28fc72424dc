package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordRequest("history-candles", 200)
	r.RecordRequest("history-candles", 200)
	r.RecordRequest("history-candles", 0)
	r.RecordRetry("rate_limit")
	r.RecordStage("download", "ok")
	r.RecordRows("3m", 3360)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("history-candles", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("history-candles", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retries.WithLabelValues("rate_limit")))
	assert.Equal(t, 3360.0, testutil.ToFloat64(r.rows.WithLabelValues("3m")))
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
