package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTableAndRun(t *testing.T) {
	Register()
	Register()

	ObserveTable("1h", "BTCUSDTSWAP", 1120)
	assert.Equal(t, 1120.0, testutil.ToFloat64(TableRows.WithLabelValues("1h", "BTCUSDTSWAP")))

	start := time.Unix(1_700_000_000, 0)
	ObserveRun("ok", start, start.Add(42*time.Second))
	assert.Equal(t, float64(start.Add(42*time.Second).Unix()), testutil.ToFloat64(LastRun.WithLabelValues("ok")))
}
