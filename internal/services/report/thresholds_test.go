package report

import (
	"testing"

	"Booster/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsWith(vals ...float64) []models.Row {
	rows := []models.Row{{}, {}} // warm-up rows without amp_eff_last3
	for _, v := range vals {
		rows = append(rows, models.Row{AmpEffLast3: models.Float(v)})
	}
	return rows
}

func TestQuantileLinear(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, Quantile(s, 0.25), 1e-12)
	assert.InDelta(t, 2.5, Quantile(s, 0.5), 1e-12)
	assert.InDelta(t, 3.25, Quantile(s, 0.75), 1e-12)
	assert.InDelta(t, 3.7, Quantile(s, 0.9), 1e-12)
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.9))
}

func TestThresholdSkipsLeadingValues(t *testing.T) {
	// the first three defined values (100, 100, 100) are dropped
	th, ok := Threshold("BTCUSDTSWAP", rowsWith(100, 100, 100, 4, 1, 3, 2))
	require.True(t, ok)
	assert.Equal(t, "BTC", th.Ticker)
	assert.Equal(t, 4, th.Count)
	assert.Equal(t, 1.75, th.Q1)
	assert.Equal(t, 2.5, th.Median)
	assert.Equal(t, 3.25, th.Q3)
	assert.Equal(t, 3.7, th.Q90)
}

func TestThresholdRoundsToTwoDecimals(t *testing.T) {
	th, ok := Threshold("XUSDTSWAP", rowsWith(0, 0, 0, 1.0/3, 2.0/3))
	require.True(t, ok)
	assert.Equal(t, 0.5, th.Median)
	assert.Equal(t, 0.42, th.Q1)
}

func TestThresholdNotEnoughData(t *testing.T) {
	_, ok := Threshold("BTCUSDTSWAP", rowsWith(1, 2, 3))
	assert.False(t, ok)
}

func TestOrderPinsThenMedian(t *testing.T) {
	in := []models.Threshold{
		{Ticker: "SOL", Median: 0.9},
		{Ticker: "ETH", Median: 0.7},
		{Ticker: "PEPE", Median: 0.3},
		{Ticker: "BTC", Median: 0.5},
		{Ticker: "WIF", Median: 0.6},
	}
	got := Order(in)

	names := make([]string, len(got))
	for i, g := range got {
		names[i] = g.Ticker
	}
	assert.Equal(t, []string{"BTC", "ETH", "PEPE", "WIF", "SOL"}, names)
}
