package enrich

import (
	"testing"
	"time"

	"Booster/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(start time.Time, amps ...float64) []models.Row {
	rows := make([]models.Row, len(amps))
	for i, a := range amps {
		rows[i] = models.Row{
			Candle:    models.Candle{Instrument: "BTCUSDTSWAP", Per: 60, Time: start.Add(time.Duration(i) * time.Hour)},
			Amplitude: a,
		}
	}
	return rows
}

func TestEnrichDeltaAgainstBaseline(t *testing.T) {
	// Monday 2025-03-10 06:00
	start := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	rows := hourly(start, 1.5, 2.0, 0.5)

	hm := models.Heatmap{}
	hm.Set("Пн", "06:00", 1.0)
	hm.Set("Пн", "07:00", 2.5)

	Enrich(rows, hm)

	require.NotNil(t, rows[0].AmpMeanHist)
	assert.Equal(t, 1.0, *rows[0].AmpMeanHist)
	assert.InDelta(t, 0.5, *rows[0].ZScoreDelta, 1e-12)
	assert.InDelta(t, -0.5, *rows[1].ZScoreDelta, 1e-12)
	assert.Nil(t, rows[2].AmpMeanHist, "08:00 is missing from the baseline")
	assert.Nil(t, rows[2].ZScoreDelta)
}

func TestEnrichWithoutHeatmapKeepsTrailingMeans(t *testing.T) {
	rows := hourly(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), 1, 2, 3, 4, 5, 6, 7)
	rows[0].AmpMeanHist = models.Float(9)

	Enrich(rows, nil)

	assert.Nil(t, rows[0].AmpMeanHist, "stale values are cleared")
	assert.Nil(t, rows[1].AmpEffLast3)
	require.NotNil(t, rows[2].AmpEffLast3)
	assert.InDelta(t, 2.0, *rows[2].AmpEffLast3, 1e-12)
	assert.InDelta(t, 6.0, *rows[6].AmpEffLast3, 1e-12)

	assert.Nil(t, rows[4].AmpEffLast6)
	assert.InDelta(t, 3.5, *rows[5].AmpEffLast6, 1e-12)
	assert.InDelta(t, 4.5, *rows[6].AmpEffLast6, 1e-12)
}

func TestTrailingMeanShortInput(t *testing.T) {
	rows := hourly(time.Now(), 1, 2)
	for _, v := range TrailingMean(rows, 3) {
		assert.Nil(t, v)
	}
}
