package repository

import (
	"testing"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"

	"github.com/stretchr/testify/require"
)

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return loc
}

// sampleRows builds n hourly rows; every third row has undefined indicators.
func sampleRows(loc *time.Location, tf domrepo.Timeframe, n int) []models.Row {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	rows := make([]models.Row, n)
	for i := range rows {
		c := float64(100 + i)
		rows[i] = models.Row{
			Candle: models.Candle{
				Instrument: "BTCUSDTSWAP",
				Per:        tf.Per(),
				Time:       start.Add(time.Duration(i) * tf.Duration()),
				Open:       c,
				High:       c + 1.5,
				Low:        c - 0.25,
				Close:      c + 0.5,
				Volume:     1234.5678,
			},
			Amplitude: 1.75,
		}
		if i%3 == 0 {
			continue
		}
		if tf.HasIndicators() {
			rows[i].HMAFast = models.Float(c + 0.1)
			rows[i].HMASlow = models.Float(c - 0.1)
			rows[i].HMACross = models.Int(i%2*2 - 1)
			rows[i].Density = models.Int(i)
			rows[i].AmpMeanHist = models.Float(1.5)
			rows[i].ZScoreDelta = models.Float(0.25)
			rows[i].AmpEffLast3 = models.Float(1.7)
			rows[i].AmpEffLast6 = models.Float(1.65)
		} else {
			rows[i].AmpEffAvg = models.Float(2.125)
		}
	}
	return rows
}

func requireSameRows(t *testing.T, want, got []models.Row) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		require.True(t, w.Time.Equal(g.Time), "row %d time %s != %s", i, w.Time, g.Time)
		require.Equal(t, w.LocalDate(), g.LocalDate(), "row %d date", i)
		require.Equal(t, w.LocalTime(), g.LocalTime(), "row %d time", i)
		w.Time, g.Time = time.Time{}, time.Time{}
		require.Equal(t, w, g, "row %d", i)
	}
}
