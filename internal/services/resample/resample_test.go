package resample

import (
	"testing"
	"time"

	"Booster/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var msk = time.FixedZone("MSK", 3*3600)

func synthetic3m(start time.Time, n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i%17) - float64(i%5)
		out[i] = models.Candle{
			Instrument: "BTCUSDTSWAP",
			Per:        3,
			Time:       start.Add(time.Duration(i) * 3 * time.Minute),
			Open:       base,
			High:       base + 1 + float64(i%3),
			Low:        base - 1 - float64(i%4),
			Close:      base + 0.5,
			Volume:     float64(10 + i),
		}
	}
	return out
}

func TestResampleHourlyMatchesManualAggregation(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, msk)
	src := synthetic3m(start, 1000)

	got := Resample(src, time.Hour, 0)
	require.Len(t, got, 50)

	for h, bar := range got {
		rows := src[h*20 : (h+1)*20]
		assert.True(t, bar.Time.Equal(start.Add(time.Duration(h)*time.Hour)))
		assert.Equal(t, 60, bar.Per)
		assert.Equal(t, rows[0].Open, bar.Open)
		assert.Equal(t, rows[19].Close, bar.Close)

		hi, lo, vol := rows[0].High, rows[0].Low, 0.0
		for _, r := range rows {
			if r.High > hi {
				hi = r.High
			}
			if r.Low < lo {
				lo = r.Low
			}
			vol += r.Volume
		}
		assert.Equal(t, hi, bar.High)
		assert.Equal(t, lo, bar.Low)
		assert.InDelta(t, vol, bar.Volume, 1e-9)
	}
}

func TestResampleSkipsEmptyBuckets(t *testing.T) {
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, msk)
	src := append(synthetic3m(start, 20), synthetic3m(start.Add(3*time.Hour), 20)...)

	got := Resample(src, time.Hour, 0)
	require.Len(t, got, 2)
	assert.Equal(t, 10, got[0].Time.Hour())
	assert.Equal(t, 13, got[1].Time.Hour())
}

func TestResampleDailyAnchor(t *testing.T) {
	at := func(d, h, m int) models.Candle {
		return models.Candle{Instrument: "X", Per: 3, Time: time.Date(2025, 3, d, h, m, 0, 0, msk), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1}
	}
	src := []models.Candle{at(11, 2, 59), at(11, 3, 0), at(12, 2, 57)}

	got := Resample(src, 24*time.Hour, 3*time.Hour)
	require.Len(t, got, 2)

	// 02:59 on the 11th belongs to the bucket that opened on the 10th at 03:00
	assert.Equal(t, "20250310", got[0].LocalDate())
	assert.Equal(t, "030000", got[0].LocalTime())
	assert.Equal(t, 1.0, got[0].Volume)

	// 03:00 on the 11th opens the 11th's bucket, which also holds 02:57 on the 12th
	assert.Equal(t, "20250311", got[1].LocalDate())
	assert.Equal(t, 2.0, got[1].Volume)
	assert.Equal(t, 1440, got[1].Per)
}

func TestResampleSortsInputAndKeepsLocation(t *testing.T) {
	start := time.Date(2025, 3, 10, 5, 0, 0, 0, msk)
	src := synthetic3m(start, 40)
	src[0], src[39] = src[39], src[0]

	got := Resample(src, time.Hour, 0)
	require.Len(t, got, 2)
	assert.Equal(t, msk, got[0].Time.Location())
	assert.True(t, got[0].Time.Before(got[1].Time))
	assert.Equal(t, 100.0, got[0].Open)
}

func TestResampleEmpty(t *testing.T) {
	assert.Nil(t, Resample(nil, time.Hour, 0))
}
