package indicators

import (
	"math"
	"time"

	"Booster/internal/domain/models"
)

// Compute fills amplitude, hma9, hma21 and hma_cross of rows in place.
// Rows must be ascending.
func Compute(rows []models.Row) {
	closes := make([]float64, len(rows))
	for i := range rows {
		closes[i] = rows[i].Close
		rows[i].Amplitude = Amplitude(rows[i].High, rows[i].Low)
	}

	fast := HMA(closes, FastPeriod)
	slow := HMA(closes, SlowPeriod)
	cross := Cross(fast, slow)

	for i := range rows {
		rows[i].HMAFast = defined(fast[i])
		rows[i].HMASlow = defined(slow[i])
		rows[i].HMACross = cross[i]
	}
}

// ComputeAmplitude fills only the amplitude column (daily rows).
func ComputeAmplitude(rows []models.Row) {
	for i := range rows {
		rows[i].Amplitude = Amplitude(rows[i].High, rows[i].Low)
	}
}

// Density sets density_hma_cross on rows where aligned holds: the number of
// nonzero crosses among the window rows before it (the row itself excluded).
// Near the start of the table fewer rows are available and only those are
// counted. Every other row is set to nil.
func Density(rows []models.Row, aligned func(time.Time) bool, window int) {
	// prefix[i] = nonzero crosses in rows[0:i]
	prefix := make([]int, len(rows)+1)
	for i := range rows {
		prefix[i+1] = prefix[i]
		if c := rows[i].HMACross; c != nil && *c != 0 {
			prefix[i+1]++
		}
	}

	for i := range rows {
		if !aligned(rows[i].Time) {
			rows[i].Density = nil
			continue
		}
		from := i - window
		if from < 0 {
			from = 0
		}
		rows[i].Density = models.Int(prefix[i] - prefix[from])
	}
}

// hourKey identifies a local calendar hour.
func hourKey(t time.Time) string {
	return t.Format("2006010215")
}

// HourlyCrossCounts counts the nonzero 3m crosses in each local calendar hour.
func HourlyCrossCounts(rows3m []models.Row) map[string]int {
	counts := make(map[string]int)
	for i := range rows3m {
		if c := rows3m[i].HMACross; c != nil && *c != 0 {
			counts[hourKey(rows3m[i].Time)]++
		}
	}
	return counts
}

// ApplyHourlyDensity overwrites density_hma_cross of every 1h row with the
// 3m cross count of its hour. Hours without 3m crosses get 0.
func ApplyHourlyDensity(rows1h []models.Row, counts map[string]int) {
	for i := range rows1h {
		rows1h[i].Density = models.Int(counts[hourKey(rows1h[i].Time)])
	}
}

// DailyAmpEffAvg averages 1h amplitude per local date (the YYYYMMDD column).
func DailyAmpEffAvg(rows1h []models.Row) map[string]float64 {
	sums := make(map[string]float64)
	ns := make(map[string]int)
	for i := range rows1h {
		d := rows1h[i].LocalDate()
		sums[d] += rows1h[i].Amplitude
		ns[d]++
	}
	out := make(map[string]float64, len(sums))
	for d, s := range sums {
		out[d] = s / float64(ns[d])
	}
	return out
}

// ApplyDailyAmpEffAvg sets amp_eff_avg of each daily row from its own date.
// Dates without hourly rows stay undefined.
func ApplyDailyAmpEffAvg(rows1d []models.Row, avg map[string]float64) {
	for i := range rows1d {
		if v, ok := avg[rows1d[i].LocalDate()]; ok {
			rows1d[i].AmpEffAvg = models.Float(v)
		} else {
			rows1d[i].AmpEffAvg = nil
		}
	}
}

func defined(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return models.Float(v)
}
