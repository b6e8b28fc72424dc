// Package enrich joins hourly rows with the historical weekday/hour amplitude
// baseline and adds short trailing amplitude means.
package enrich

import (
	"Booster/internal/domain/models"
)

// Trailing windows of the amp_eff_lastN columns.
var TrailingWindows = []int{3, 6}

// Enrich recomputes amp_mean_hist, zscore_delta, amp_eff_last3 and
// amp_eff_last6 of rows in place. Rows must be ascending.
//
// zscore_delta is the raw difference amplitude - amp_mean_hist; it is not
// divided by a standard deviation. With a nil heatmap, or a weekday/hour
// absent from it, both baseline columns are undefined.
func Enrich(rows []models.Row, hm models.Heatmap) {
	for i := range rows {
		rows[i].AmpMeanHist = nil
		rows[i].ZScoreDelta = nil
		if mean, ok := hm.Lookup(rows[i].Time); ok {
			rows[i].AmpMeanHist = models.Float(mean)
			rows[i].ZScoreDelta = models.Float(rows[i].Amplitude - mean)
		}
	}

	last3 := TrailingMean(rows, 3)
	last6 := TrailingMean(rows, 6)
	for i := range rows {
		rows[i].AmpEffLast3 = last3[i]
		rows[i].AmpEffLast6 = last6[i]
	}
}

// TrailingMean is the mean amplitude of the n rows ending at each row,
// current row included. Rows before the window fills are nil.
func TrailingMean(rows []models.Row, n int) []*float64 {
	out := make([]*float64, len(rows))
	if n <= 0 {
		return out
	}
	sum := 0.0
	for i := range rows {
		sum += rows[i].Amplitude
		if i >= n {
			sum -= rows[i-n].Amplitude
		}
		if i >= n-1 {
			out[i] = models.Float(sum / float64(n))
		}
	}
	return out
}
