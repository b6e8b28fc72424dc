// Package report builds the amp_eff_last3 quantile thresholds per instrument.
package report

import (
	"math"
	"sort"
	"strings"

	"Booster/internal/domain/models"

	"github.com/shopspring/decimal"
)

// PinnedTickers lead the report in this order; the rest follow by median.
var PinnedTickers = []string{"BTC", "ETH", "AVAX", "ATOM", "ADA", "DOGE", "AAVE", "TRUMP", "UNI", "OP", "ARB"}

// SkipLeading defined amp_eff_last3 values are dropped before the quantiles.
const SkipLeading = 3

// Quantile is the linear-interpolation quantile of an ascending slice.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// ShortTicker drops the USDTSWAP suffix: BTCUSDTSWAP -> BTC.
func ShortTicker(ticker string) string {
	return strings.TrimSuffix(ticker, "USDTSWAP")
}

// Threshold computes the row of one instrument from its 1h table.
// ok is false when no values remain after skipping the leading ones.
func Threshold(ticker string, rows []models.Row) (models.Threshold, bool) {
	var vals []float64
	for i := range rows {
		if v := rows[i].AmpEffLast3; v != nil && !math.IsNaN(*v) {
			vals = append(vals, *v)
		}
	}
	if len(vals) <= SkipLeading {
		return models.Threshold{}, false
	}
	vals = vals[SkipLeading:]
	sort.Float64s(vals)

	return models.Threshold{
		Ticker: ShortTicker(ticker),
		Q1:     round2(Quantile(vals, 0.25)),
		Median: round2(Quantile(vals, 0.50)),
		Q3:     round2(Quantile(vals, 0.75)),
		Q90:    round2(Quantile(vals, 0.90)),
		Count:  len(vals),
	}, true
}

// Order puts pinned tickers first, then the others by ascending median.
func Order(rows []models.Threshold) []models.Threshold {
	rank := make(map[string]int, len(PinnedTickers))
	for i, t := range PinnedTickers {
		rank[t] = i
	}

	out := make([]models.Threshold, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		ri, pi := rank[out[i].Ticker]
		rj, pj := rank[out[j].Ticker]
		switch {
		case pi && pj:
			return ri < rj
		case pi != pj:
			return pi
		case out[i].Median != out[j].Median:
			return out[i].Median < out[j].Median
		default:
			return out[i].Ticker < out[j].Ticker
		}
	})
	return out
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
