package models

// Row is a candle extended with indicator and enrichment columns.
// A nil pointer marks an undefined value; it is never stored as zero.
type Row struct {
	Candle

	Amplitude float64

	HMAFast  *float64 // hma9
	HMASlow  *float64 // hma21
	HMACross *int
	Density  *int // density_hma_cross

	AmpMeanHist *float64
	ZScoreDelta *float64
	AmpEffLast3 *float64
	AmpEffLast6 *float64

	AmpEffAvg *float64 // daily rows only
}

// NewRows wraps candles into rows with every derived column undefined.
func NewRows(candles []Candle) []Row {
	rows := make([]Row, len(candles))
	for i, c := range candles {
		rows[i] = Row{Candle: c}
	}
	return rows
}

// Candles strips rows back to their candles.
func Candles(rows []Row) []Candle {
	out := make([]Candle, len(rows))
	for i := range rows {
		out[i] = rows[i].Candle
	}
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
