package models

// TablesRequest lists the instruments persisted for a timeframe.
type TablesRequest struct {
	Timeframe string `param:"tf" validate:"required,oneof=3m 1h 1d"`
}

// CandlesRequest reads the tail of one persisted table.
type CandlesRequest struct {
	Instrument string `query:"instrument" validate:"required"`
	Timeframe  string `query:"tf" default:"1h" validate:"oneof=3m 1h 1d"`
	Limit      int    `query:"limit" default:"500" validate:"min=1,max=10000"`
}

// ThresholdsRequest selects the instruments of the quantile report.
type ThresholdsRequest struct {
	Instruments []string `query:"instrument"`
}

// RowView is the JSON shape of a persisted row.
type RowView struct {
	Ticker      string   `json:"ticker"`
	Per         int      `json:"per"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Open        float64  `json:"open"`
	High        float64  `json:"high"`
	Low         float64  `json:"low"`
	Close       float64  `json:"close"`
	Vol         float64  `json:"vol"`
	Amplitude   float64  `json:"amplitude"`
	HMA9        *float64 `json:"hma9,omitempty"`
	HMA21       *float64 `json:"hma21,omitempty"`
	HMACross    *int     `json:"hma_cross,omitempty"`
	Density     *int     `json:"density_hma_cross,omitempty"`
	AmpMeanHist *float64 `json:"amp_mean_hist,omitempty"`
	ZScoreDelta *float64 `json:"zscore_delta,omitempty"`
	AmpEffLast3 *float64 `json:"amp_eff_last3,omitempty"`
	AmpEffLast6 *float64 `json:"amp_eff_last6,omitempty"`
	AmpEffAvg   *float64 `json:"amp_eff_avg,omitempty"`
}

// NewRowView converts a row for the API.
func NewRowView(r Row) RowView {
	return RowView{
		Ticker:      r.Instrument,
		Per:         r.Per,
		Date:        r.LocalDate(),
		Time:        r.LocalTime(),
		Open:        r.Open,
		High:        r.High,
		Low:         r.Low,
		Close:       r.Close,
		Vol:         r.Volume,
		Amplitude:   r.Amplitude,
		HMA9:        r.HMAFast,
		HMA21:       r.HMASlow,
		HMACross:    r.HMACross,
		Density:     r.Density,
		AmpMeanHist: r.AmpMeanHist,
		ZScoreDelta: r.ZScoreDelta,
		AmpEffLast3: r.AmpEffLast3,
		AmpEffLast6: r.AmpEffLast6,
		AmpEffAvg:   r.AmpEffAvg,
	}
}
