package models

import (
	"time"

	"Booster/pkg/util"
)

// Candle is one OHLCV bar of an instrument at a fixed period.
// Time is the bar start in the pipeline's local zone.
type Candle struct {
	Instrument string
	Per        int // bar width in minutes: 3, 60, 1440
	Time       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// LocalDate is the YYYYMMDD stamp of the bar start.
func (c Candle) LocalDate() string { return util.FormatDate(c.Time) }

// LocalTime is the HHMMSS stamp of the bar start.
func (c Candle) LocalTime() string { return util.FormatClock(c.Time) }

// Timestamp is the bar start in unix milliseconds.
func (c Candle) Timestamp() int64 { return c.Time.UnixMilli() }

// Instrument describes a tradable contract.
type Instrument struct {
	ID        string  `json:"id"`     // exchange id, BTC-USDT-SWAP
	Ticker    string  `json:"ticker"` // table name stem, BTCUSDTSWAP
	Volume24h float64 `json:"vol_ccy_24h,omitempty"`
}

// NewInstrument derives the ticker from an exchange instrument id.
func NewInstrument(id string) Instrument {
	return Instrument{ID: id, Ticker: util.TickerFromInstrument(id)}
}

// FetchResult is the outcome of a paginated candle download.
// Complete is false when retries ran out; Candles then holds what was collected.
type FetchResult struct {
	Instrument Instrument
	Candles    []Candle
	Complete   bool
	Pages      int
	Err        error
}
