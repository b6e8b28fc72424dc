package repository

import (
	"fmt"
	"time"
)

// Timeframe is a persisted bar resolution.
type Timeframe string

const (
	TF3m Timeframe = "3m"
	TF1h Timeframe = "1h"
	TF1d Timeframe = "1d"
)

// AllTimeframes in dependency order: 1h and 1d are resampled from 3m.
var AllTimeframes = []Timeframe{TF3m, TF1h, TF1d}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF3m, TF1h, TF1d:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1h }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// ParseTimeframe is the strict variant of NormalizeTimeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !IsValidTimeframe(tf) {
		return "", fmt.Errorf("%w: timeframe %q", ErrInvalidInput, s)
	}
	return tf, nil
}

// Duration is the bar width.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF3m:
		return 3 * time.Minute
	case TF1h:
		return time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Per is the bar width in minutes, the value of the per column.
func (tf Timeframe) Per() int { return int(tf.Duration() / time.Minute) }

// Bar is the exchange bar code for the timeframe.
func (tf Timeframe) Bar() string {
	switch tf {
	case TF1h:
		return "1H"
	case TF1d:
		return "1Dutc"
	default:
		return string(tf)
	}
}

// Aligned reports whether a bar starting at t is a density sampling point:
// top of the hour for 3m bars, local midnight for 1h bars. Daily bars carry
// no density.
func (tf Timeframe) Aligned(t time.Time) bool {
	switch tf {
	case TF3m:
		return t.Minute() == 0
	case TF1h:
		return t.Hour() == 0 && t.Minute() == 0
	default:
		return false
	}
}

// HasIndicators is false for daily tables, which carry amp_eff_avg instead of
// the HMA, cross, density and heatmap columns.
func (tf Timeframe) HasIndicators() bool { return tf != TF1d }

var (
	intradayColumns = []string{
		"ticker", "per", "date", "time", "open", "high", "low", "close", "vol",
		"amplitude", "hma9", "hma21", "hma_cross", "density_hma_cross",
		"amp_mean_hist", "zscore_delta", "amp_eff_last3", "amp_eff_last6",
	}
	dailyColumns = []string{
		"ticker", "per", "date", "time", "open", "high", "low", "close", "vol",
		"amplitude", "amp_eff_avg",
	}
)

// Columns is the fixed persisted column set of the timeframe.
func (tf Timeframe) Columns() []string {
	if tf.HasIndicators() {
		return intradayColumns
	}
	return dailyColumns
}
