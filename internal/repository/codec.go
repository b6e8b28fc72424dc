package repository

import (
	"fmt"
	"strconv"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	"Booster/pkg/util"
)

// formatCell renders one persisted column of r. Undefined values are empty.
func formatCell(col string, r *models.Row) string {
	switch col {
	case "ticker":
		return r.Instrument
	case "per":
		return strconv.Itoa(r.Per)
	case "date":
		return r.LocalDate()
	case "time":
		return r.LocalTime()
	case "open":
		return formatFloat(r.Open)
	case "high":
		return formatFloat(r.High)
	case "low":
		return formatFloat(r.Low)
	case "close":
		return formatFloat(r.Close)
	case "vol":
		return formatFloat(r.Volume)
	case "amplitude":
		return formatFloat(r.Amplitude)
	case "hma9":
		return formatOptFloat(r.HMAFast)
	case "hma21":
		return formatOptFloat(r.HMASlow)
	case "hma_cross":
		return formatOptInt(r.HMACross)
	case "density_hma_cross":
		return formatOptInt(r.Density)
	case "amp_mean_hist":
		return formatOptFloat(r.AmpMeanHist)
	case "zscore_delta":
		return formatOptFloat(r.ZScoreDelta)
	case "amp_eff_last3":
		return formatOptFloat(r.AmpEffLast3)
	case "amp_eff_last6":
		return formatOptFloat(r.AmpEffLast6)
	case "amp_eff_avg":
		return formatOptFloat(r.AmpEffAvg)
	default:
		return ""
	}
}

// parseCell sets one column of r from its text form. date and time are
// handled by the caller because they only make sense together.
func parseCell(col, v string, r *models.Row) error {
	var err error
	switch col {
	case "ticker":
		r.Instrument = v
	case "per":
		r.Per, err = strconv.Atoi(v)
	case "open":
		r.Open, err = parseFloat(v)
	case "high":
		r.High, err = parseFloat(v)
	case "low":
		r.Low, err = parseFloat(v)
	case "close":
		r.Close, err = parseFloat(v)
	case "vol":
		r.Volume, err = parseFloat(v)
	case "amplitude":
		r.Amplitude, err = parseFloat(v)
	case "hma9":
		r.HMAFast, err = parseOptFloat(v)
	case "hma21":
		r.HMASlow, err = parseOptFloat(v)
	case "hma_cross":
		r.HMACross, err = parseOptInt(v)
	case "density_hma_cross":
		r.Density, err = parseOptInt(v)
	case "amp_mean_hist":
		r.AmpMeanHist, err = parseOptFloat(v)
	case "zscore_delta":
		r.ZScoreDelta, err = parseOptFloat(v)
	case "amp_eff_last3":
		r.AmpEffLast3, err = parseOptFloat(v)
	case "amp_eff_last6":
		r.AmpEffLast6, err = parseOptFloat(v)
	case "amp_eff_avg":
		r.AmpEffAvg, err = parseOptFloat(v)
	}
	if err != nil {
		return fmt.Errorf("column %s: %w", col, err)
	}
	return nil
}

// encodeRecord renders r with the column set of tf.
func encodeRecord(tf domrepo.Timeframe, r *models.Row) []string {
	cols := tf.Columns()
	rec := make([]string, len(cols))
	for i, col := range cols {
		rec[i] = formatCell(col, r)
	}
	return rec
}

// decodeRecord parses a record laid out as header. The bar time is rebuilt
// from the date and time columns in loc.
func decodeRecord(header, rec []string, loc *time.Location) (models.Row, error) {
	var r models.Row
	var date, clock string
	for i, col := range header {
		if i >= len(rec) {
			break
		}
		switch col {
		case "date":
			date = rec[i]
		case "time":
			clock = rec[i]
		default:
			if err := parseCell(col, rec[i], &r); err != nil {
				return r, err
			}
		}
	}
	t, err := util.ParseLocal(date, clock, loc)
	if err != nil {
		return r, err
	}
	r.Time = t
	return r, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseOptInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	// pandas writes nullable integer columns as floats ("1.0")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	n := int(v)
	return &n, nil
}

func storeErr(op string, key domrepo.TableKey, err error) error {
	return fmt.Errorf("%w: %s %s: %w", domrepo.ErrStoreIO, op, key, err)
}
