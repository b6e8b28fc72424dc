// Package resample coarsens candle sequences into wider bars.
package resample

import (
	"sort"
	"time"

	"Booster/internal/domain/models"
	"Booster/pkg/util"
)

// Resample groups src into buckets of width and aggregates each bucket as
// first open, max high, min low, last close and summed volume.
//
// Bucketing happens on the local wall clock of each candle: the time is shifted
// back by anchor, truncated to width, then shifted forward again, so with
// anchor=3h a daily bucket runs from 03:00 to 03:00 local. Buckets without any
// source candle are not emitted. The output is ascending and stamped with the
// bucket start; Per is set to width in minutes.
func Resample(src []models.Candle, width, anchor time.Duration) []models.Candle {
	if len(src) == 0 || width <= 0 {
		return nil
	}

	sorted := make([]models.Candle, len(src))
	copy(sorted, src)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	per := int(width / time.Minute)
	index := make(map[time.Time]int)
	var out []models.Candle

	for _, c := range sorted {
		loc := c.Time.Location()
		wall := util.WallClock(c.Time)
		start := wall.Add(-anchor).Truncate(width).Add(anchor)

		i, ok := index[start]
		if !ok {
			index[start] = len(out)
			out = append(out, models.Candle{
				Instrument: c.Instrument,
				Per:        per,
				Time:       util.FromWallClock(start, loc),
				Open:       c.Open,
				High:       c.High,
				Low:        c.Low,
				Close:      c.Close,
				Volume:     c.Volume,
			})
			continue
		}

		b := &out[i]
		if c.High > b.High {
			b.High = c.High
		}
		if c.Low < b.Low {
			b.Low = c.Low
		}
		b.Close = c.Close
		b.Volume += c.Volume
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
