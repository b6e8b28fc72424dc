package okx

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"Booster/internal/domain/models"
	drepo "Booster/internal/domain/repository"
	applogger "Booster/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// FetchCandles pages backwards from the newest candle until target distinct
// candles are collected or the exchange returns an empty page. Candles are
// deduplicated by timestamp. When a page exhausts its retries the result is
// returned with Complete=false and the candles collected so far; the error
// return is reserved for context cancellation.
func (c *Client) FetchCandles(ctx context.Context, inst models.Instrument, tf drepo.Timeframe, target int) (*models.FetchResult, error) {
	res := &models.FetchResult{Instrument: inst}

	if err := c.permits.Acquire(ctx, 1); err != nil {
		res.Err = err
		return res, err
	}
	defer c.permits.Release(1)
	defer c.limiter.Forget(inst.ID)

	seen := make(map[int64]models.Candle, target)
	retrier := c.retrier(inst.ID)
	after := ""

	for len(seen) < target {
		if err := c.limiter.Every(ctx, inst.ID, c.pacing); err != nil {
			res.Err = err
			res.Candles = sortedCandles(seen)
			return res, err
		}

		var page []models.Candle
		err := retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = c.fetchPage(ctx, inst, tf, after)
			return err
		})
		if err != nil {
			res.Candles = sortedCandles(seen)
			res.Err = err
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			c.log.Warn("okx fetch incomplete",
				applogger.String("instrument", inst.ID),
				applogger.Int("candles", len(res.Candles)),
				applogger.Int("pages", res.Pages),
				applogger.Error(err),
			)
			return res, nil
		}
		res.Pages++

		if len(page) == 0 {
			break
		}

		added := 0
		oldest := page[0].Timestamp()
		for _, cd := range page {
			ts := cd.Timestamp()
			if ts < oldest {
				oldest = ts
			}
			if _, dup := seen[ts]; dup {
				continue
			}
			seen[ts] = cd
			added++
		}
		if added == 0 {
			break
		}
		after = strconv.FormatInt(oldest, 10)
	}

	res.Candles = sortedCandles(seen)
	res.Complete = true
	c.log.Debug("okx fetch done",
		applogger.String("instrument", inst.ID),
		applogger.String("bar", tf.Bar()),
		applogger.Int("candles", len(res.Candles)),
		applogger.Int("pages", res.Pages),
	)
	return res, nil
}

func (c *Client) fetchPage(ctx context.Context, inst models.Instrument, tf drepo.Timeframe, after string) ([]models.Candle, error) {
	query := map[string][]string{
		"instId": {inst.ID},
		"bar":    {tf.Bar()},
		"limit":  {strconv.Itoa(c.pageLimit)},
	}
	if after != "" {
		query["after"] = []string{after}
	}

	body, err := c.get(ctx, "history-candles", historyCandlesPath, query)
	if err != nil {
		return nil, err
	}
	return c.parseCandles(inst, tf, body)
}

// parseCandles reads data: [[ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm], ...].
func (c *Client) parseCandles(inst models.Instrument, tf drepo.Timeframe, body []byte) ([]models.Candle, error) {
	data := gjson.GetBytes(body, "data").Array()
	out := make([]models.Candle, 0, len(data))

	for i, row := range data {
		cols := row.Array()
		if len(cols) <= c.volumeIndex || len(cols) < 5 {
			return nil, fmt.Errorf("%w: candle %d has %d columns", drepo.ErrTransientNetwork, i, len(cols))
		}
		ts, err := strconv.ParseInt(cols[0].String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: candle %d timestamp: %v", drepo.ErrTransientNetwork, i, err)
		}

		var nums [5]float64
		for k, idx := range [5]int{1, 2, 3, 4, c.volumeIndex} {
			d, err := decimal.NewFromString(cols[idx].String())
			if err != nil {
				return nil, fmt.Errorf("%w: candle %d column %d: %v", drepo.ErrTransientNetwork, i, idx, err)
			}
			nums[k] = d.InexactFloat64()
		}

		out = append(out, models.Candle{
			Instrument: inst.Ticker,
			Per:        tf.Per(),
			Time:       time.UnixMilli(ts).In(c.loc),
			Open:       nums[0],
			High:       nums[1],
			Low:        nums[2],
			Close:      nums[3],
			Volume:     nums[4],
		})
	}
	return out, nil
}

func sortedCandles(seen map[int64]models.Candle) []models.Candle {
	out := make([]models.Candle, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
