package okx

import (
	"context"
	"sort"
	"strings"

	"Booster/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// LiquidInstruments lists USDT perpetual swaps whose 24h volume (volCcy24h,
// in millions) exceeds minVolumeM, most liquid first.
func (c *Client) LiquidInstruments(ctx context.Context, minVolumeM float64) ([]models.Instrument, error) {
	var body []byte
	err := c.retrier("tickers").Do(ctx, func(ctx context.Context) error {
		var err error
		body, err = c.get(ctx, "tickers", tickersPath, map[string][]string{"instType": {"SWAP"}})
		return err
	})
	if err != nil {
		return nil, err
	}

	threshold := decimal.NewFromFloat(minVolumeM).Mul(decimal.NewFromInt(1_000_000))
	var out []models.Instrument
	gjson.GetBytes(body, "data").ForEach(func(_, item gjson.Result) bool {
		id := item.Get("instId").String()
		if !strings.HasSuffix(id, "-USDT-SWAP") {
			return true
		}
		vol, err := decimal.NewFromString(item.Get("volCcy24h").String())
		if err != nil || !vol.GreaterThan(threshold) {
			return true
		}
		inst := models.NewInstrument(id)
		inst.Volume24h = vol.InexactFloat64()
		out = append(out, inst)
		return true
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Volume24h > out[j].Volume24h })
	return out, nil
}
