package usecase

import (
	"context"
	"errors"
	"fmt"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	"Booster/internal/services/report"
	"Booster/pkg/util"
)

// TablesUseCase is the read side over persisted tables.
type TablesUseCase struct {
	store domrepo.TableStore
}

func NewTablesUseCase(store domrepo.TableStore) *TablesUseCase {
	return &TablesUseCase{store: store}
}

// List returns the tickers that have a table for tf.
func (uc *TablesUseCase) List(ctx context.Context, tf domrepo.Timeframe) ([]string, error) {
	tickers, err := uc.store.List(ctx, tf)
	if err != nil {
		return nil, fmt.Errorf("list %s tables: %w", tf, err)
	}
	if tickers == nil {
		tickers = []string{}
	}
	return tickers, nil
}

// Candles returns the last p.Limit rows of one table. The instrument may be
// given as exchange id (BTC-USDT-SWAP) or ticker (BTCUSDTSWAP).
func (uc *TablesUseCase) Candles(ctx context.Context, p models.CandlesRequest) ([]models.RowView, error) {
	tf, err := domrepo.ParseTimeframe(p.Timeframe)
	if err != nil {
		return nil, err
	}
	if p.Instrument == "" {
		return nil, fmt.Errorf("%w: instrument required", domrepo.ErrInvalidInput)
	}
	if p.Limit <= 0 {
		p.Limit = 500
	}

	key := domrepo.TableKey{Ticker: util.TickerFromInstrument(p.Instrument), Timeframe: tf}
	rows, err := uc.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if len(rows) > p.Limit {
		rows = rows[len(rows)-p.Limit:]
	}

	out := make([]models.RowView, len(rows))
	for i := range rows {
		out[i] = models.NewRowView(rows[i])
	}
	return out, nil
}

// Thresholds builds the amp_eff_last3 quantile report from the 1h tables of
// the given tickers, or of every persisted instrument when none are given.
// Instruments without a 1h table or without enough values are left out.
func (uc *TablesUseCase) Thresholds(ctx context.Context, instruments []string) ([]models.Threshold, error) {
	tickers := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		tickers = append(tickers, util.TickerFromInstrument(inst))
	}
	if len(tickers) == 0 {
		var err error
		if tickers, err = uc.store.List(ctx, domrepo.TF1h); err != nil {
			return nil, fmt.Errorf("list 1h tables: %w", err)
		}
	}

	out := make([]models.Threshold, 0, len(tickers))
	for _, ticker := range tickers {
		rows, err := uc.store.Load(ctx, domrepo.TableKey{Ticker: ticker, Timeframe: domrepo.TF1h})
		if errors.Is(err, domrepo.ErrTableNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s 1h: %w", ticker, err)
		}
		if th, ok := report.Threshold(ticker, rows); ok {
			out = append(out, th)
		}
	}
	return report.Order(out), nil
}
