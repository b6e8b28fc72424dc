package repository

import (
	"context"
	"fmt"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	"Booster/pkg/postgres"

	"github.com/jackc/pgx/v5"
)

var pgColumns = []string{
	"instrument", "timeframe", "ts", "per", "date", "time",
	"open", "high", "low", "close", "vol", "amplitude",
	"hma9", "hma21", "hma_cross", "density_hma_cross",
	"amp_mean_hist", "zscore_delta", "amp_eff_last3", "amp_eff_last6", "amp_eff_avg",
}

// PostgresTableStore keeps every (instrument, timeframe) table as a slice of
// the candles table. Replace deletes and copies the slice in one transaction.
type PostgresTableStore struct {
	pool *postgres.Pool
	loc  *time.Location
}

var _ domrepo.TableStore = (*PostgresTableStore)(nil)

func NewPostgresTableStore(pool *postgres.Pool, loc *time.Location) *PostgresTableStore {
	return &PostgresTableStore{pool: pool, loc: loc}
}

func (s *PostgresTableStore) Replace(ctx context.Context, key domrepo.TableKey, rows []models.Row) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("begin tx", key, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM candles WHERE instrument = $1 AND timeframe = $2`,
		key.Ticker, string(key.Timeframe),
	); err != nil {
		return storeErr("delete", key, err)
	}

	daily := !key.Timeframe.HasIndicators()
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := &rows[i]
		vals := []any{
			key.Ticker, string(key.Timeframe), r.Time, r.Per, r.LocalDate(), r.LocalTime(),
			r.Open, r.High, r.Low, r.Close, r.Volume, r.Amplitude,
			r.HMAFast, r.HMASlow, r.HMACross, r.Density,
			r.AmpMeanHist, r.ZScoreDelta, r.AmpEffLast3, r.AmpEffLast6, r.AmpEffAvg,
		}
		if daily {
			// daily tables carry amp_eff_avg only
			for j := 12; j < 20; j++ {
				vals[j] = nil
			}
		}
		return vals, nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"candles"}, pgColumns, src); err != nil {
		return storeErr("copy", key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit", key, err)
	}
	return nil
}

func (s *PostgresTableStore) Load(ctx context.Context, key domrepo.TableKey) ([]models.Row, error) {
	query := `
		SELECT ts, per, open, high, low, close, vol, amplitude,
		       hma9, hma21, hma_cross, density_hma_cross,
		       amp_mean_hist, zscore_delta, amp_eff_last3, amp_eff_last6, amp_eff_avg
		FROM candles
		WHERE instrument = $1 AND timeframe = $2
		ORDER BY ts ASC
	`
	rows, err := s.pool.Query(ctx, query, key.Ticker, string(key.Timeframe))
	if err != nil {
		return nil, storeErr("query", key, err)
	}
	defer rows.Close()

	var out []models.Row
	for rows.Next() {
		r := models.Row{Candle: models.Candle{Instrument: key.Ticker}}
		if err := rows.Scan(
			&r.Time, &r.Per, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume, &r.Amplitude,
			&r.HMAFast, &r.HMASlow, &r.HMACross, &r.Density,
			&r.AmpMeanHist, &r.ZScoreDelta, &r.AmpEffLast3, &r.AmpEffLast6, &r.AmpEffAvg,
		); err != nil {
			return nil, storeErr("scan", key, err)
		}
		r.Time = r.Time.In(s.loc)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("rows", key, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", key, domrepo.ErrTableNotFound)
	}
	return out, nil
}

func (s *PostgresTableStore) List(ctx context.Context, tf domrepo.Timeframe) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT instrument FROM candles WHERE timeframe = $1 ORDER BY instrument`,
		string(tf),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", domrepo.ErrStoreIO, tf, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", domrepo.ErrStoreIO, tf, err)
		}
		out = append(out, ticker)
	}
	return out, rows.Err()
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresTableStore) Close() error { return nil }
