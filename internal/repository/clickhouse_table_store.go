package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	pkgch "Booster/pkg/clickhouse"
	applogger "Booster/pkg/logger"
)

const chTablePrefix = "candles_"

var chColumnTypes = map[string]string{
	"ticker":            "LowCardinality(String)",
	"per":               "UInt16",
	"date":              "String",
	"time":              "String",
	"open":              "Float64",
	"high":              "Float64",
	"low":               "Float64",
	"close":             "Float64",
	"vol":               "Float64",
	"amplitude":         "Float64",
	"hma9":              "Nullable(Float64)",
	"hma21":             "Nullable(Float64)",
	"hma_cross":         "Nullable(Int8)",
	"density_hma_cross": "Nullable(Int32)",
	"amp_mean_hist":     "Nullable(Float64)",
	"zscore_delta":      "Nullable(Float64)",
	"amp_eff_last3":     "Nullable(Float64)",
	"amp_eff_last6":     "Nullable(Float64)",
	"amp_eff_avg":       "Nullable(Float64)",
}

// ClickHouseTableStore keeps one MergeTree table per (instrument, timeframe),
// named candles_{TICKER}_{tf}. Replace fills a staging table and swaps it in
// with EXCHANGE TABLES, which is atomic on the Atomic database engine.
type ClickHouseTableStore struct {
	ch  *pkgch.Client
	db  *sql.DB
	loc *time.Location
	l   *applogger.Logger
}

var _ domrepo.TableStore = (*ClickHouseTableStore)(nil)

func NewClickHouseTableStore(ch *pkgch.Client, loc *time.Location) *ClickHouseTableStore {
	return &ClickHouseTableStore{ch: ch, db: ch.DB(), loc: loc, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *ClickHouseTableStore) SetLogger(l *applogger.Logger) { s.l = l }

func chTable(key domrepo.TableKey) string {
	return chTablePrefix + key.String()
}

func chCreateTable(name string, tf domrepo.Timeframe) string {
	cols := tf.Columns()
	defs := make([]string, 0, len(cols)+1)
	defs = append(defs, "ts DateTime64(3, 'UTC')")
	for _, c := range cols {
		defs = append(defs, pkgch.QuoteIdent(c)+" "+chColumnTypes[c])
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY ts",
		pkgch.QuoteIdent(name), strings.Join(defs, ",\n\t"))
}

func chValues(tf domrepo.Timeframe, r *models.Row) []any {
	cols := tf.Columns()
	vals := make([]any, 0, len(cols)+1)
	vals = append(vals, r.Time.UTC())
	for _, c := range cols {
		switch c {
		case "ticker":
			vals = append(vals, r.Instrument)
		case "per":
			vals = append(vals, uint16(r.Per))
		case "date":
			vals = append(vals, r.LocalDate())
		case "time":
			vals = append(vals, r.LocalTime())
		case "hma_cross":
			var v *int8
			if r.HMACross != nil {
				n := int8(*r.HMACross)
				v = &n
			}
			vals = append(vals, v)
		case "density_hma_cross":
			var v *int32
			if r.Density != nil {
				n := int32(*r.Density)
				v = &n
			}
			vals = append(vals, v)
		default:
			vals = append(vals, chFloat(c, r))
		}
	}
	return vals
}

func chFloat(col string, r *models.Row) any {
	switch col {
	case "open":
		return r.Open
	case "high":
		return r.High
	case "low":
		return r.Low
	case "close":
		return r.Close
	case "vol":
		return r.Volume
	case "amplitude":
		return r.Amplitude
	case "hma9":
		return r.HMAFast
	case "hma21":
		return r.HMASlow
	case "amp_mean_hist":
		return r.AmpMeanHist
	case "zscore_delta":
		return r.ZScoreDelta
	case "amp_eff_last3":
		return r.AmpEffLast3
	case "amp_eff_last6":
		return r.AmpEffLast6
	case "amp_eff_avg":
		return r.AmpEffAvg
	default:
		return nil
	}
}

func (s *ClickHouseTableStore) Replace(ctx context.Context, key domrepo.TableKey, rows []models.Row) error {
	target := chTable(key)
	staging := target + "__staging"

	if err := s.ch.Exec(ctx,
		"DROP TABLE IF EXISTS "+pkgch.QuoteIdent(staging),
		chCreateTable(staging, key.Timeframe),
	); err != nil {
		return storeErr("create staging", key, err)
	}

	if err := s.insert(ctx, staging, key, rows); err != nil {
		_ = s.ch.Exec(context.Background(), "DROP TABLE IF EXISTS "+pkgch.QuoteIdent(staging))
		return storeErr("insert", key, err)
	}

	exists, err := s.ch.TableExists(ctx, target)
	if err != nil {
		return storeErr("exists", key, err)
	}
	if exists {
		err = s.ch.Exec(ctx,
			fmt.Sprintf("EXCHANGE TABLES %s AND %s", pkgch.QuoteIdent(staging), pkgch.QuoteIdent(target)),
			"DROP TABLE IF EXISTS "+pkgch.QuoteIdent(staging),
		)
	} else {
		err = s.ch.Exec(ctx,
			fmt.Sprintf("RENAME TABLE %s TO %s", pkgch.QuoteIdent(staging), pkgch.QuoteIdent(target)),
		)
	}
	if err != nil {
		return storeErr("swap", key, err)
	}

	s.l.Debug("clickhouse table replaced",
		applogger.String("table", target),
		applogger.Int("rows", len(rows)),
	)
	return nil
}

func (s *ClickHouseTableStore) insert(ctx context.Context, table string, key domrepo.TableKey, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols := append([]string{"ts"}, key.Timeframe.Columns()...)
	for i, c := range cols {
		cols[i] = pkgch.QuoteIdent(c)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s)", pkgch.QuoteIdent(table), strings.Join(cols, ", ")))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, chValues(key.Timeframe, &rows[i])...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseTableStore) Load(ctx context.Context, key domrepo.TableKey) ([]models.Row, error) {
	table := chTable(key)
	exists, err := s.ch.TableExists(ctx, table)
	if err != nil {
		return nil, storeErr("exists", key, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", key, domrepo.ErrTableNotFound)
	}

	cols := key.Timeframe.Columns()
	selectCols := make([]string, 0, len(cols)+1)
	selectCols = append(selectCols, "ts")
	for _, c := range cols {
		if c == "date" || c == "time" {
			continue
		}
		selectCols = append(selectCols, pkgch.QuoteIdent(c))
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY ts ASC",
		strings.Join(selectCols, ", "), pkgch.QuoteIdent(table)))
	if err != nil {
		return nil, storeErr("query", key, err)
	}
	defer rows.Close()

	var out []models.Row
	for rows.Next() {
		var r models.Row
		var per uint16
		dest := []any{&r.Time}
		for _, c := range cols {
			switch c {
			case "date", "time":
			case "ticker":
				dest = append(dest, &r.Instrument)
			case "per":
				dest = append(dest, &per)
			default:
				dest = append(dest, chDest(c, &r))
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, storeErr("scan", key, err)
		}
		r.Per = int(per)
		r.Time = r.Time.In(s.loc)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("rows", key, err)
	}
	return out, nil
}

func chDest(col string, r *models.Row) any {
	switch col {
	case "open":
		return &r.Open
	case "high":
		return &r.High
	case "low":
		return &r.Low
	case "close":
		return &r.Close
	case "vol":
		return &r.Volume
	case "amplitude":
		return &r.Amplitude
	case "hma9":
		return &r.HMAFast
	case "hma21":
		return &r.HMASlow
	case "hma_cross":
		return &r.HMACross
	case "density_hma_cross":
		return &r.Density
	case "amp_mean_hist":
		return &r.AmpMeanHist
	case "zscore_delta":
		return &r.ZScoreDelta
	case "amp_eff_last3":
		return &r.AmpEffLast3
	case "amp_eff_last6":
		return &r.AmpEffLast6
	case "amp_eff_avg":
		return &r.AmpEffAvg
	default:
		return new(any)
	}
}

func (s *ClickHouseTableStore) List(ctx context.Context, tf domrepo.Timeframe) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM system.tables WHERE database = ? AND startsWith(name, ?) ORDER BY name",
		s.ch.Database(), chTablePrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", domrepo.ErrStoreIO, tf, err)
	}
	defer rows.Close()

	suffix := "_" + string(tf)
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", domrepo.ErrStoreIO, tf, err)
		}
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		out = append(out, strings.TrimSuffix(strings.TrimPrefix(name, chTablePrefix), suffix))
	}
	return out, rows.Err()
}

// Close is a no-op; the client is owned by the caller.
func (s *ClickHouseTableStore) Close() error { return nil }
