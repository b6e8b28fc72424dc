package usecase

import (
	"context"
	"fmt"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	domsvc "Booster/internal/domain/service"
	"Booster/internal/repository"
	pipemetrics "Booster/internal/service/metrics"
	applogger "Booster/pkg/logger"
	"Booster/pkg/metrics"
)

// tableWriter replaces one table and announces it. A failed replace is
// reported in the TableResult and never returned to the caller, so sibling
// tables of the same instrument still get written.
type tableWriter struct {
	store   domrepo.TableStore
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func newTableWriter(store domrepo.TableStore, events domrepo.EventPublisher, m domrepo.Metrics, l *applogger.Logger) tableWriter {
	if events == nil {
		events = repository.NoopEventPublisher{}
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return tableWriter{store: store, events: events, metrics: m, log: l}
}

func (w tableWriter) replace(
	ctx context.Context,
	stage string,
	key domrepo.TableKey,
	rows []models.Row,
	partial bool,
	done, before domsvc.TableState,
) domsvc.TableResult {
	res := domsvc.TableResult{Key: key, Rows: len(rows), Partial: partial, Trail: []domsvc.TableState{before}}

	start := time.Now()
	err := w.store.Replace(ctx, key, rows)
	w.metrics.RecordLatency("store_replace", time.Since(start).Seconds())
	if err != nil {
		kind := domrepo.Classify(err)
		w.metrics.RecordError(string(kind))
		w.log.Error("replace table failed",
			applogger.String("stage", stage),
			applogger.String("table", key.String()),
			applogger.String("kind", string(kind)),
			applogger.Bool("partial", partial),
			applogger.Error(err),
		)
		res.State = before
		res.Err = err
		return res
	}
	res.State = done
	res.Trail = append(res.Trail, done)

	w.metrics.RecordRows(string(key.Timeframe), len(rows))
	pipemetrics.ObserveTable(string(key.Timeframe), key.Ticker, len(rows))

	ev := &models.TableEvent{
		RunID:      RunID(ctx),
		Instrument: key.Ticker,
		Timeframe:  string(key.Timeframe),
		Stage:      stage,
		Rows:       len(rows),
		Partial:    partial,
	}
	if err := w.events.PublishTableEvent(ctx, ev); err != nil {
		w.log.Warn("publish table event failed",
			applogger.String("table", key.String()),
			applogger.Error(err),
		)
	}
	return res
}

// load reads a table another stage should have written. A missing table is
// reported as ErrMissingSibling.
func (w tableWriter) load(ctx context.Context, key domrepo.TableKey) ([]models.Row, error) {
	rows, err := w.store.Load(ctx, key)
	if err != nil {
		if domrepo.Classify(err) == domrepo.KindMissingSibling {
			return nil, fmt.Errorf("%w: %s", domrepo.ErrMissingSibling, key)
		}
		return nil, err
	}
	return rows, nil
}
