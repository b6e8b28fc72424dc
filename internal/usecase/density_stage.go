package usecase

import (
	"context"
	"errors"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	domsvc "Booster/internal/domain/service"
	"Booster/internal/services/indicators"
	applogger "Booster/pkg/logger"
)

// DensityStage recomputes the cross-density columns from the persisted 3m
// table: 3m density on top-of-hour rows, the 3m cross count of every hour on
// the 1h table, and the mean hourly amplitude of each date on the 1d table.
type DensityStage struct {
	w        tableWriter
	window3m int
	log      *applogger.Logger
}

var _ domsvc.Stage = (*DensityStage)(nil)

func NewDensityStage(
	store domrepo.TableStore,
	events domrepo.EventPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
	window3m int,
) *DensityStage {
	w := newTableWriter(store, events, m, l)
	return &DensityStage{w: w, window3m: window3m, log: w.log}
}

func (s *DensityStage) Name() string { return models.StageDensity }

func (s *DensityStage) Run(ctx context.Context, inst models.Instrument) domsvc.Outcome {
	key3m := domrepo.TableKey{Ticker: inst.Ticker, Timeframe: domrepo.TF3m}
	rows3m, err := s.w.load(ctx, key3m)
	if err != nil {
		return domsvc.Outcome{Skipped: errors.Is(err, domrepo.ErrMissingSibling), Err: err}
	}

	out := domsvc.Outcome{}
	indicators.Density(rows3m, domrepo.TF3m.Aligned, s.window3m)
	out.Tables = append(out.Tables, s.w.replace(ctx, models.StageDensity, key3m, rows3m, false,
		domsvc.StateDensityComputed, domsvc.StatePersisted))

	key1h := domrepo.TableKey{Ticker: inst.Ticker, Timeframe: domrepo.TF1h}
	rows1h, err := s.w.load(ctx, key1h)
	if err != nil {
		// the daily average needs the hourly table too
		s.log.Warn("hourly table unavailable, skipping 1h and 1d density",
			applogger.String("instrument", inst.ID),
			applogger.Error(err),
		)
		out.Tables = append(out.Tables, domsvc.TableResult{Key: key1h, Err: err})
		return s.finish(out)
	}
	indicators.ApplyHourlyDensity(rows1h, indicators.HourlyCrossCounts(rows3m))
	out.Tables = append(out.Tables, s.w.replace(ctx, models.StageDensity, key1h, rows1h, false,
		domsvc.StateDensityComputed, domsvc.StatePersisted))

	key1d := domrepo.TableKey{Ticker: inst.Ticker, Timeframe: domrepo.TF1d}
	rows1d, err := s.w.load(ctx, key1d)
	if err != nil {
		s.log.Warn("daily table unavailable",
			applogger.String("instrument", inst.ID),
			applogger.Error(err),
		)
		out.Tables = append(out.Tables, domsvc.TableResult{Key: key1d, Err: err})
		return s.finish(out)
	}
	indicators.ApplyDailyAmpEffAvg(rows1d, indicators.DailyAmpEffAvg(rows1h))
	out.Tables = append(out.Tables, s.w.replace(ctx, models.StageDensity, key1d, rows1d, false,
		domsvc.StateDensityComputed, domsvc.StatePersisted))

	return s.finish(out)
}

// finish fails the outcome only when no table was written.
func (s *DensityStage) finish(out domsvc.Outcome) domsvc.Outcome {
	var errs []error
	for _, t := range out.Tables {
		if t.Err != nil {
			errs = append(errs, t.Err)
		}
	}
	if len(errs) == len(out.Tables) {
		out.Err = errors.Join(errs...)
	}
	return out
}
