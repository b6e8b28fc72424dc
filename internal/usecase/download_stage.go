package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	domsvc "Booster/internal/domain/service"
	"Booster/internal/services/indicators"
	"Booster/internal/services/resample"
	applogger "Booster/pkg/logger"
)

// DownloadConfig holds the parameters of the download stage.
type DownloadConfig struct {
	Target      int           // 3m candles to collect per instrument
	DailyAnchor time.Duration // local start of the daily bucket
	Window3m    int
	Window1h    int
}

// DownloadStage fetches 3m history once per instrument, derives the 1h and
// 1d tables from it and replaces all three.
type DownloadStage struct {
	fetcher domrepo.CandleFetcher
	w       tableWriter
	cfg     DownloadConfig
	log     *applogger.Logger
}

var _ domsvc.Stage = (*DownloadStage)(nil)

func NewDownloadStage(
	fetcher domrepo.CandleFetcher,
	store domrepo.TableStore,
	events domrepo.EventPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
	cfg DownloadConfig,
) *DownloadStage {
	w := newTableWriter(store, events, m, l)
	return &DownloadStage{fetcher: fetcher, w: w, cfg: cfg, log: w.log}
}

func (s *DownloadStage) Name() string { return models.StageDownload }

func (s *DownloadStage) Run(ctx context.Context, inst models.Instrument) domsvc.Outcome {
	res, err := s.fetcher.FetchCandles(ctx, inst, domrepo.TF3m, s.cfg.Target)
	if err != nil {
		return domsvc.Outcome{Err: fmt.Errorf("fetch %s: %w", inst.ID, err)}
	}
	if len(res.Candles) == 0 {
		if res.Err != nil {
			return domsvc.Outcome{Err: fmt.Errorf("fetch %s: %w", inst.ID, res.Err)}
		}
		return domsvc.Outcome{Skipped: true, Err: fmt.Errorf("%w: %s", domrepo.ErrNoData, inst.ID)}
	}
	partial := !res.Complete
	if partial {
		s.log.Warn("persisting partial history",
			applogger.String("instrument", inst.ID),
			applogger.Int("candles", len(res.Candles)),
			applogger.Int("target", s.cfg.Target),
		)
	}

	tables := BuildTables(res.Candles, s.cfg)

	out := domsvc.Outcome{}
	var errs []error
	for _, tf := range domrepo.AllTimeframes {
		key := domrepo.TableKey{Ticker: inst.Ticker, Timeframe: tf}
		tr := s.w.replace(ctx, models.StageDownload, key, tables[tf], partial,
			domsvc.StatePersisted, domsvc.StateIndicatorsComputed)
		tr.Trail = append(buildTrail(tf), tr.Trail...)
		out.Tables = append(out.Tables, tr)
		if tr.Err != nil {
			errs = append(errs, tr.Err)
		}
	}
	if len(errs) == len(domrepo.AllTimeframes) {
		out.Err = errors.Join(errs...)
	}
	return out
}

// buildTrail is the path a table takes before its indicators are computed:
// 3m rows come straight from the fetch, coarser ones are resampled from them.
func buildTrail(tf domrepo.Timeframe) []domsvc.TableState {
	if tf == domrepo.TF3m {
		return []domsvc.TableState{domsvc.StateRawFetched}
	}
	return []domsvc.TableState{domsvc.StateRawFetched, domsvc.StateResampled}
}

// BuildTables resamples ascending 3m candles into the 1h and 1d tables and
// computes the indicator columns of each timeframe.
func BuildTables(candles []models.Candle, cfg DownloadConfig) map[domrepo.Timeframe][]models.Row {
	rows3m := models.NewRows(candles)
	indicators.Compute(rows3m)
	indicators.Density(rows3m, domrepo.TF3m.Aligned, cfg.Window3m)

	rows1h := models.NewRows(resample.Resample(candles, domrepo.TF1h.Duration(), 0))
	indicators.Compute(rows1h)
	indicators.Density(rows1h, domrepo.TF1h.Aligned, cfg.Window1h)

	rows1d := models.NewRows(resample.Resample(candles, domrepo.TF1d.Duration(), cfg.DailyAnchor))
	indicators.ComputeAmplitude(rows1d)

	return map[domrepo.Timeframe][]models.Row{
		domrepo.TF3m: rows3m,
		domrepo.TF1h: rows1h,
		domrepo.TF1d: rows1d,
	}
}
