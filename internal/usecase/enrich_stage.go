package usecase

import (
	"context"
	"errors"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	domsvc "Booster/internal/domain/service"
	"Booster/internal/services/enrich"
	applogger "Booster/pkg/logger"
)

// EnrichStage joins the 1h table with the instrument's heatmap baseline.
// Instruments without a heatmap keep their 1h table untouched.
type EnrichStage struct {
	heatmaps domrepo.HeatmapSource
	w        tableWriter
}

var _ domsvc.Stage = (*EnrichStage)(nil)

func NewEnrichStage(
	heatmaps domrepo.HeatmapSource,
	store domrepo.TableStore,
	events domrepo.EventPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *EnrichStage {
	return &EnrichStage{heatmaps: heatmaps, w: newTableWriter(store, events, m, l)}
}

func (s *EnrichStage) Name() string { return models.StageEnrich }

func (s *EnrichStage) Run(ctx context.Context, inst models.Instrument) domsvc.Outcome {
	key := domrepo.TableKey{Ticker: inst.Ticker, Timeframe: domrepo.TF1h}

	hm, err := s.heatmaps.Load(ctx, inst.Ticker)
	if err != nil {
		if errors.Is(err, domrepo.ErrMissingHeatmap) {
			return domsvc.Outcome{Skipped: true, Err: err}
		}
		return domsvc.Outcome{Err: err}
	}

	rows, err := s.w.load(ctx, key)
	if err != nil {
		return domsvc.Outcome{Skipped: errors.Is(err, domrepo.ErrMissingSibling), Err: err}
	}

	enrich.Enrich(rows, hm)

	tr := s.w.replace(ctx, models.StageEnrich, key, rows, false,
		domsvc.StateEnriched, domsvc.StatePersisted)
	return domsvc.Outcome{Tables: []domsvc.TableResult{tr}, Err: tr.Err}
}
