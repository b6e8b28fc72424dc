package service

import (
	"context"

	"Booster/internal/domain/models"
	"Booster/internal/domain/repository"
)

// TableState is the lifecycle position of one (instrument, timeframe) table.
type TableState string

const (
	StateRawFetched         TableState = "RAW_FETCHED"
	StateResampled          TableState = "RESAMPLED"
	StateIndicatorsComputed TableState = "INDICATORS_COMPUTED"
	StatePersisted          TableState = "PERSISTED"
	StateEnriched           TableState = "ENRICHED"
	StateDensityComputed    TableState = "DENSITY_COMPUTED"
)

// TableResult reports one table touched by a stage.
type TableResult struct {
	Key     repository.TableKey
	Rows    int
	State   TableState
	Trail   []TableState // states passed in this stage, ending at State
	Partial bool
	Err     error // set when this table failed while siblings succeeded
}

// Outcome is what a stage produced for one instrument.
// Skipped means the stage had nothing to do (missing heatmap or sibling table).
type Outcome struct {
	Tables  []TableResult
	Skipped bool
	Err     error
}

// Stage runs one pipeline step for a single instrument. Implementations must
// be safe for concurrent use across different instruments.
type Stage interface {
	Name() string
	Run(ctx context.Context, inst models.Instrument) Outcome
}
