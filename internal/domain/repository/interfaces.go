package repository

import (
	"context"

	"Booster/internal/domain/models"
)

// TableKey names one persisted table.
type TableKey struct {
	Ticker    string
	Timeframe Timeframe
}

func (k TableKey) String() string { return k.Ticker + "_" + string(k.Timeframe) }

// TableStore persists one snapshot table per (instrument, timeframe).
// Replace swaps the whole table atomically; readers never see a half-written one.
type TableStore interface {
	Replace(ctx context.Context, key TableKey, rows []models.Row) error
	// Load returns rows ascending by time, or ErrTableNotFound.
	Load(ctx context.Context, key TableKey) ([]models.Row, error)
	// List returns the tickers that have a table for tf, sorted.
	List(ctx context.Context, tf Timeframe) ([]string, error)
	Close() error
}

// CandleFetcher downloads 3m candles for one instrument.
type CandleFetcher interface {
	FetchCandles(ctx context.Context, inst models.Instrument, tf Timeframe, target int) (*models.FetchResult, error)
}

// InstrumentSource discovers tradable instruments.
type InstrumentSource interface {
	LiquidInstruments(ctx context.Context, minVolumeMUSD float64) ([]models.Instrument, error)
}

// HeatmapSource loads the historical amplitude baseline of an instrument.
// A missing sheet is reported as ErrMissingHeatmap.
type HeatmapSource interface {
	Load(ctx context.Context, ticker string) (models.Heatmap, error)
}

// EventPublisher announces replaced tables to downstream consumers.
type EventPublisher interface {
	PublishTableEvent(ctx context.Context, ev *models.TableEvent) error
	Close() error
}

// Metrics is implemented by pkg/metrics.Recorder.
type Metrics interface {
	RecordRequest(endpoint string, status int)
	RecordRetry(policy string)
	RecordStage(stage, outcome string)
	RecordRows(tf string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
