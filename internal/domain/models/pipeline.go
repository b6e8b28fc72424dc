package models

import "time"

// Pipeline stages in execution order.
const (
	StageDownload = "download"
	StageEnrich   = "enrich"
	StageDensity  = "density"
)

// AllStages lists the stages in the order they run.
var AllStages = []string{StageDownload, StageEnrich, StageDensity}

// RunRequest asks for a pipeline run. Empty fields mean all stages and the
// configured instrument set; an empty RunID is generated by the orchestrator.
type RunRequest struct {
	RunID       string   `json:"run_id,omitempty" validate:"omitempty,uuid"`
	Stages      []string `json:"stages,omitempty" validate:"omitempty,dive,oneof=download enrich density"`
	Instruments []string `json:"instruments,omitempty" validate:"omitempty,dive,required"`
}

// TableEvent is published after a table was replaced.
type TableEvent struct {
	EventID    string    `json:"event_id"`
	RunID      string    `json:"run_id"`
	Instrument string    `json:"instrument"`
	Timeframe  string    `json:"timeframe"`
	Stage      string    `json:"stage"`
	Rows       int       `json:"rows"`
	Partial    bool      `json:"partial,omitempty"`
	ReplacedAt time.Time `json:"replaced_at"`
}

// Threshold is one line of the amp_eff_last3 quantile report.
type Threshold struct {
	Ticker string  `json:"ticker"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Q90    float64 `json:"q90"`
	Count  int     `json:"count"`
}

// StageSummary counts per-instrument outcomes of one stage.
type StageSummary struct {
	Stage    string        `json:"stage"`
	OK       int           `json:"ok"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration_ns"`
}

// RunResult reports a finished pipeline run. States maps a table name
// (TICKER_tf) to the last state it reached; Errors holds one line per
// failed or skipped unit as "stage/instrument[/timeframe]: error".
type RunResult struct {
	RunID    string            `json:"run_id"`
	Started  time.Time         `json:"started"`
	Finished time.Time         `json:"finished"`
	Stages   []StageSummary    `json:"stages"`
	States   map[string]string `json:"states"`
	// History lists every state a table passed through during the run.
	History map[string][]string `json:"history,omitempty"`
	Errors  []string            `json:"errors,omitempty"`
}

// Failed reports whether any unit of the run failed.
func (r *RunResult) Failed() bool {
	for _, s := range r.Stages {
		if s.Failed > 0 {
			return true
		}
	}
	return false
}
