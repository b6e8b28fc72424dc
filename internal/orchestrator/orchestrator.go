// Package orchestrator runs the pipeline stages over the instrument set.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	domsvc "Booster/internal/domain/service"
	pipemetrics "Booster/internal/service/metrics"
	"Booster/internal/usecase"
	"Booster/pkg/cache"
	applogger "Booster/pkg/logger"
	"Booster/pkg/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = domrepo.ErrRunInProgress

const lockKey = "booster:run"

// Config selects the instrument set and the per-stage concurrency.
type Config struct {
	Instruments  []string // exchange ids
	Discover     bool
	MinVolumeUSD float64 // millions, used by discovery
	Limits       map[string]int
	LockTTL      time.Duration
}

// Orchestrator sequences Download, Enrich and Density. Within a stage every
// instrument is an independent task; a failing instrument is recorded and
// never cancels its siblings.
type Orchestrator struct {
	cfg     Config
	stages  map[string]domsvc.Stage
	source  domrepo.InstrumentSource
	locker  cache.Service
	local   sync.Mutex
	metrics domrepo.Metrics
	log     *applogger.Logger
}

// Option configures Orchestrator.
type Option func(*Orchestrator)

// WithInstrumentSource enables discovery of liquid instruments.
func WithInstrumentSource(s domrepo.InstrumentSource) Option {
	return func(o *Orchestrator) { o.source = s }
}

// WithLocker guards runs with a cache lock so that several processes sharing
// a store never write the same tables at once.
func WithLocker(c cache.Service) Option {
	return func(o *Orchestrator) { o.locker = c }
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *applogger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func New(cfg Config, stages []domsvc.Stage, opts ...Option) *Orchestrator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Hour
	}
	o := &Orchestrator{
		cfg:     cfg,
		stages:  make(map[string]domsvc.Stage, len(stages)),
		metrics: metrics.Nop{},
		log:     applogger.Nop(),
	}
	for _, s := range stages {
		o.stages[s.Name()] = s
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the requested stages in pipeline order. The returned error
// covers only run-level problems (lock, instrument resolution, cancellation);
// per-instrument failures are reported in RunResult.
func (o *Orchestrator) Run(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
	release, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, p)
}

// Start takes the run lock and resolves the request, then executes the run in
// the background and returns its id. An error means the run never began.
func (o *Orchestrator) Start(ctx context.Context, req models.RunRequest) (string, error) {
	release, err := o.acquire(ctx)
	if err != nil {
		return "", err
	}
	p, err := o.prepare(ctx, req)
	if err != nil {
		release()
		return "", err
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer release()
		if _, err := o.execute(runCtx, p); err != nil {
			o.log.Error("background run failed", applogger.String("run_id", p.runID), applogger.Error(err))
		}
	}()
	return p.runID, nil
}

type preparedRun struct {
	runID       string
	stages      []string
	instruments []models.Instrument
}

func (o *Orchestrator) prepare(ctx context.Context, req models.RunRequest) (preparedRun, error) {
	stages, err := o.resolveStages(req.Stages)
	if err != nil {
		return preparedRun{}, err
	}
	instruments, err := o.resolveInstruments(ctx, req.Instruments)
	if err != nil {
		return preparedRun{}, err
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return preparedRun{runID: runID, stages: stages, instruments: instruments}, nil
}

func (o *Orchestrator) execute(ctx context.Context, p preparedRun) (*models.RunResult, error) {
	stages, instruments := p.stages, p.instruments
	res := &models.RunResult{
		RunID:   p.runID,
		Started: time.Now(),
		States:  make(map[string]string),
		History: make(map[string][]string),
	}
	ctx = usecase.WithRunID(ctx, res.RunID)
	log := o.log.With(applogger.String("run_id", res.RunID))
	log.Info("pipeline run started",
		applogger.Strings("stages", stages),
		applogger.Int("instruments", len(instruments)),
	)

	for _, name := range stages {
		if err := ctx.Err(); err != nil {
			break
		}
		res.Stages = append(res.Stages, o.runStage(ctx, log, name, instruments, res))
	}

	res.Finished = time.Now()
	sort.Strings(res.Errors)

	result := "ok"
	if res.Failed() {
		result = "partial"
	}
	if ctx.Err() != nil {
		result = "canceled"
	}
	pipemetrics.ObserveRun(result, res.Started, res.Finished)
	log.Info("pipeline run finished",
		applogger.String("result", result),
		applogger.Duration("duration", res.Finished.Sub(res.Started)),
		applogger.Int("errors", len(res.Errors)),
	)
	return res, ctx.Err()
}

func (o *Orchestrator) runStage(ctx context.Context, log *applogger.Logger, name string, instruments []models.Instrument, res *models.RunResult) models.StageSummary {
	stage := o.stages[name]
	sum := models.StageSummary{Stage: name}
	start := time.Now()

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.limit(name))

	for _, inst := range instruments {
		if ctx.Err() != nil {
			break
		}
		inst := inst
		g.Go(func() error {
			out := stage.Run(ctx, inst)

			mu.Lock()
			defer mu.Unlock()
			o.record(log, name, inst, out, &sum, res)
			return nil
		})
	}
	_ = g.Wait()

	sum.Duration = time.Since(start)
	log.Info("stage finished",
		applogger.String("stage", name),
		applogger.Int("ok", sum.OK),
		applogger.Int("failed", sum.Failed),
		applogger.Int("skipped", sum.Skipped),
		applogger.Duration("duration", sum.Duration),
	)
	return sum
}

// record folds one instrument outcome into the summary. Callers hold the lock.
func (o *Orchestrator) record(log *applogger.Logger, stage string, inst models.Instrument, out domsvc.Outcome, sum *models.StageSummary, res *models.RunResult) {
	for _, t := range out.Tables {
		key := t.Key.String()
		for i, st := range t.Trail {
			h := res.History[key]
			// a later stage starts from the state the previous one left
			if i == 0 && len(h) > 0 {
				continue
			}
			if len(h) == 0 || h[len(h)-1] != string(st) {
				res.History[key] = append(h, string(st))
			}
		}
		if t.Err == nil {
			res.States[key] = string(t.State)
			continue
		}
		res.Errors = append(res.Errors, fmt.Sprintf("%s/%s/%s: %v", stage, inst.Ticker, t.Key.Timeframe, t.Err))
	}

	outcome := "ok"
	switch {
	case out.Skipped:
		sum.Skipped++
		outcome = "skipped"
		log.Warn("instrument skipped",
			applogger.String("stage", stage),
			applogger.String("instrument", inst.ID),
			applogger.String("kind", string(domrepo.Classify(out.Err))),
			applogger.Error(out.Err),
		)
		if out.Err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: %v", stage, inst.Ticker, out.Err))
		}
	case out.Err != nil:
		sum.Failed++
		outcome = "failed"
		kind := domrepo.Classify(out.Err)
		o.metrics.RecordError(string(kind))
		log.Error("instrument failed",
			applogger.String("stage", stage),
			applogger.String("instrument", inst.ID),
			applogger.String("kind", string(kind)),
			applogger.Error(out.Err),
		)
		if len(out.Tables) == 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: %v", stage, inst.Ticker, out.Err))
		}
	default:
		sum.OK++
	}
	o.metrics.RecordStage(stage, outcome)
}

func (o *Orchestrator) limit(stage string) int {
	if n := o.cfg.Limits[stage]; n > 0 {
		return n
	}
	return 1
}

func (o *Orchestrator) resolveStages(requested []string) ([]string, error) {
	if len(requested) == 0 {
		for _, s := range models.AllStages {
			if _, ok := o.stages[s]; ok {
				requested = append(requested, s)
			}
		}
	}
	want := make(map[string]bool, len(requested))
	for _, s := range requested {
		if _, ok := o.stages[s]; !ok {
			return nil, fmt.Errorf("%w: unknown stage %q", domrepo.ErrInvalidInput, s)
		}
		want[s] = true
	}
	out := make([]string, 0, len(want))
	for _, s := range models.AllStages {
		if want[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (o *Orchestrator) resolveInstruments(ctx context.Context, requested []string) ([]models.Instrument, error) {
	ids := requested
	if len(ids) == 0 {
		ids = o.cfg.Instruments
	}
	if len(ids) == 0 && o.cfg.Discover && o.source != nil {
		found, err := o.source.LiquidInstruments(ctx, o.cfg.MinVolumeUSD)
		if err != nil {
			return nil, fmt.Errorf("discover instruments: %w", err)
		}
		o.log.Info("instruments discovered",
			applogger.Int("count", len(found)),
			applogger.Float64("min_volume_musd", o.cfg.MinVolumeUSD),
		)
		return found, nil
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no instruments", domrepo.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(ids))
	out := make([]models.Instrument, 0, len(ids))
	for _, id := range ids {
		inst := models.NewInstrument(id)
		if seen[inst.Ticker] {
			continue
		}
		seen[inst.Ticker] = true
		out = append(out, inst)
	}
	return out, nil
}

// acquire takes the process-local run lock and, when configured, the shared
// cache lock.
func (o *Orchestrator) acquire(ctx context.Context) (func(), error) {
	if !o.local.TryLock() {
		return nil, ErrRunInProgress
	}
	if o.locker == nil {
		return o.local.Unlock, nil
	}

	ok, err := o.locker.TryLock(ctx, lockKey, o.cfg.LockTTL)
	if err != nil {
		o.local.Unlock()
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		o.local.Unlock()
		return nil, ErrRunInProgress
	}
	return func() {
		if err := o.locker.Unlock(context.Background(), lockKey); err != nil {
			o.log.Warn("release run lock failed", applogger.Error(err))
		}
		o.local.Unlock()
	}, nil
}
