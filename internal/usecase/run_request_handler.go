package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	applogger "Booster/pkg/logger"
	pkgkafka "Booster/pkg/kafka"
	"Booster/pkg/metrics"

	"github.com/go-playground/validator/v10"
)

// Runner executes a pipeline run.
type Runner interface {
	Run(ctx context.Context, req models.RunRequest) (*models.RunResult, error)
}

// RunStarter begins a run in the background and returns its id once the run
// lock is held and the request resolved.
type RunStarter interface {
	Start(ctx context.Context, req models.RunRequest) (string, error)
}

// RunRequestHandler consumes run requests from Kafka and executes them
// synchronously on the consumer worker.
type RunRequestHandler struct {
	topic    string
	runner   Runner
	validate *validator.Validate
	metrics  domrepo.Metrics
	log      *applogger.Logger
}

func NewRunRequestHandler(topic string, runner Runner, m domrepo.Metrics, l *applogger.Logger) *RunRequestHandler {
	if m == nil {
		m = metrics.Nop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &RunRequestHandler{topic: topic, runner: runner, validate: validator.New(), metrics: m, log: l}
}

func (h *RunRequestHandler) Topic() string { return h.topic }

// incoming message schema: {stages?, instruments?}
func (h *RunRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.RunRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: decode run request: %w", domrepo.ErrInvalidInput, err)
	}
	if err := h.validate.Struct(req); err != nil {
		h.metrics.RecordError("consumer_validate")
		return fmt.Errorf("%w: %w", domrepo.ErrInvalidInput, err)
	}

	res, err := h.runner.Run(ctx, req)
	if err != nil {
		return err
	}
	h.log.Info("run request handled",
		applogger.String("run_id", res.RunID),
		applogger.String("trace_id", pkgkafka.TraceID(ctx)),
		applogger.Int("errors", len(res.Errors)),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*RunRequestHandler)(nil)
