package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"Booster/internal/domain/models"
	domsvc "Booster/internal/domain/service"
	"Booster/internal/orchestrator"
	"Booster/pkg/config"
	pkgkafka "Booster/pkg/kafka"
	applogger "Booster/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStage struct{ calls atomic.Int32 }

func (s *countingStage) Name() string { return models.StageDownload }

func (s *countingStage) Run(context.Context, models.Instrument) domsvc.Outcome {
	s.calls.Add(1)
	return domsvc.Outcome{}
}

func newTestApp(cfg *config.Config, stage domsvc.Stage) *App {
	orch := orchestrator.New(orchestrator.Config{Instruments: []string{"BTC-USDT-SWAP"}}, []domsvc.Stage{stage})
	return New(cfg, applogger.Nop(), orch, nil, nil, nil)
}

func TestJSONHookRejectsNonObjects(t *testing.T) {
	hook := jsonHook(applogger.Nop())

	_, out, err := hook.BeforeHandle(context.Background(), "booster.runs", kafka.Message{}, []byte(`{"stages":["download"]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"stages":["download"]}`, string(out))

	for _, payload := range []string{`[1,2]`, `"download"`, `not json`} {
		_, _, err := hook.BeforeHandle(context.Background(), "booster.runs", kafka.Message{}, []byte(payload))
		var he *pkgkafka.HookError
		require.True(t, errors.As(err, &he), payload)
		assert.Equal(t, "ERR_VALIDATION", he.Code)
	}
}

func TestRunOnce(t *testing.T) {
	stage := &countingStage{}
	app := newTestApp(&config.Config{}, stage)

	require.NoError(t, app.RunOnce(context.Background()))
	assert.Equal(t, int32(1), stage.calls.Load())
}

func TestRunSchedulesUntilCanceled(t *testing.T) {
	cfg := &config.Config{}
	cfg.Pipeline.Interval = 20 * time.Millisecond
	cfg.Server.ShutdownTimeout = time.Second

	stage := &countingStage{}
	app := newTestApp(cfg, stage)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	require.NoError(t, app.Run(ctx))
	assert.GreaterOrEqual(t, stage.calls.Load(), int32(2))
}
