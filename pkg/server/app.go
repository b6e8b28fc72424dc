package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Booster/internal/domain/models"
	"Booster/internal/orchestrator"
	"Booster/pkg/config"
	xhttp "Booster/pkg/http"
	pkgkafka "Booster/pkg/kafka"
	applogger "Booster/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	orch        *orchestrator.Orchestrator
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	consumer    *pkgkafka.Consumer
	runHandler  pkgkafka.MessageHandler
}

// New creates a new App instance with all dependencies. consumer may be nil
// when Kafka run requests are disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	orch *orchestrator.Orchestrator,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	runHandler pkgkafka.MessageHandler,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		orch:        orch,
		httpHandler: httpHandler,
		consumer:    consumer,
		runHandler:  runHandler,
	}
}

// RunOnce executes the configured stages a single time.
func (a *App) RunOnce(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.orch.Run(ctx, models.RunRequest{Stages: a.cfg.Pipeline.Stages})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	for _, line := range res.Errors {
		a.log.Warn("unit not completed", applogger.String("detail", line))
	}
	return nil
}

// Run starts the HTTP server, the Kafka run-request consumer and the
// scheduled pipeline loop, then blocks until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Server.Enabled {
		metricsPath := ""
		if a.cfg.Metrics.Enabled {
			metricsPath = a.cfg.Metrics.Path
		}
		a.httpServer = xhttp.NewServer(a.httpHandler,
			xhttp.WithHost(a.cfg.Server.Host),
			xhttp.WithPort(a.cfg.Server.Port),
			xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
			xhttp.WithMetricsPath(metricsPath),
			xhttp.WithLogger(a.log),
		)
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
	}

	if a.consumer != nil && a.runHandler != nil {
		a.consumer.RegisterHandler(a.runHandler)
		a.consumer.WithConsumerHook(jsonHook(a.log))
		if err := a.consumer.Start(ctx); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.runHandler.Topic()))
	}

	if a.cfg.Pipeline.Interval > 0 {
		go a.schedule(ctx, a.cfg.Pipeline.Interval)
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// schedule runs the pipeline now and then every interval. A run still in
// progress when the next tick fires makes that tick a no-op.
func (a *App) schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, err := a.orch.Run(ctx, models.RunRequest{Stages: a.cfg.Pipeline.Stages})
		switch {
		case errors.Is(err, orchestrator.ErrRunInProgress):
			a.log.Warn("scheduled run skipped", applogger.Error(err))
		case err != nil && ctx.Err() == nil:
			a.log.Error("scheduled run failed", applogger.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

// jsonHook rejects payloads that are not JSON objects before they reach the
// handler.
func jsonHook(log *applogger.Logger) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, []byte, error) {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(data, &obj); err != nil {
				return ctx, nil, &pkgkafka.HookError{Code: "ERR_VALIDATION", Err: err}
			}
			return ctx, data, nil
		},
		After: func(ctx context.Context, topic string, km kafka.Message, err error) {
			if err != nil {
				log.Warn("run request not handled",
					applogger.String("topic", topic),
					applogger.Int64("offset", km.Offset),
					applogger.String("trace_id", pkgkafka.TraceID(ctx)),
					applogger.Error(err),
				)
			}
		},
	}
}
