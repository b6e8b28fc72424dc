package di

import (
	"context"
	"fmt"
	"time"

	"Booster/internal/domain/models"
	"Booster/internal/domain/repository"
	domsvc "Booster/internal/domain/service"
	"Booster/internal/handler/api"
	"Booster/internal/orchestrator"
	internalrepo "Booster/internal/repository"
	pipemetrics "Booster/internal/service/metrics"
	"Booster/internal/service/okx"
	"Booster/internal/usecase"
	"Booster/pkg/cache"
	pkgch "Booster/pkg/clickhouse"
	"Booster/pkg/config"
	xhttp "Booster/pkg/http"
	pkgkafka "Booster/pkg/kafka"
	applogger "Booster/pkg/logger"
	"Booster/pkg/metrics"
	"Booster/pkg/postgres"
	"Booster/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideLocation resolves the pipeline timezone.
func ProvideLocation(cfg *config.Config) *time.Location {
	return cfg.Location()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	pipemetrics.Register()
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideOKXClient creates the market-data client.
func ProvideOKXClient(cfg *config.Config, loc *time.Location, m repository.Metrics, l *applogger.Logger) *okx.Client {
	httpClient := xhttp.NewClient(
		xhttp.WithBaseURL(cfg.OKX.BaseURL),
		xhttp.WithTimeout(cfg.OKX.Timeout),
		xhttp.WithUserAgent(cfg.OKX.UserAgent),
	)
	return okx.New(httpClient,
		okx.WithLocation(loc),
		okx.WithPageLimit(cfg.OKX.PageLimit),
		okx.WithVolumeIndex(cfg.OKX.VolumeIndex),
		okx.WithPacing(cfg.OKX.Pacing),
		okx.WithConcurrency(cfg.Pipeline.Concurrency.Fetch),
		okx.WithTransientRetry(cfg.OKX.Retry.MaxAttempts, cfg.OKX.Retry.Delay, cfg.OKX.Retry.ErrorDelay),
		okx.WithRateLimitRetry(cfg.OKX.RateLimit.Delay, cfg.OKX.RateLimit.MaxWaits),
		okx.WithMetrics(m),
		okx.WithLogger(l),
	)
}

// ProvideTableStore opens the configured storage backend.
func ProvideTableStore(cfg *config.Config, loc *time.Location, l *applogger.Logger) (repository.TableStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.Storage.Backend {
	case "memory":
		return internalrepo.NewMemoryTableStore(), func() {}, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return internalrepo.NewPostgresTableStore(pool, loc), pool.Close, nil

	case "clickhouse":
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(cfg.ClickHouse.MaxConnections, cfg.ClickHouse.MaxConnections/2),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
			pkgch.WithCreateDatabase(true),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store := internalrepo.NewClickHouseTableStore(client, loc)
		store.SetLogger(l)
		cleanup := func() {
			if err := client.Close(); err != nil {
				l.Warn("clickhouse close error", applogger.Error(err))
			}
		}
		return store, cleanup, nil

	default:
		store, err := internalrepo.NewFileTableStore(cfg.Storage.Root, cfg.Storage.Folders, loc)
		if err != nil {
			return nil, nil, err
		}
		store.SetLogger(l)
		return store, func() {}, nil
	}
}

// ProvideCache builds the cache behind heatmap lookups, the run lock and the
// thresholds report. "none" still gets an in-process cache for the lock.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	var c cache.Service
	switch cfg.Heatmap.Cache {
	case "redis", "layered":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx,
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		c = rc
		if cfg.Heatmap.Cache == "layered" {
			c = cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(time.Minute))
		}
	default:
		c = cache.NewMemoryCache()
	}
	return c, func() { _ = c.Close() }, nil
}

// ProvideHeatmapSource opens the heatmap workbook or CSV directory, cached
// unless heatmap.cache is "none".
func ProvideHeatmapSource(cfg *config.Config, c cache.Service, l *applogger.Logger) repository.HeatmapSource {
	var src repository.HeatmapSource
	if cfg.Heatmap.Source == "csv" {
		src = internalrepo.NewCSVHeatmapSource(cfg.Heatmap.Path, cfg.Heatmap.SheetSuffix)
	} else {
		src = internalrepo.NewXLSXHeatmapSource(cfg.Heatmap.Path, cfg.Heatmap.SheetSuffix)
	}
	if cfg.Heatmap.Cache == "none" {
		return src
	}
	return internalrepo.NewCachedHeatmapSource(src, c, cfg.Heatmap.CacheTTL, l)
}

// ProvideEventPublisher publishes table events to Kafka when enabled and
// attaches the error-log collector to the same producer.
func ProvideEventPublisher(cfg *config.Config, l *applogger.Logger) (repository.EventPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopEventPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)

	if cfg.Log.Collector.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      pub,
			IncludeWarn:    cfg.Log.Collector.IncludeWarn,
		})
	}

	cleanup := func() {
		l.RemoveCollector()
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return pub, cleanup, nil
}

// ProvideStages builds the pipeline stages in execution order.
func ProvideStages(
	cfg *config.Config,
	fetcher *okx.Client,
	store repository.TableStore,
	heatmaps repository.HeatmapSource,
	events repository.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) []domsvc.Stage {
	return []domsvc.Stage{
		usecase.NewDownloadStage(fetcher, store, events, m, l, usecase.DownloadConfig{
			Target:      cfg.Pipeline.Target,
			DailyAnchor: cfg.Pipeline.DailyAnchor,
			Window3m:    cfg.Pipeline.Density.Window3m,
			Window1h:    cfg.Pipeline.Density.Window1h,
		}),
		usecase.NewEnrichStage(heatmaps, store, events, m, l),
		usecase.NewDensityStage(store, events, m, l, cfg.Pipeline.Density.Window3m),
	}
}

// ProvideOrchestrator creates the stage orchestrator.
func ProvideOrchestrator(
	cfg *config.Config,
	stages []domsvc.Stage,
	source *okx.Client,
	c cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Config{
		Instruments:  cfg.Pipeline.Instruments,
		Discover:     cfg.Pipeline.Discover.Enabled,
		MinVolumeUSD: cfg.Pipeline.Discover.MinVolumeUSD,
		Limits: map[string]int{
			models.StageDownload: cfg.Pipeline.Concurrency.Fetch,
			models.StageEnrich:   cfg.Pipeline.Concurrency.Enrich,
			models.StageDensity:  cfg.Pipeline.Concurrency.Density,
		},
	}, stages,
		orchestrator.WithInstrumentSource(source),
		orchestrator.WithLocker(c),
		orchestrator.WithMetrics(m),
		orchestrator.WithLogger(l),
	)
}

// ProvideTablesUseCase creates the read-side use case.
func ProvideTablesUseCase(store repository.TableStore) *usecase.TablesUseCase {
	return usecase.NewTablesUseCase(store)
}

// ProvideHTTPHandler creates the echo handler for the API.
func ProvideHTTPHandler(l *applogger.Logger, tables *usecase.TablesUseCase, orch *orchestrator.Orchestrator, c cache.Service) xhttp.Handler {
	h := api.NewTablesEchoHandler(l, tables, orch)
	h.SetCache(c)
	return h
}

// ProvideKafkaConsumer creates the run-request consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRunRequestHandler handles run requests from the run topic.
func ProvideRunRequestHandler(cfg *config.Config, orch *orchestrator.Orchestrator, m repository.Metrics, l *applogger.Logger) pkgkafka.MessageHandler {
	return usecase.NewRunRequestHandler(cfg.Kafka.RunTopic, orch, m, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	orch *orchestrator.Orchestrator,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	runHandler pkgkafka.MessageHandler,
) *server.App {
	return server.New(cfg, l, orch, handler, consumer, runHandler)
}
