//go:build wireinject
// +build wireinject

package di

import (
	"Booster/pkg/config"
	"Booster/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideLocation,
		ProvideMetrics,

		// Infrastructure clients
		ProvideOKXClient,
		ProvideTableStore,
		ProvideCache,
		ProvideHeatmapSource,
		ProvideEventPublisher,

		// Use cases
		ProvideStages,
		ProvideOrchestrator,
		ProvideTablesUseCase,
		ProvideRunRequestHandler,

		// Transport
		ProvideHTTPHandler,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
