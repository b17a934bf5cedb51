//go:build wireinject
// +build wireinject

package di

import (
	"PriceLens/pkg/config"
	"PriceLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories (with business logic)
		ProvideMetricStorage,
		ProvideMetricPublisher,
		ProvideMetricsStream,
		ProvideEventSink,
		ProvideKafkaConsumer,
		ProvideKafkaMetricsHandler,

		// Use cases
		ProvideMetricProcessor,
		ProvideMetricCollector,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
