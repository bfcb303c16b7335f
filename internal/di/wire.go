//go:build wireinject
// +build wireinject

package di

import (
	"RiskLens/pkg/config"
	"RiskLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisClient,

		// Repositories
		ProvideBarStorage,
		ProvideBarStore,
		ProvideScoreStore,
		ProvideScoreReader,
		ProvideAlertStore,
		ProvideBarPublisher,
		ProvideAlertSink,
		ProvideMarketStream,

		// Offline artifacts
		ProvideOracle,
		ProvideRiskOracle,
		ProvideVolForecaster,
		ProvideSentimentProvider,

		// Use cases
		ProvideSnapshotCache,
		ProvideBarProcessor,
		ProvideBarCollector,
		ProvideKafkaBarsHandler,
		ProvideScoringPipeline,
		ProvideRefreshJob,
		ProvideRefreshQueue,
		ProvideRefreshScheduler,
		ProvideBacktestRunner,
		ProvideBackfiller,

		// HTTP API
		ProvideRiskHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
