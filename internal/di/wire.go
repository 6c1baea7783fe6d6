//go:build wireinject
// +build wireinject

package di

import (
	"TradePulse/pkg/config"
	"TradePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// ingestion plumbing
		ProvideLimiter,
		ProvideCache,
		ProvideFetchers,

		// optional infrastructure
		ProvideCandleStore,
		ProvidePublisher,

		// core services
		ProvideManager,
		ProvideIndicatorEngine,
		ProvidePredictor,
		ProvideStrategy,
		ProvideAnalyzer,
		ProvideRetrainer,

		// HTTP surface
		ProvideRouter,

		ProvideApp,
	)
	return &server.App{}, nil
}
