package repository

import (
	"context"
	"time"

	"TradePulse/internal/domain/models"
)

// CandleStore persists daily price history and serves it back for feature
// engineering and predictor training.
type CandleStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBatch(ctx context.Context, candles []models.Candle) error
	GetCandles(ctx context.Context, market, symbol string, from, to time.Time) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, market, symbol string, n int) ([]models.Candle, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher pushes published refresh results to downstream consumers.
type SignalPublisher interface {
	PublishSnapshot(ctx context.Context, snap *models.MarketSnapshot) error
	Close() error
}

// SnapshotLoader restores the last persisted snapshot on boot so the API
// serves quotes before the first refresh cycle completes.
type SnapshotLoader interface {
	Load(ctx context.Context) (*models.MarketSnapshot, error)
}

// Metrics abstracts the metric recorder so services do not depend on the
// Prometheus client directly.
type Metrics interface {
	RecordFetch(source string, ok bool)
	RecordRateLimited(source string)
	RecordCache(hit bool)
	RecordLastPrice(asset string, price float64)
	RecordRefreshDuration(seconds float64)
	RecordError(kind string)
}
