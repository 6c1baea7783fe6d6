package fetcher

import (
	"context"
	"errors"

	"TradePulse/internal/domain/models"
)

// ErrHistoryUnsupported marks sources that only expose a latest quote.
// The DataManager accumulates per-cycle quotes into a series instead.
var ErrHistoryUnsupported = errors.New("fetcher: source does not expose history")

// Fetcher is a polled upstream adapter for one market. Implementations
// must respect their rate limiter and never block past ctx.
type Fetcher interface {
	// Market names the asset class this fetcher feeds.
	Market() models.Market
	// Source is the short name used in logs, metrics and health records.
	Source() string
	// FetchQuotes pulls the current quote set for the whole market.
	FetchQuotes(ctx context.Context) ([]models.Quote, error)
	// FetchHistory pulls up to days of daily price history for one
	// symbol, oldest first. Returns ErrHistoryUnsupported when the
	// upstream has no history endpoint.
	FetchHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error)
}
