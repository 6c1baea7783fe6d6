package usecase

import (
	"context"
	"errors"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/manager"
)

var (
	// ErrNoSnapshot means no refresh cycle has published yet.
	ErrNoSnapshot = errors.New("no market snapshot published yet")
	// ErrAssetNotFound means the asset is not in the tracked universe.
	ErrAssetNotFound = errors.New("asset not tracked")
	// ErrUnknownMarket means the request named a market we do not serve.
	ErrUnknownMarket = errors.New("unknown market")
)

// MarketUseCase serves snapshot reads and refresh control.
type MarketUseCase struct {
	mgr *manager.Manager
}

func NewMarketUseCase(mgr *manager.Manager) *MarketUseCase {
	return &MarketUseCase{mgr: mgr}
}

// MarketOverview is the all-markets summary payload.
type MarketOverview struct {
	Markets     map[models.Market][]models.Quote       `json:"markets"`
	Sources     map[models.Market]models.SourceHealth  `json:"sources"`
	PublishedAt string                                 `json:"published_at"`
}

// Overview returns every market's quotes from the latest snapshot.
func (uc *MarketUseCase) Overview(limit int) (*MarketOverview, error) {
	snap := uc.mgr.Latest()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	out := &MarketOverview{
		Markets:     make(map[models.Market][]models.Quote, len(models.Markets)),
		Sources:     snap.Sources,
		PublishedAt: snap.PublishedAt.Format("2006-01-02 15:04:05"),
	}
	for _, market := range models.Markets {
		quotes := snap.ByMarket(market)
		if limit > 0 && len(quotes) > limit {
			quotes = quotes[:limit]
		}
		out.Markets[market] = quotes
	}
	return out, nil
}

// MarketData returns one market's ranked quotes.
func (uc *MarketUseCase) MarketData(marketName string, limit int) ([]models.Quote, error) {
	market, ok := models.ParseMarket(marketName)
	if !ok {
		return nil, ErrUnknownMarket
	}
	snap := uc.mgr.Latest()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	quotes := snap.ByMarket(market)
	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}
	return quotes, nil
}

// ForceUpdate triggers an immediate refresh; with wait it blocks until
// the new snapshot is published.
func (uc *MarketUseCase) ForceUpdate(ctx context.Context, wait bool) error {
	return uc.mgr.ForceRefresh(ctx, wait)
}

// Status reports the refresh loop's operational state.
func (uc *MarketUseCase) Status() manager.Status {
	return uc.mgr.Status()
}
