package manager

import (
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/service/cache"
)

// MarketStatus is the per-market slice of a Status report.
type MarketStatus struct {
	Source      string              `json:"source"`
	LastRefresh time.Time           `json:"last_refresh"`
	Interval    time.Duration       `json:"interval"`
	Health      models.SourceHealth `json:"health"`
}

// Status is the operational report served by the data-status endpoint.
type Status struct {
	State       State                          `json:"state"`
	PublishedAt time.Time                      `json:"published_at"`
	QuoteCount  int                            `json:"quote_count"`
	Markets     map[models.Market]MarketStatus `json:"markets"`
	Cache       cache.Stats                    `json:"cache"`
	SeriesCount int                            `json:"tracked_series"`
}

// Status snapshots the manager's operational state for monitoring.
func (m *Manager) Status() Status {
	snap := m.Latest()

	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:       m.state,
		Markets:     make(map[models.Market]MarketStatus, len(m.fetchers)),
		SeriesCount: len(m.series),
	}
	if snap != nil {
		st.PublishedAt = snap.PublishedAt
		st.QuoteCount = len(snap.Quotes)
	}
	for market, f := range m.fetchers {
		ms := MarketStatus{
			Source:      f.Source(),
			LastRefresh: m.lastRun[market],
			Interval:    m.cfg.Intervals[market],
		}
		if h := m.health[market]; h != nil {
			ms.Health = *h
		}
		st.Markets[market] = ms
	}
	if sc, ok := m.cache.(interface{ Stats() cache.Stats }); ok {
		st.Cache = sc.Stats()
	}
	return st
}
