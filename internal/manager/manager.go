package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/internal/fetcher"
	"TradePulse/internal/service/cache"
	"TradePulse/pkg/logger"
)

// State is the refresh cycle phase, observable through Status.
type State string

const (
	StateIdle      State = "idle"
	StateFetching  State = "fetching"
	StateMerging   State = "merging"
	StatePublished State = "published"
)

const degradedAfter = 3 // consecutive failures before a source is degraded

// Config carries the refresh cadence and retention tunables.
type Config struct {
	// Tick is the scheduler resolution; each market refreshes on its
	// own interval measured against this tick.
	Tick      time.Duration
	Intervals map[models.Market]time.Duration
	CacheTTL  time.Duration
	// HistoryDays bounds upstream history pulls; SeriesCap bounds the
	// per-asset series accumulated from quote cycles.
	HistoryDays int
	SeriesCap   int
}

// Manager owns the Idle -> Fetching -> Merging -> Published refresh loop.
// Exactly one cycle runs at a time; readers always see the last published
// snapshot through an atomic swap and never block a cycle.
type Manager struct {
	cfg      Config
	fetchers map[models.Market]fetcher.Fetcher
	cache    cache.Store
	log      *logger.Logger
	metrics  repository.Metrics

	// optional sinks, nil when disabled
	publisher repository.SignalPublisher
	store     repository.CandleStore

	snapshot atomic.Value // *models.MarketSnapshot
	force    chan struct{}

	mu      sync.Mutex
	state   State
	health  map[models.Market]*models.SourceHealth
	series  map[string]models.PriceSeries
	lastRun map[models.Market]time.Time
	waiters []chan struct{}

	now func() time.Time
}

// Option wires optional sinks into the Manager.
type Option func(*Manager)

// WithPublisher emits every published snapshot to a downstream broker.
func WithPublisher(p repository.SignalPublisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithCandleStore persists per-cycle price points for model training.
func WithCandleStore(s repository.CandleStore) Option {
	return func(m *Manager) { m.store = s }
}

func New(cfg Config, fetchers []fetcher.Fetcher, store cache.Store, log *logger.Logger, metrics repository.Metrics, opts ...Option) *Manager {
	if cfg.Tick <= 0 {
		cfg.Tick = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 90
	}
	if cfg.SeriesCap <= 0 {
		cfg.SeriesCap = 500
	}

	m := &Manager{
		cfg:      cfg,
		fetchers: make(map[models.Market]fetcher.Fetcher, len(fetchers)),
		cache:    store,
		log:      log,
		metrics:  metrics,
		force:    make(chan struct{}, 1),
		state:    StateIdle,
		health:   make(map[models.Market]*models.SourceHealth),
		series:   make(map[string]models.PriceSeries),
		lastRun:  make(map[models.Market]time.Time),
		now:      time.Now,
	}
	for _, f := range fetchers {
		m.fetchers[f.Market()] = f
		m.health[f.Market()] = &models.SourceHealth{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run drives the refresh loop until ctx is cancelled. The first cycle
// refreshes every market so the service starts with a full snapshot.
func (m *Manager) Run(ctx context.Context) error {
	m.runCycle(ctx, true)

	ticker := time.NewTicker(m.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.force:
			m.runCycle(ctx, true)
		case <-ticker.C:
			m.runCycle(ctx, false)
		}
	}
}

// ForceRefresh schedules an immediate full cycle. Concurrent callers
// coalesce into a single cycle; with wait set the call returns once the
// next snapshot is published.
func (m *Manager) ForceRefresh(ctx context.Context, wait bool) error {
	var done chan struct{}
	if wait {
		done = make(chan struct{})
		m.mu.Lock()
		m.waiters = append(m.waiters, done)
		m.mu.Unlock()
	}

	select {
	case m.force <- struct{}{}:
	default:
		// a forced cycle is already queued
	}

	if !wait {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the last published snapshot, nil before the first cycle.
func (m *Manager) Latest() *models.MarketSnapshot {
	if v := m.snapshot.Load(); v != nil {
		return v.(*models.MarketSnapshot)
	}
	return nil
}

// Seed installs a previously persisted snapshot so readers are served
// before the first cycle completes. Seeded quotes and source health are
// flagged stale; the next published cycle replaces the whole snapshot.
// A no-op once any snapshot exists.
func (m *Manager) Seed(snap *models.MarketSnapshot) {
	if snap == nil || len(snap.Quotes) == 0 {
		return
	}
	if m.snapshot.Load() != nil {
		return
	}
	seeded := &models.MarketSnapshot{
		Quotes:      make(map[string]models.Quote, len(snap.Quotes)),
		Sources:     make(map[models.Market]models.SourceHealth, len(snap.Sources)),
		PublishedAt: snap.PublishedAt,
	}
	for k, q := range snap.Quotes {
		q.Stale = true
		seeded.Quotes[k] = q
	}
	for mk, h := range snap.Sources {
		h.Stale = true
		seeded.Sources[mk] = h
	}
	m.snapshot.Store(seeded)
	m.log.Info("snapshot seeded from store",
		logger.Int("quotes", len(seeded.Quotes)),
		logger.String("published_at", seeded.PublishedAt.Format(time.RFC3339)))
}

// State reports the current cycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Series returns the accumulated per-cycle price series for one asset.
func (m *Manager) Series(id models.AssetID) models.PriceSeries {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.series[id.String()]
}

// History returns daily price history for one asset: the upstream chart
// when the source has one, otherwise the series accumulated from quote
// cycles. Upstream results are cached; on upstream failure a stale
// cached copy is served before giving up.
func (m *Manager) History(ctx context.Context, id models.AssetID, days int) (models.PriceSeries, error) {
	f, ok := m.fetchers[id.Market]
	if !ok {
		return nil, fmt.Errorf("manager: no source for market %q", id.Market)
	}
	if days <= 0 || days > m.cfg.HistoryDays {
		days = m.cfg.HistoryDays
	}

	key := "history:" + id.String()
	if v, fresh, ok := m.cache.Get(key); ok && fresh {
		m.metrics.RecordCache(true)
		return v.(models.PriceSeries), nil
	}
	m.metrics.RecordCache(false)

	series, err := f.FetchHistory(ctx, id.Symbol, days)
	switch {
	case err == nil:
		m.cache.Set(key, series, m.cfg.CacheTTL)
		return series, nil
	case errors.Is(err, fetcher.ErrHistoryUnsupported):
		return m.Series(id), nil
	default:
		if v, _, ok := m.cache.Get(key); ok {
			m.log.Warn("history fetch failed, serving stale cache",
				logger.String("asset", id.String()), logger.Error(err))
			return v.(models.PriceSeries), nil
		}
		if acc := m.Series(id); len(acc) > 0 {
			return acc, nil
		}
		return nil, err
	}
}

type fetchResult struct {
	quotes []models.Quote
	stale  bool
	err    error
}

func (m *Manager) runCycle(ctx context.Context, force bool) {
	due := m.dueMarkets(force)
	if len(due) == 0 {
		return
	}
	start := m.now()
	m.setState(StateFetching)

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make(map[models.Market]fetchResult, len(due))
	)
	for _, market := range due {
		wg.Add(1)
		go func(market models.Market) {
			defer wg.Done()
			res := m.fetchMarket(ctx, market)
			resMu.Lock()
			results[market] = res
			resMu.Unlock()
		}(market)
	}
	wg.Wait()

	m.setState(StateMerging)
	snap := m.merge(results)
	m.snapshot.Store(snap)
	m.setState(StatePublished)
	m.metrics.RecordRefreshDuration(m.now().Sub(start).Seconds())
	m.log.Info("snapshot published",
		logger.Int("quotes", len(snap.Quotes)),
		logger.Int("markets_refreshed", len(due)),
		logger.Duration("took", m.now().Sub(start)))

	m.notifyWaiters()
	m.sink(ctx, snap, results)
	m.setState(StateIdle)
}

func (m *Manager) dueMarkets(force bool) []models.Market {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var due []models.Market
	for _, market := range models.Markets {
		if _, ok := m.fetchers[market]; !ok {
			continue
		}
		if force {
			due = append(due, market)
			continue
		}
		interval := m.cfg.Intervals[market]
		if interval <= 0 {
			interval = time.Minute
		}
		if now.Sub(m.lastRun[market]) >= interval {
			due = append(due, market)
		}
	}
	for _, market := range due {
		m.lastRun[market] = now
	}
	return due
}

// fetchMarket pulls one market's quotes and updates its health record.
// On failure a stale cached quote set is served, flagged per quote, so a
// flapping upstream degrades to old data instead of an empty market.
func (m *Manager) fetchMarket(ctx context.Context, market models.Market) fetchResult {
	f := m.fetchers[market]
	key := "quotes:" + string(market)

	quotes, err := f.FetchQuotes(ctx)
	now := m.now()

	m.mu.Lock()
	h := m.health[market]
	if err == nil {
		h.LastSuccess = now
		h.LastError = ""
		h.ConsecutiveFailures = 0
		h.Degraded = false
		h.Stale = false
		h.AssetCount = len(quotes)
		m.mu.Unlock()
		m.cache.Set(key, quotes, m.cfg.CacheTTL)
		return fetchResult{quotes: quotes}
	}

	h.LastError = err.Error()
	h.ConsecutiveFailures++
	h.Degraded = h.ConsecutiveFailures >= degradedAfter
	degraded := h.Degraded
	m.mu.Unlock()

	m.metrics.RecordError("fetch_" + string(market))
	m.log.Error("market fetch failed",
		logger.String("market", string(market)),
		logger.String("source", f.Source()),
		logger.Bool("degraded", degraded),
		logger.Error(err))

	if v, _, ok := m.cache.Get(key); ok {
		m.metrics.RecordCache(true)
		cached := v.([]models.Quote)
		stale := make([]models.Quote, len(cached))
		copy(stale, cached)
		for i := range stale {
			stale[i].Stale = true
		}
		m.mu.Lock()
		h.Stale = true
		h.AssetCount = len(stale)
		m.mu.Unlock()
		return fetchResult{quotes: stale, stale: true, err: err}
	}
	m.metrics.RecordCache(false)
	return fetchResult{err: err}
}

// merge builds the next snapshot: refreshed markets from results, the
// rest carried over from the previous snapshot, and health copied for
// every source.
func (m *Manager) merge(results map[models.Market]fetchResult) *models.MarketSnapshot {
	prev := m.Latest()
	snap := &models.MarketSnapshot{
		Quotes:      make(map[string]models.Quote),
		Sources:     make(map[models.Market]models.SourceHealth, len(m.fetchers)),
		PublishedAt: m.now(),
	}

	if prev != nil {
		refreshed := func(market models.Market) bool {
			_, ok := results[market]
			return ok
		}
		for k, q := range prev.Quotes {
			if !refreshed(q.Asset.Market) {
				snap.Quotes[k] = q
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range results {
		for _, q := range res.quotes {
			snap.Quotes[q.Asset.String()] = q
			if !q.Stale {
				m.appendPoint(q)
				m.metrics.RecordLastPrice(q.Asset.String(), q.Price)
			}
		}
	}
	for market, h := range m.health {
		snap.Sources[market] = *h
	}
	return snap
}

// appendPoint grows the asset's accumulated series; caller holds mu.
func (m *Manager) appendPoint(q models.Quote) {
	key := q.Asset.String()
	s := m.series[key].Append(models.PricePoint{
		Timestamp: q.FetchedAt,
		High:      q.High24h,
		Low:       q.Low24h,
		Close:     q.Price,
		Volume:    q.Volume,
	})
	if len(s) > m.cfg.SeriesCap {
		s = s[len(s)-m.cfg.SeriesCap:]
	}
	m.series[key] = s
}

// sink pushes the published snapshot to the optional broker and candle
// store. Both are best-effort; failures are logged, never fatal.
func (m *Manager) sink(ctx context.Context, snap *models.MarketSnapshot, results map[models.Market]fetchResult) {
	if m.publisher != nil {
		if err := m.publisher.PublishSnapshot(ctx, snap); err != nil {
			m.metrics.RecordError("publish")
			m.log.Error("snapshot publish failed", logger.Error(err))
		}
	}
	if m.store == nil {
		return
	}
	var candles []models.Candle
	for _, res := range results {
		for _, q := range res.quotes {
			if q.Stale {
				continue
			}
			candles = append(candles, models.Candle{
				Bucket: q.FetchedAt.UTC().Truncate(time.Hour),
				Market: string(q.Asset.Market),
				Symbol: q.Asset.Symbol,
				High:   q.High24h,
				Low:    q.Low24h,
				Close:  q.Price,
				Volume: q.Volume,
			})
		}
	}
	if len(candles) == 0 {
		return
	}
	if err := m.store.StoreBatch(ctx, candles); err != nil {
		m.metrics.RecordError("candle_store")
		m.log.Error("candle batch store failed", logger.Error(err))
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) notifyWaiters() {
	m.mu.Lock()
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}
}
