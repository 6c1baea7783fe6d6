package fetcher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/internal/service/ratelimit"
	phttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

const cryptoSource = "coingecko"

// CryptoConfig carries the tunables for the crypto market source.
type CryptoConfig struct {
	BaseURL   string
	Currency  string
	PerPage   int
	TopAssets int
}

// CryptoFetcher pulls ranked coin quotes and daily history from a
// CoinGecko-compatible REST API.
type CryptoFetcher struct {
	cfg     CryptoConfig
	client  *phttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
	metrics repository.Metrics
}

func NewCryptoFetcher(cfg CryptoConfig, client *phttp.Client, limiter *ratelimit.Limiter, log *logger.Logger, metrics repository.Metrics) *CryptoFetcher {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 50
	}
	if cfg.TopAssets <= 0 {
		cfg.TopAssets = 50
	}
	return &CryptoFetcher{cfg: cfg, client: client, limiter: limiter, log: log, metrics: metrics}
}

func (f *CryptoFetcher) Market() models.Market { return models.MarketCrypto }
func (f *CryptoFetcher) Source() string        { return cryptoSource }

type cgMarketRow struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
	MarketCapRnk int     `json:"market_cap_rank"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	Change24hPct float64 `json:"price_change_percentage_24h"`
	TotalVolume  float64 `json:"total_volume"`
}

// FetchQuotes walks the ranked market pages until TopAssets coins are
// collected. A page failure after the first page returns the partial
// result rather than discarding coins already fetched.
func (f *CryptoFetcher) FetchQuotes(ctx context.Context) ([]models.Quote, error) {
	quotes := make([]models.Quote, 0, f.cfg.TopAssets)
	now := time.Now()

	for page := 1; len(quotes) < f.cfg.TopAssets; page++ {
		rows, err := f.fetchPage(ctx, page)
		if err != nil {
			f.metrics.RecordFetch(cryptoSource, false)
			if page > 1 && len(quotes) > 0 {
				f.log.Warn("crypto page failed, returning partial result",
					logger.Int("page", page),
					logger.Int("quotes", len(quotes)),
					logger.Error(err))
				return quotes, nil
			}
			return nil, fmt.Errorf("crypto quotes page %d: %w", page, err)
		}
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			if len(quotes) >= f.cfg.TopAssets {
				break
			}
			quotes = append(quotes, models.Quote{
				Asset:     models.AssetID{Market: models.MarketCrypto, Symbol: r.ID},
				Name:      r.Name,
				Rank:      r.MarketCapRnk,
				Price:     r.CurrentPrice,
				Change24h: r.Change24hPct,
				High24h:   r.High24h,
				Low24h:    r.Low24h,
				Volume:    r.TotalVolume,
				FetchedAt: now,
			})
		}
		if len(rows) < f.cfg.PerPage {
			break
		}
	}

	f.metrics.RecordFetch(cryptoSource, true)
	return quotes, nil
}

type cgMarketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// FetchHistory pulls the daily close/volume chart for one coin id.
func (f *CryptoFetcher) FetchHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	if days <= 0 {
		days = 90
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	var chart cgMarketChart
	err := f.client.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    fmt.Sprintf("%s/coins/%s/market_chart", f.cfg.BaseURL, symbol),
		QueryParams: map[string][]string{
			"vs_currency": {f.cfg.Currency},
			"days":        {strconv.Itoa(days)},
			"interval":    {"daily"},
		},
	}, &chart)
	if err != nil {
		f.metrics.RecordFetch(cryptoSource, false)
		return nil, fmt.Errorf("crypto history %s: %w", symbol, err)
	}

	volumes := make(map[int64]float64, len(chart.TotalVolumes))
	for _, v := range chart.TotalVolumes {
		volumes[int64(v[0])] = v[1]
	}

	series := make(models.PriceSeries, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		ts := time.UnixMilli(int64(p[0])).UTC()
		series = series.Append(models.PricePoint{
			Timestamp: ts,
			Close:     p[1],
			Volume:    volumes[int64(p[0])],
		})
	}
	f.metrics.RecordFetch(cryptoSource, true)
	return series, nil
}

func (f *CryptoFetcher) fetchPage(ctx context.Context, page int) ([]cgMarketRow, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	var rows []cgMarketRow
	err := f.client.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    f.cfg.BaseURL + "/coins/markets",
		QueryParams: map[string][]string{
			"vs_currency":             {f.cfg.Currency},
			"order":                   {"market_cap_desc"},
			"per_page":                {strconv.Itoa(f.cfg.PerPage)},
			"page":                    {strconv.Itoa(page)},
			"sparkline":               {"false"},
			"price_change_percentage": {"24h"},
		},
	}, &rows)
	return rows, err
}

func (f *CryptoFetcher) wait(ctx context.Context) error {
	if f.limiter.Allow(cryptoSource) {
		return nil
	}
	f.metrics.RecordRateLimited(cryptoSource)
	return f.limiter.Wait(ctx, cryptoSource)
}
