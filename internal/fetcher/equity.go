package fetcher

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/internal/service/ratelimit"
	phttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

const equitySource = "eastmoney"

// EquityConfig carries the tunables for the A-share market source.
type EquityConfig struct {
	BaseURL   string
	PriceMin  float64
	PriceMax  float64
	TopAssets int
}

// EquityFetcher pulls the full exchange quote table in one call per
// cycle and ranks it locally, the cheapest way to track movers without
// per-symbol polling.
type EquityFetcher struct {
	cfg     EquityConfig
	client  *phttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
	metrics repository.Metrics
}

func NewEquityFetcher(cfg EquityConfig, client *phttp.Client, limiter *ratelimit.Limiter, log *logger.Logger, metrics repository.Metrics) *EquityFetcher {
	if cfg.TopAssets <= 0 {
		cfg.TopAssets = 50
	}
	if cfg.PriceMax <= 0 {
		cfg.PriceMax = 300
	}
	return &EquityFetcher{cfg: cfg, client: client, limiter: limiter, log: log, metrics: metrics}
}

func (f *EquityFetcher) Market() models.Market { return models.MarketEquity }
func (f *EquityFetcher) Source() string        { return equitySource }

// num tolerates the quote table's "-" placeholder for suspended stocks.
type num float64

func (n *num) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "-" || s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = num(v)
	return nil
}

type emQuoteRow struct {
	Price     num    `json:"f2"`
	ChangePct num    `json:"f3"`
	Volume    num    `json:"f5"`
	Code      string `json:"f12"`
	Name      string `json:"f14"`
	High      num    `json:"f15"`
	Low       num    `json:"f16"`
}

type emQuoteTable struct {
	Data struct {
		Total int          `json:"total"`
		Diff  []emQuoteRow `json:"diff"`
	} `json:"data"`
}

// FetchQuotes downloads the ranked quote table, drops rows outside the
// configured price band and keeps the TopAssets biggest gainers.
func (f *EquityFetcher) FetchQuotes(ctx context.Context) ([]models.Quote, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	// Over-fetch so the band filter still leaves TopAssets rows.
	pageSize := f.cfg.TopAssets * 4
	var table emQuoteTable
	err := f.client.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    f.cfg.BaseURL + "/api/qt/clist/get",
		QueryParams: map[string][]string{
			"pn":     {"1"},
			"pz":     {strconv.Itoa(pageSize)},
			"po":     {"1"},
			"fltt":   {"2"},
			"fid":    {"f3"}, // order by 24h change
			"fs":     {"m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23"},
			"fields": {"f2,f3,f5,f12,f14,f15,f16"},
		},
	}, &table)
	if err != nil {
		f.metrics.RecordFetch(equitySource, false)
		return nil, fmt.Errorf("equity quotes: %w", err)
	}

	now := time.Now()
	quotes := make([]models.Quote, 0, f.cfg.TopAssets)
	for _, r := range table.Data.Diff {
		price := float64(r.Price)
		if price < f.cfg.PriceMin || price > f.cfg.PriceMax {
			continue
		}
		quotes = append(quotes, models.Quote{
			Asset:     models.AssetID{Market: models.MarketEquity, Symbol: r.Code},
			Name:      r.Name,
			Price:     price,
			Change24h: float64(r.ChangePct),
			High24h:   float64(r.High),
			Low24h:    float64(r.Low),
			Volume:    float64(r.Volume),
			FetchedAt: now,
		})
		if len(quotes) == f.cfg.TopAssets {
			break
		}
	}

	sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].Change24h > quotes[j].Change24h })
	for i := range quotes {
		quotes[i].Rank = i + 1
	}

	f.metrics.RecordFetch(equitySource, true)
	return quotes, nil
}

type emKlines struct {
	Data struct {
		Klines []string `json:"klines"`
	} `json:"data"`
}

// FetchHistory pulls daily candles for one stock code. Each kline row is
// "date,open,close,high,low,volume,...".
func (f *EquityFetcher) FetchHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	if days <= 0 {
		days = 90
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	var resp emKlines
	err := f.client.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    f.cfg.BaseURL + "/api/qt/stock/kline/get",
		QueryParams: map[string][]string{
			"secid":  {secID(symbol)},
			"klt":    {"101"}, // daily bars
			"fqt":    {"1"},
			"lmt":    {strconv.Itoa(days)},
			"end":    {"20500101"},
			"fields": {"f51,f52,f53,f54,f55,f56"},
		},
	}, &resp)
	if err != nil {
		f.metrics.RecordFetch(equitySource, false)
		return nil, fmt.Errorf("equity history %s: %w", symbol, err)
	}

	series := make(models.PriceSeries, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		parts := strings.Split(line, ",")
		if len(parts) < 6 {
			continue
		}
		ts, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			continue
		}
		open, _ := strconv.ParseFloat(parts[1], 64)
		cl, _ := strconv.ParseFloat(parts[2], 64)
		high, _ := strconv.ParseFloat(parts[3], 64)
		low, _ := strconv.ParseFloat(parts[4], 64)
		vol, _ := strconv.ParseFloat(parts[5], 64)
		series = series.Append(models.PricePoint{
			Timestamp: ts.UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     cl,
			Volume:    vol,
		})
	}
	f.metrics.RecordFetch(equitySource, true)
	return series, nil
}

// secID maps a bare stock code to the exchange-prefixed id the kline
// endpoint expects: Shanghai codes start with 6, the rest are Shenzhen.
func secID(code string) string {
	if strings.HasPrefix(code, "6") {
		return "1." + code
	}
	return "0." + code
}

func (f *EquityFetcher) wait(ctx context.Context) error {
	if f.limiter.Allow(equitySource) {
		return nil
	}
	f.metrics.RecordRateLimited(equitySource)
	return f.limiter.Wait(ctx, equitySource)
}
