package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/internal/service/ratelimit"
	phttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

const fundSource = "fundgz"

// FundConfig carries the tracked open-fund codes.
type FundConfig struct {
	BaseURL string
	Codes   []string
}

// FundFetcher polls the per-code NAV estimate endpoint. The upstream
// wraps JSON in a jsonpgz(...) callback and has no history API, so
// history accumulates from repeated quote cycles.
type FundFetcher struct {
	cfg     FundConfig
	client  *phttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
	metrics repository.Metrics
}

func NewFundFetcher(cfg FundConfig, client *phttp.Client, limiter *ratelimit.Limiter, log *logger.Logger, metrics repository.Metrics) *FundFetcher {
	return &FundFetcher{cfg: cfg, client: client, limiter: limiter, log: log, metrics: metrics}
}

func (f *FundFetcher) Market() models.Market { return models.MarketFund }
func (f *FundFetcher) Source() string        { return fundSource }

type fundEstimate struct {
	Code      string `json:"fundcode"`
	Name      string `json:"name"`
	NavDate   string `json:"jzrq"`
	Nav       string `json:"dwjz"`  // last published NAV
	Estimate  string `json:"gsz"`   // intraday estimated NAV
	ChangePct string `json:"gszzl"` // estimated change percent
	EstTime   string `json:"gztime"`
}

// FetchQuotes walks the configured code pool. A single bad code is
// logged and skipped; the call fails only when every code fails.
func (f *FundFetcher) FetchQuotes(ctx context.Context) ([]models.Quote, error) {
	now := time.Now()
	quotes := make([]models.Quote, 0, len(f.cfg.Codes))
	var lastErr error

	for i, code := range f.cfg.Codes {
		est, err := f.fetchOne(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return quotes, ctx.Err()
			}
			lastErr = err
			f.log.Warn("fund code fetch failed", logger.String("code", code), logger.Error(err))
			continue
		}
		price, _ := strconv.ParseFloat(est.Estimate, 64)
		if price == 0 {
			price, _ = strconv.ParseFloat(est.Nav, 64)
		}
		change, _ := strconv.ParseFloat(est.ChangePct, 64)
		quotes = append(quotes, models.Quote{
			Asset:     models.AssetID{Market: models.MarketFund, Symbol: est.Code},
			Name:      est.Name,
			Rank:      i + 1,
			Price:     price,
			Change24h: change,
			FetchedAt: now,
		})
	}

	if len(quotes) == 0 {
		f.metrics.RecordFetch(fundSource, false)
		if lastErr == nil {
			lastErr = fmt.Errorf("no fund codes configured")
		}
		return nil, fmt.Errorf("fund quotes: %w", lastErr)
	}
	f.metrics.RecordFetch(fundSource, true)
	return quotes, nil
}

// FetchHistory is not available upstream; NAV series build up from
// successive quote cycles instead.
func (f *FundFetcher) FetchHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	return nil, ErrHistoryUnsupported
}

func (f *FundFetcher) fetchOne(ctx context.Context, code string) (*fundEstimate, error) {
	if !f.limiter.Allow(fundSource) {
		f.metrics.RecordRateLimited(fundSource)
		if err := f.limiter.Wait(ctx, fundSource); err != nil {
			return nil, err
		}
	}

	var raw []byte
	err := f.client.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    fmt.Sprintf("%s/js/%s.js", f.cfg.BaseURL, code),
		QueryParams: map[string][]string{
			"rt": {strconv.FormatInt(time.Now().UnixMilli(), 10)},
		},
	}, &raw)
	if err != nil {
		return nil, err
	}
	return parseJSONP(raw)
}

// parseJSONP unwraps the jsonpgz(...) envelope around the estimate JSON.
func parseJSONP(raw []byte) (*fundEstimate, error) {
	s := strings.TrimSpace(string(raw))
	open := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")
	if open < 0 || end <= open {
		return nil, fmt.Errorf("malformed jsonp payload")
	}
	var est fundEstimate
	if err := json.Unmarshal([]byte(s[open+1:end]), &est); err != nil {
		return nil, fmt.Errorf("decode fund estimate: %w", err)
	}
	if est.Code == "" {
		return nil, fmt.Errorf("empty fund estimate")
	}
	return &est, nil
}
