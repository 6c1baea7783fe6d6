package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/internal/domain/service"
	"TradePulse/internal/indicator"
	"TradePulse/internal/manager"
	"TradePulse/internal/predictor"
	"TradePulse/internal/strategy"
	"TradePulse/pkg/logger"
)

// AnalyzerUseCase composes history, indicators, the classifier and the
// strategy engine into the per-asset analysis the API serves.
type AnalyzerUseCase struct {
	mgr       *manager.Manager
	engine    *indicator.Engine
	pred      service.Predictor
	trainable service.Trainable
	strat     *strategy.Engine
	store     repository.CandleStore // optional training history
	log       *logger.Logger

	historyDays int
	trainMarket models.Market
	trainClimit int
}

type AnalyzerOption func(*AnalyzerUseCase)

// WithCandleStore lets training pull persisted history instead of only
// the in-memory series.
func WithCandleStore(store repository.CandleStore) AnalyzerOption {
	return func(uc *AnalyzerUseCase) { uc.store = store }
}

func NewAnalyzerUseCase(mgr *manager.Manager, engine *indicator.Engine, pred service.Predictor, trainable service.Trainable, strat *strategy.Engine, log *logger.Logger, opts ...AnalyzerOption) *AnalyzerUseCase {
	uc := &AnalyzerUseCase{
		mgr:         mgr,
		engine:      engine,
		pred:        pred,
		trainable:   trainable,
		strat:       strat,
		log:         log,
		historyDays: 90,
		trainMarket: models.MarketCrypto,
		trainClimit: 20,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Analyze builds the full analysis for one tracked asset. days bounds
// the history window, 0 meaning the default. A series too short for
// indicators degrades to a hold signal rather than failing; an
// untracked asset is an error.
func (uc *AnalyzerUseCase) Analyze(ctx context.Context, marketName, symbol string, days int) (*models.Analysis, error) {
	market, ok := models.ParseMarket(marketName)
	if !ok {
		return nil, ErrUnknownMarket
	}
	snap := uc.mgr.Latest()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	id := models.AssetID{Market: market, Symbol: symbol}
	quote, ok := snap.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}

	if days <= 0 {
		days = uc.historyDays
	}
	series := uc.historySeries(ctx, id, days)

	now := time.Now()
	analysis := &models.Analysis{
		Asset:        id,
		Name:         quote.Name,
		CurrentPrice: quote.Price,
		AnalysisTime: now,
	}

	ta, taErr := uc.engine.Compute(series, quote.Price)
	if taErr != nil {
		// not enough bars for any indicator: serve a degraded hold
		analysis.Signal = models.Signal{
			Asset:      id,
			Type:       models.SignalHold,
			Confidence: models.ConfidenceLow,
			ComputedAt: now,
		}
		analysis.Risk = models.RiskAssessment{Level: models.RiskUnknown}
		analysis.Reason = "insufficient price history for technical analysis"
		return analysis, nil
	}

	var pred *models.Prediction
	if p, err := uc.pred.Predict(ctx, series); err == nil {
		pred = &p
	} else if !errors.Is(err, predictor.ErrUnavailable) {
		uc.log.Warn("prediction failed", logger.String("asset", id.String()), logger.Error(err))
	}

	res := uc.strat.Evaluate(id, quote.Price, &ta, pred, now)
	ta.Votes = res.Votes

	analysis.Signal = res.Signal
	analysis.Technical = ta
	analysis.ML = pred
	analysis.EntryExit = res.EntryExit
	analysis.Risk = res.Risk
	analysis.Reason = res.Reason
	return analysis, nil
}

// Train fits the classifier on history for the top assets of one market.
func (uc *AnalyzerUseCase) Train(ctx context.Context, marketName string, limit int) (service.TrainReport, error) {
	market, ok := models.ParseMarket(marketName)
	if !ok {
		return service.TrainReport{}, ErrUnknownMarket
	}
	history, err := uc.trainingSeries(ctx, market, limit)
	if err != nil {
		return service.TrainReport{}, err
	}
	return uc.trainable.Train(ctx, history)
}

// TrainingSeries supplies the scheduled retrainer's corpus from the
// default training market.
func (uc *AnalyzerUseCase) TrainingSeries(ctx context.Context) ([]models.PriceSeries, error) {
	return uc.trainingSeries(ctx, uc.trainMarket, uc.trainClimit)
}

func (uc *AnalyzerUseCase) trainingSeries(ctx context.Context, market models.Market, limit int) ([]models.PriceSeries, error) {
	snap := uc.mgr.Latest()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	quotes := snap.ByMarket(market)
	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no tracked assets in market %q", market)
	}

	var history []models.PriceSeries
	for _, q := range quotes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series := uc.seriesFor(ctx, q.Asset)
		if len(series) > 0 {
			history = append(history, series)
		}
	}
	if len(history) == 0 {
		return nil, errors.New("no usable history for training")
	}
	return history, nil
}

// historySeries serves the analysis window: persisted candles bounded to
// the requested range when the store holds enough of them, otherwise the
// live history pull.
func (uc *AnalyzerUseCase) historySeries(ctx context.Context, id models.AssetID, days int) models.PriceSeries {
	if uc.store != nil {
		to := time.Now()
		from := to.AddDate(0, 0, -days)
		candles, err := uc.store.GetCandles(ctx, string(id.Market), id.Symbol, from, to)
		if err == nil && len(candles) >= predictor.MinHistory {
			return candlesToSeries(candles)
		}
	}
	series, err := uc.mgr.History(ctx, id, days)
	if err != nil {
		uc.log.Warn("history unavailable for analysis",
			logger.String("asset", id.String()), logger.Error(err))
	}
	return series
}

// seriesFor prefers persisted candles over the live history pull so a
// restart does not wipe the training corpus.
func (uc *AnalyzerUseCase) seriesFor(ctx context.Context, id models.AssetID) models.PriceSeries {
	if uc.store != nil {
		candles, err := uc.store.GetLatestNCandles(ctx, string(id.Market), id.Symbol, uc.historyDays*24)
		if err == nil && len(candles) >= predictor.MinHistory {
			return candlesToSeries(candles)
		}
	}
	series, err := uc.mgr.History(ctx, id, uc.historyDays)
	if err != nil {
		uc.log.Warn("training history unavailable",
			logger.String("asset", id.String()), logger.Error(err))
		return nil
	}
	return series
}

func candlesToSeries(candles []models.Candle) models.PriceSeries {
	series := make(models.PriceSeries, 0, len(candles))
	for _, c := range candles {
		series = series.Append(models.PricePoint{
			Timestamp: c.Bucket,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	return series
}
