package di

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/internal/fetcher"
	"TradePulse/internal/handler/api"
	"TradePulse/internal/indicator"
	"TradePulse/internal/manager"
	"TradePulse/internal/predictor"
	internalrepo "TradePulse/internal/repository"
	"TradePulse/internal/service/cache"
	"TradePulse/internal/service/ratelimit"
	"TradePulse/internal/strategy"
	"TradePulse/internal/usecase"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
	"TradePulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLimiter builds the per-source rate limiter from config quotas.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	l := ratelimit.New(ratelimit.Quota{Requests: 10, Window: time.Minute})
	for source, market := range map[string]string{
		"coingecko": "crypto",
		"eastmoney": "equity",
		"fundgz":    "fund",
	} {
		rl := cfg.RateLimitFor(market)
		l.Configure(source, ratelimit.Quota{Requests: rl.Requests, Window: rl.Window})
	}
	return l
}

// ProvideCache creates the shared in-memory TTL cache.
func ProvideCache(cfg *config.Config) cache.Store {
	return cache.NewTTLCache()
}

// ProvideFetchers builds one polled adapter per market.
func ProvideFetchers(cfg *config.Config, limiter *ratelimit.Limiter, log *logger.Logger, m repository.Metrics) []fetcher.Fetcher {
	const ua = "TradePulse/1.0"

	cryptoClient := xhttp.NewClient(xhttp.WithTimeout(cfg.Sources.Crypto.Timeout), xhttp.WithUserAgent(ua))
	equityClient := xhttp.NewClient(xhttp.WithTimeout(cfg.Sources.Equity.Timeout), xhttp.WithUserAgent(ua))
	fundClient := xhttp.NewClient(xhttp.WithTimeout(cfg.Sources.Fund.Timeout), xhttp.WithUserAgent(ua))

	return []fetcher.Fetcher{
		fetcher.NewCryptoFetcher(fetcher.CryptoConfig{
			BaseURL:   cfg.Sources.Crypto.BaseURL,
			Currency:  cfg.Sources.Crypto.Currency,
			PerPage:   cfg.Sources.Crypto.PerPage,
			TopAssets: cfg.Sources.Crypto.TopAssets,
		}, cryptoClient, limiter, log, m),
		fetcher.NewEquityFetcher(fetcher.EquityConfig{
			BaseURL:   cfg.Sources.Equity.BaseURL,
			PriceMin:  cfg.Sources.Equity.PriceMin,
			PriceMax:  cfg.Sources.Equity.PriceMax,
			TopAssets: cfg.Sources.Equity.TopAssets,
		}, equityClient, limiter, log, m),
		fetcher.NewFundFetcher(fetcher.FundConfig{
			BaseURL: cfg.Sources.Fund.BaseURL,
			Codes:   cfg.Sources.Fund.Codes,
		}, fundClient, limiter, log, m),
	}
}

// ProvideCandleStore creates the ClickHouse-backed history store, nil
// when history persistence is disabled.
func ProvideCandleStore(cfg *config.Config, log *logger.Logger) (repository.CandleStore, *pkgch.Client, error) {
	if !cfg.History.Enabled {
		return nil, nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.History.Host),
		pkgch.WithPort(cfg.History.Port),
		pkgch.WithDatabase(cfg.History.Database),
		pkgch.WithCredentials(cfg.History.User, cfg.History.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.History.UseHTTP),
		pkgch.WithAsyncInsert(cfg.History.AsyncInsert, cfg.History.WaitForAsync),
		pkgch.WithTimeouts(cfg.History.DialTimeout, cfg.History.ReadTimeout, cfg.History.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.History.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	store := internalrepo.NewCHCandleStore(client, log)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("candle schema: %w", err)
	}
	return store, client, nil
}

// ProvidePublisher assembles the snapshot sinks: Kafka when enabled,
// Redis persistence when enabled, both behind one fanout. The Redis
// store doubles as the boot-time snapshot loader. Both returns are nil
// when the matching sink is not configured.
func ProvidePublisher(cfg *config.Config) (repository.SignalPublisher, repository.SnapshotLoader, error) {
	var sinks internalrepo.FanoutPublisher
	var loader repository.SnapshotLoader

	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
			pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
			pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic))
	}

	if cfg.Cache.Redis.Enabled {
		rc := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		rs := internalrepo.NewRedisSnapshotStore(rc)
		sinks = append(sinks, rs)
		loader = rs
	}

	if len(sinks) == 0 {
		return nil, nil, nil
	}
	return sinks, loader, nil
}

// ProvideManager assembles the refresh loop, seeding its first snapshot
// from the persisted copy when one is available.
func ProvideManager(cfg *config.Config, fetchers []fetcher.Fetcher, store cache.Store, log *logger.Logger, m repository.Metrics, pub repository.SignalPublisher, loader repository.SnapshotLoader, candles repository.CandleStore) *manager.Manager {
	mcfg := manager.Config{
		Tick: cfg.Refresh.Tick,
		Intervals: map[models.Market]time.Duration{
			models.MarketCrypto: cfg.Refresh.Crypto,
			models.MarketEquity: cfg.Refresh.Equity,
			models.MarketFund:   cfg.Refresh.Fund,
		},
		CacheTTL:    cfg.Cache.DefaultTTL,
		HistoryDays: cfg.Model.Lookback,
	}
	var opts []manager.Option
	if pub != nil {
		opts = append(opts, manager.WithPublisher(pub))
	}
	if candles != nil {
		opts = append(opts, manager.WithCandleStore(candles))
	}
	mgr := manager.New(mcfg, fetchers, store, log, m, opts...)

	if loader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if snap, err := loader.Load(ctx); err != nil {
			log.Warn("persisted snapshot load failed", logger.Error(err))
		} else {
			mgr.Seed(snap)
		}
	}
	return mgr
}

// ProvideIndicatorEngine builds the shared indicator engine.
func ProvideIndicatorEngine(cfg *config.Config) *indicator.Engine {
	return indicator.NewEngine(indicator.Params{
		RSIPeriod:       cfg.Indicators.RSIPeriod,
		MACDFast:        cfg.Indicators.MACDFast,
		MACDSlow:        cfg.Indicators.MACDSlow,
		MACDSignal:      cfg.Indicators.MACDSignal,
		SMAShort:        cfg.Indicators.SMAShort,
		SMALong:         cfg.Indicators.SMALong,
		EMAShort:        cfg.Indicators.EMAShort,
		EMALong:         cfg.Indicators.EMALong,
		BollingerPeriod: cfg.Indicators.BollingerPeriod,
		BollingerStd:    cfg.Indicators.BollingerStd,
	}, cfg.Risk.VolumeThreshold)
}

// ProvidePredictor builds the return classifier, loading a persisted
// model when one exists.
func ProvidePredictor(cfg *config.Config, engine *indicator.Engine, log *logger.Logger) *predictor.Service {
	return predictor.New(predictor.Config{
		Params:       engine.Params(),
		Horizon:      cfg.Model.Horizon,
		TargetReturn: cfg.Model.TargetReturn,
		TrainSplit:   cfg.Model.TrainSplit,
		Path:         cfg.Model.Path,
	}, log)
}

// ProvideStrategy builds the signal engine.
func ProvideStrategy(cfg *config.Config) *strategy.Engine {
	return strategy.NewEngine(strategy.Config{
		StopLossPct:         cfg.Risk.StopLossPct,
		TakeProfitPct:       cfg.Risk.TakeProfitPct,
		VolatilityThreshold: cfg.Risk.VolatilityThreshold,
	})
}

// ProvideAnalyzer composes the per-asset analysis use case.
func ProvideAnalyzer(mgr *manager.Manager, engine *indicator.Engine, pred *predictor.Service, strat *strategy.Engine, candles repository.CandleStore, log *logger.Logger) *usecase.AnalyzerUseCase {
	var opts []usecase.AnalyzerOption
	if candles != nil {
		opts = append(opts, usecase.WithCandleStore(candles))
	}
	return usecase.NewAnalyzerUseCase(mgr, engine, pred, pred, strat, log, opts...)
}

// ProvideRetrainer schedules model retraining; nil without a cron spec.
func ProvideRetrainer(cfg *config.Config, pred *predictor.Service, analyzer *usecase.AnalyzerUseCase, log *logger.Logger) *predictor.Retrainer {
	if cfg.Model.RetrainCron == "" {
		return nil
	}
	return predictor.NewRetrainer(pred, analyzer.TrainingSeries, log)
}

// ProvideRouter wires every handler behind one route registrar.
func ProvideRouter(log *logger.Logger, mgr *manager.Manager, analyzer *usecase.AnalyzerUseCase, candles repository.CandleStore) xhttp.Handler {
	market := usecase.NewMarketUseCase(mgr)
	return api.NewRouter(
		api.NewMarketHandler(log, market),
		api.NewAnalysisHandler(log, analyzer),
		mgr,
		candles,
	)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, log *logger.Logger, mgr *manager.Manager, retrainer *predictor.Retrainer, handler xhttp.Handler, closers []server.Closer) *server.App {
	return server.New(cfg, log, mgr, retrainer, handler, closers...)
}
