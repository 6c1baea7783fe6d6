package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimit is a rolling-window request quota for one upstream source.
type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Refresh struct {
		Tick   time.Duration `yaml:"tick"`
		Crypto time.Duration `yaml:"crypto"`
		Equity time.Duration `yaml:"equity"`
		Fund   time.Duration `yaml:"fund"`
	} `yaml:"refresh"`
	Cache struct {
		DefaultTTL time.Duration `yaml:"default_ttl"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Sources struct {
		Crypto struct {
			BaseURL   string        `yaml:"base_url"`
			Currency  string        `yaml:"currency"`
			PerPage   int           `yaml:"per_page"`
			TopAssets int           `yaml:"top_assets"`
			Timeout   time.Duration `yaml:"timeout"`
			RateLimit RateLimit     `yaml:"rate_limit"`
		} `yaml:"crypto"`
		Equity struct {
			BaseURL   string        `yaml:"base_url"`
			PriceMin  float64       `yaml:"price_min"`
			PriceMax  float64       `yaml:"price_max"`
			TopAssets int           `yaml:"top_assets"`
			Timeout   time.Duration `yaml:"timeout"`
			RateLimit RateLimit     `yaml:"rate_limit"`
		} `yaml:"equity"`
		Fund struct {
			BaseURL   string        `yaml:"base_url"`
			Codes     []string      `yaml:"codes"`
			Timeout   time.Duration `yaml:"timeout"`
			RateLimit RateLimit     `yaml:"rate_limit"`
		} `yaml:"fund"`
	} `yaml:"sources"`
	Indicators struct {
		RSIPeriod       int     `yaml:"rsi_period"`
		MACDFast        int     `yaml:"macd_fast"`
		MACDSlow        int     `yaml:"macd_slow"`
		MACDSignal      int     `yaml:"macd_signal"`
		SMAShort        int     `yaml:"sma_short"`
		SMALong         int     `yaml:"sma_long"`
		EMAShort        int     `yaml:"ema_short"`
		EMALong         int     `yaml:"ema_long"`
		BollingerPeriod int     `yaml:"bollinger_period"`
		BollingerStd    float64 `yaml:"bollinger_std"`
	} `yaml:"indicators"`
	Model struct {
		Horizon      int     `yaml:"horizon"`
		TargetReturn float64 `yaml:"target_return"`
		Lookback     int     `yaml:"lookback"`
		TrainSplit   float64 `yaml:"train_split"`
		RetrainCron  string  `yaml:"retrain_cron"`
		Path         string  `yaml:"path"`
	} `yaml:"model"`
	Risk struct {
		StopLossPct         float64 `yaml:"stop_loss_pct"`
		TakeProfitPct       float64 `yaml:"take_profit_pct"`
		VolatilityThreshold float64 `yaml:"volatility_threshold"`
		VolumeThreshold     float64 `yaml:"volume_threshold"`
	} `yaml:"risk"`
	History struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"history"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FUND_CODES"); v != "" {
		c.Sources.Fund.Codes = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Refresh.Tick == 0 {
		c.Refresh.Tick = 10 * time.Second
	}
	if c.Refresh.Crypto == 0 {
		c.Refresh.Crypto = time.Minute
	}
	if c.Refresh.Equity == 0 {
		c.Refresh.Equity = 5 * time.Minute
	}
	if c.Refresh.Fund == 0 {
		c.Refresh.Fund = 10 * time.Minute
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 5 * time.Minute
	}
	if c.Sources.Crypto.PerPage == 0 {
		c.Sources.Crypto.PerPage = 250
	}
	if c.Sources.Crypto.TopAssets == 0 {
		c.Sources.Crypto.TopAssets = 100
	}
	if c.Sources.Crypto.Currency == "" {
		c.Sources.Crypto.Currency = "usd"
	}
	if c.Sources.Equity.TopAssets == 0 {
		c.Sources.Equity.TopAssets = 100
	}
	if c.Sources.Crypto.RateLimit.Requests == 0 {
		c.Sources.Crypto.RateLimit = RateLimit{Requests: 10, Window: time.Minute}
	}
	if c.Sources.Equity.RateLimit.Requests == 0 {
		c.Sources.Equity.RateLimit = RateLimit{Requests: 30, Window: time.Minute}
	}
	if c.Sources.Fund.RateLimit.Requests == 0 {
		c.Sources.Fund.RateLimit = RateLimit{Requests: 20, Window: time.Minute}
	}
	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if c.Indicators.MACDFast == 0 {
		c.Indicators.MACDFast = 12
	}
	if c.Indicators.MACDSlow == 0 {
		c.Indicators.MACDSlow = 26
	}
	if c.Indicators.MACDSignal == 0 {
		c.Indicators.MACDSignal = 9
	}
	if c.Indicators.SMAShort == 0 {
		c.Indicators.SMAShort = 5
	}
	if c.Indicators.SMALong == 0 {
		c.Indicators.SMALong = 20
	}
	if c.Indicators.EMAShort == 0 {
		c.Indicators.EMAShort = 12
	}
	if c.Indicators.EMALong == 0 {
		c.Indicators.EMALong = 26
	}
	if c.Indicators.BollingerPeriod == 0 {
		c.Indicators.BollingerPeriod = 20
	}
	if c.Indicators.BollingerStd == 0 {
		c.Indicators.BollingerStd = 2
	}
	if c.Model.Horizon == 0 {
		c.Model.Horizon = 3
	}
	if c.Model.TargetReturn == 0 {
		c.Model.TargetReturn = 0.05
	}
	if c.Model.Lookback == 0 {
		c.Model.Lookback = 30
	}
	if c.Model.TrainSplit == 0 {
		c.Model.TrainSplit = 0.8
	}
	if c.Risk.StopLossPct == 0 {
		c.Risk.StopLossPct = 0.05
	}
	if c.Risk.TakeProfitPct == 0 {
		c.Risk.TakeProfitPct = 0.15
	}
	if c.Risk.VolatilityThreshold == 0 {
		c.Risk.VolatilityThreshold = 0.3
	}
	if c.Risk.VolumeThreshold == 0 {
		c.Risk.VolumeThreshold = 1.5
	}
}

// Validate checks if the configuration is valid. Failures here are fatal at
// startup; nothing else in the system treats bad config as recoverable.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	for _, rl := range []struct {
		name string
		rl   RateLimit
	}{
		{"sources.crypto.rate_limit", c.Sources.Crypto.RateLimit},
		{"sources.equity.rate_limit", c.Sources.Equity.RateLimit},
		{"sources.fund.rate_limit", c.Sources.Fund.RateLimit},
	} {
		if rl.rl.Requests <= 0 {
			return fmt.Errorf("%s.requests must be positive", rl.name)
		}
		if rl.rl.Window <= 0 {
			return fmt.Errorf("%s.window must be positive", rl.name)
		}
	}
	if len(c.Sources.Fund.Codes) == 0 {
		return fmt.Errorf("sources.fund.codes cannot be empty")
	}
	if len(c.Sources.Fund.Codes) > 50 {
		return fmt.Errorf("sources.fund.codes is capped at 50 entries, got %d", len(c.Sources.Fund.Codes))
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return fmt.Errorf("indicators.macd_fast must be below macd_slow")
	}
	if c.Model.TrainSplit <= 0 || c.Model.TrainSplit >= 1 {
		return fmt.Errorf("model.train_split must be in (0,1), got %v", c.Model.TrainSplit)
	}
	if c.Risk.StopLossPct >= c.Risk.TakeProfitPct {
		return fmt.Errorf("risk.stop_loss_pct must be below take_profit_pct")
	}
	if c.History.Enabled && c.History.Host == "" {
		return fmt.Errorf("history.host is required when history is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// RateLimitFor returns the configured quota for a source id.
func (c *Config) RateLimitFor(source string) RateLimit {
	switch source {
	case "crypto":
		return c.Sources.Crypto.RateLimit
	case "equity":
		return c.Sources.Equity.RateLimit
	case "fund":
		return c.Sources.Fund.RateLimit
	}
	return RateLimit{Requests: 10, Window: time.Minute}
}
