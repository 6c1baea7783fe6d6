package models

import "time"

// SignalType is the five-level trading recommendation.
type SignalType string

const (
	SignalStrongBuy  SignalType = "strong_buy"
	SignalBuy        SignalType = "buy"
	SignalHold       SignalType = "hold"
	SignalSell       SignalType = "sell"
	SignalStrongSell SignalType = "strong_sell"
)

// Confidence buckets a numeric margin into a categorical level.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// RiskLevel grades the risk assessment attached to a signal.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// VoteSide marks the direction of a single indicator vote.
type VoteSide string

const (
	VoteBuy  VoteSide = "buy"
	VoteSell VoteSide = "sell"
)

// IndicatorVote is one directional vote emitted by the technical analysis,
// e.g. "RSI oversold" or "MACD golden cross".
type IndicatorVote struct {
	Side     VoteSide `json:"side"`
	Reason   string   `json:"reason"`
	Strength string   `json:"strength"` // "strong" or "medium"
}

// MACDState is the latest MACD reading plus cross events between the last
// two computed points.
type MACDState struct {
	MACD        float64 `json:"macd"`
	Signal      float64 `json:"signal"`
	Histogram   float64 `json:"histogram"`
	GoldenCross bool    `json:"golden_cross"`
	DeathCross  bool    `json:"death_cross"`
}

// BollingerState is the latest band values and the price position within
// the band, 0 at the lower band and 1 at the upper.
type BollingerState struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Position float64 `json:"position"`
}

// MAState carries the short/long moving averages and price ratios.
type MAState struct {
	SMA5         float64 `json:"sma_5"`
	SMA20        float64 `json:"sma_20"`
	PriceVsSMA5  float64 `json:"price_vs_sma5"`
	PriceVsSMA20 float64 `json:"price_vs_sma20"`
}

// VolumeState summarizes current volume against its rolling average.
type VolumeState struct {
	Average  float64 `json:"avg_volume"`
	Current  float64 `json:"current_volume"`
	Ratio    float64 `json:"volume_ratio"`
	Abnormal bool    `json:"is_abnormal"`
}

// TechnicalAnalysis is the indicator bundle computed for one asset. Nil
// sub-structs mean the underlying series was too short for that indicator.
type TechnicalAnalysis struct {
	RSI            *float64        `json:"rsi,omitempty"`
	MACD           *MACDState      `json:"macd,omitempty"`
	Bollinger      *BollingerState `json:"bollinger_bands,omitempty"`
	MovingAverages *MAState        `json:"moving_averages,omitempty"`
	Volume         *VolumeState    `json:"volume,omitempty"`
	PriceChangePct *float64        `json:"price_change_pct,omitempty"`
	Volatility     float64         `json:"volatility"`
	PatternSignal  string          `json:"pattern_signal,omitempty"` // "bullish", "bearish", "neutral"
	Votes          []IndicatorVote `json:"signals"`
}

// Prediction is the classifier output for one asset. Absent entirely when
// the predictor is untrained or lacks history (never fabricated).
type Prediction struct {
	Probability    float64            `json:"probability"`
	Bucket         Confidence         `json:"confidence"`
	FeatureWeights map[string]float64 `json:"feature_importance,omitempty"`
}

// EntryExit holds the suggested trade levels around the current price.
type EntryExit struct {
	EntryPrice      float64 `json:"entry_price"`
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

// RiskAssessment grades the qualitative risk of acting on a signal.
type RiskAssessment struct {
	Level      RiskLevel `json:"level"`
	Score      int       `json:"score"`
	Factors    []string  `json:"factors"`
	Volatility float64   `json:"volatility"`
}

// Signal is the discrete recommendation derived for one asset. It is
// recomputed per request; never mutated in place.
type Signal struct {
	Asset          AssetID    `json:"asset_id"`
	Type           SignalType `json:"type"`
	Confidence     Confidence `json:"confidence"`
	Strength       int        `json:"strength"`
	BuyVotes       int        `json:"buy_signals_count"`
	SellVotes      int        `json:"sell_signals_count"`
	MLContribution int        `json:"ml_contribution"`
	TotalScore     int        `json:"total_score"`
	ComputedAt     time.Time  `json:"computed_at"`
}

// Analysis is the full per-asset result served by the asset-analysis
// endpoint: signal, indicator detail, optional ML prediction, trade levels
// and risk.
type Analysis struct {
	Asset        AssetID           `json:"asset_info"`
	Name         string            `json:"name"`
	CurrentPrice float64           `json:"current_price"`
	Signal       Signal            `json:"signal"`
	Technical    TechnicalAnalysis `json:"technical_analysis"`
	ML           *Prediction       `json:"ml_prediction,omitempty"`
	EntryExit    EntryExit         `json:"entry_exit_points"`
	Risk         RiskAssessment    `json:"risk_assessment"`
	Reason       string            `json:"recommendation_reason"`
	AnalysisTime time.Time         `json:"analysis_time"`
}
