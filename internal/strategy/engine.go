package strategy

import (
	"fmt"
	"strings"
	"time"

	"TradePulse/internal/domain/models"
)

// Config carries the trade-level and risk tunables.
type Config struct {
	StopLossPct         float64
	TakeProfitPct       float64
	VolatilityThreshold float64
}

// Engine combines indicator votes and the optional ML probability into a
// five-level signal with trade levels and a risk grade. Stateless; one
// Engine serves all assets concurrently.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.StopLossPct <= 0 {
		cfg.StopLossPct = 0.05
	}
	if cfg.TakeProfitPct <= 0 {
		cfg.TakeProfitPct = 0.15
	}
	if cfg.VolatilityThreshold <= 0 {
		cfg.VolatilityThreshold = 0.3
	}
	return &Engine{cfg: cfg}
}

// Result is everything Evaluate derives for one asset.
type Result struct {
	Signal    models.Signal
	Votes     []models.IndicatorVote
	EntryExit models.EntryExit
	Risk      models.RiskAssessment
	Reason    string
}

// Evaluate scores one asset. pred is nil when the predictor is
// unavailable; the signal then rests on technical votes alone.
func (e *Engine) Evaluate(asset models.AssetID, price float64, ta *models.TechnicalAnalysis, pred *models.Prediction, now time.Time) Result {
	votes := collectVotes(ta)
	buyScore, sellScore, buyCount, sellCount := tally(votes)

	ml := mlContribution(pred)
	total := buyScore - sellScore + ml

	signalType := classify(total)
	sig := models.Signal{
		Asset:          asset,
		Type:           signalType,
		Confidence:     confidence(total, len(votes)),
		Strength:       abs(total),
		BuyVotes:       buyCount,
		SellVotes:      sellCount,
		MLContribution: ml,
		TotalScore:     total,
		ComputedAt:     now,
	}

	return Result{
		Signal:    sig,
		Votes:     votes,
		EntryExit: e.entryExit(price, signalType),
		Risk:      e.assessRisk(ta),
		Reason:    reason(sig, votes, pred),
	}
}

// mlContribution weights the classifier into the vote total: a decisive
// bullish probability adds two, a lean adds one, anything bearish
// subtracts one.
func mlContribution(pred *models.Prediction) int {
	if pred == nil {
		return 0
	}
	switch {
	case pred.Probability > 0.6:
		return 2
	case pred.Probability > 0.4:
		return 1
	default:
		return -1
	}
}

func classify(total int) models.SignalType {
	switch {
	case total >= 4:
		return models.SignalStrongBuy
	case total >= 2:
		return models.SignalBuy
	case total <= -4:
		return models.SignalStrongSell
	case total <= -2:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}

// confidence grades the signal by score magnitude and by how many
// independent indicators agreed: a large score carried by only one or
// two votes is not high confidence.
func confidence(total, voteCount int) models.Confidence {
	switch {
	case abs(total) >= 4 && voteCount >= 3:
		return models.ConfidenceHigh
	case abs(total) >= 2 && voteCount >= 2:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// reason renders a one-line explanation from the dominant votes and the
// classifier's lean.
func reason(sig models.Signal, votes []models.IndicatorVote, pred *models.Prediction) string {
	var parts []string
	side := models.VoteBuy
	if sig.Type == models.SignalSell || sig.Type == models.SignalStrongSell {
		side = models.VoteSell
	}
	for _, v := range votes {
		if v.Side == side {
			parts = append(parts, v.Reason)
		}
		if len(parts) == 3 {
			break
		}
	}

	switch sig.Type {
	case models.SignalHold:
		if len(votes) == 0 {
			return "no decisive technical signals"
		}
		return "mixed technical signals, no clear direction"
	}

	text := strings.Join(parts, "; ")
	if text == "" {
		text = "model-driven signal"
	}
	if pred != nil {
		text = fmt.Sprintf("%s (model probability %.0f%%)", text, pred.Probability*100)
	}
	return text
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
