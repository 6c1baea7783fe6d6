package strategy

import (
	"TradePulse/internal/domain/models"
)

// assessRisk scores the danger of acting on the signal. Each triggered
// factor is named so the API response explains the grade.
func (e *Engine) assessRisk(ta *models.TechnicalAnalysis) models.RiskAssessment {
	if ta == nil {
		return models.RiskAssessment{Level: models.RiskUnknown}
	}

	var score int
	var factors []string

	if ta.Volatility > e.cfg.VolatilityThreshold {
		score += 2
		factors = append(factors, "high volatility")
	}
	if ta.RSI != nil && (*ta.RSI > 80 || *ta.RSI < 20) {
		score++
		factors = append(factors, "RSI at extreme")
	}
	if b := ta.Bollinger; b != nil && (b.Position > 0.9 || b.Position < 0.1) {
		score++
		factors = append(factors, "price at Bollinger band extreme")
	}
	if v := ta.Volume; v != nil && v.Ratio > 0 && v.Ratio < 0.5 {
		score++
		factors = append(factors, "volume drying up")
	}

	level := models.RiskLow
	switch {
	case score >= 4:
		level = models.RiskHigh
	case score >= 2:
		level = models.RiskMedium
	}
	return models.RiskAssessment{
		Level:      level,
		Score:      score,
		Factors:    factors,
		Volatility: ta.Volatility,
	}
}

// entryExit derives trade levels around price. Buys enter slightly below
// market, sells slightly above; holds anchor at market.
func (e *Engine) entryExit(price float64, signal models.SignalType) models.EntryExit {
	entry := price
	switch signal {
	case models.SignalBuy, models.SignalStrongBuy:
		entry = price * (1 - entryOffset)
	case models.SignalSell, models.SignalStrongSell:
		entry = price * (1 + entryOffset)
	}

	var stop, take float64
	switch signal {
	case models.SignalSell, models.SignalStrongSell:
		stop = entry * (1 + e.cfg.StopLossPct)
		take = entry * (1 - e.cfg.TakeProfitPct)
	default:
		stop = entry * (1 - e.cfg.StopLossPct)
		take = entry * (1 + e.cfg.TakeProfitPct)
	}

	rr := 0.0
	if e.cfg.StopLossPct > 0 {
		rr = e.cfg.TakeProfitPct / e.cfg.StopLossPct
	}
	return models.EntryExit{
		EntryPrice:      entry,
		StopLoss:        stop,
		TakeProfit:      take,
		RiskRewardRatio: rr,
	}
}

const entryOffset = 0.005
