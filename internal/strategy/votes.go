package strategy

import (
	"TradePulse/internal/domain/models"
)

const (
	strengthStrong = "strong"
	strengthMedium = "medium"
)

// Percent-change vote thresholds. A move past pctStrong is decisive on
// its own; past pctMild it only counts when no extreme indicator reads
// against it.
const (
	pctMild   = 0.02
	pctStrong = 0.05
)

// collectVotes turns the indicator bundle into directional votes. Each
// vote carries a human-readable reason that later feeds the
// recommendation text.
func collectVotes(ta *models.TechnicalAnalysis) []models.IndicatorVote {
	if ta == nil {
		return nil
	}
	var votes []models.IndicatorVote
	add := func(side models.VoteSide, reason, strength string) {
		votes = append(votes, models.IndicatorVote{Side: side, Reason: reason, Strength: strength})
	}

	if c := ta.PriceChangePct; c != nil {
		switch {
		case *c >= pctStrong:
			add(models.VoteBuy, "strong recent uptrend", strengthStrong)
		case *c <= -pctStrong:
			add(models.VoteSell, "strong recent downtrend", strengthStrong)
		case *c >= pctMild && !opposed(ta, models.VoteBuy):
			add(models.VoteBuy, "recent uptrend", strengthMedium)
		case *c <= -pctMild && !opposed(ta, models.VoteSell):
			add(models.VoteSell, "recent downtrend", strengthMedium)
		}
	}

	if ta.RSI != nil {
		switch {
		case *ta.RSI < 30:
			add(models.VoteBuy, "RSI oversold", strengthMedium)
		case *ta.RSI > 70:
			add(models.VoteSell, "RSI overbought", strengthMedium)
		}
	}

	if m := ta.MACD; m != nil {
		switch {
		case m.MACD > m.Signal && m.Histogram > 0:
			add(models.VoteBuy, "MACD golden cross", strengthStrong)
		case m.MACD < m.Signal && m.Histogram < 0:
			add(models.VoteSell, "MACD death cross", strengthStrong)
		}
	}

	if ma := ta.MovingAverages; ma != nil {
		switch {
		case ma.PriceVsSMA5 > 0 && ma.SMA5 > ma.SMA20:
			add(models.VoteBuy, "price above rising moving averages", strengthMedium)
		case ma.PriceVsSMA5 < 0 && ma.SMA5 < ma.SMA20:
			add(models.VoteSell, "price below falling moving averages", strengthMedium)
		}
	}

	if b := ta.Bollinger; b != nil {
		switch {
		case b.Position <= 0:
			add(models.VoteBuy, "price at lower Bollinger band", strengthMedium)
		case b.Position >= 1:
			add(models.VoteSell, "price at upper Bollinger band", strengthMedium)
		}
	}

	if v := ta.Volume; v != nil && v.Abnormal && v.Ratio > 2 {
		add(models.VoteBuy, "abnormal volume surge", strengthMedium)
	}

	switch ta.PatternSignal {
	case "bullish":
		add(models.VoteBuy, "bullish candlestick pattern", strengthMedium)
	case "bearish":
		add(models.VoteSell, "bearish candlestick pattern", strengthMedium)
	}

	return votes
}

// opposed reports an extreme RSI or a decisive MACD cross reading
// against side. Such readings suppress a mild percent-change vote.
func opposed(ta *models.TechnicalAnalysis, side models.VoteSide) bool {
	if ta.RSI != nil {
		if side == models.VoteBuy && *ta.RSI > 70 {
			return true
		}
		if side == models.VoteSell && *ta.RSI < 30 {
			return true
		}
	}
	if m := ta.MACD; m != nil {
		if side == models.VoteBuy && m.MACD < m.Signal && m.Histogram < 0 {
			return true
		}
		if side == models.VoteSell && m.MACD > m.Signal && m.Histogram > 0 {
			return true
		}
	}
	return false
}

// tally sums vote weights: strong counts two, medium one.
func tally(votes []models.IndicatorVote) (buyScore, sellScore, buyCount, sellCount int) {
	for _, v := range votes {
		w := 1
		if v.Strength == strengthStrong {
			w = 2
		}
		if v.Side == models.VoteBuy {
			buyScore += w
			buyCount++
		} else {
			sellScore += w
			sellCount++
		}
	}
	return buyScore, sellScore, buyCount, sellCount
}
