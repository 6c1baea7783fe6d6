package strategy

import (
	"math"
	"strings"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/indicator"
)

func f64(v float64) *float64 { return &v }

func btc() models.AssetID {
	return models.AssetID{Market: models.MarketCrypto, Symbol: "bitcoin"}
}

func bullishTA() *models.TechnicalAnalysis {
	return &models.TechnicalAnalysis{
		RSI:  f64(25),
		MACD: &models.MACDState{MACD: 1.2, Signal: 0.8, Histogram: 0.4},
		MovingAverages: &models.MAState{
			SMA5: 105, SMA20: 100, PriceVsSMA5: 0.02, PriceVsSMA20: 0.07,
		},
		Bollinger:     &models.BollingerState{Position: 0},
		PatternSignal: "bullish",
	}
}

func bearishTA() *models.TechnicalAnalysis {
	return &models.TechnicalAnalysis{
		RSI:  f64(82),
		MACD: &models.MACDState{MACD: -1.2, Signal: -0.8, Histogram: -0.4},
		MovingAverages: &models.MAState{
			SMA5: 95, SMA20: 100, PriceVsSMA5: -0.02, PriceVsSMA20: -0.07,
		},
		Bollinger:     &models.BollingerState{Position: 1},
		PatternSignal: "bearish",
	}
}

func TestEvaluateStrongBuy(t *testing.T) {
	e := NewEngine(Config{})
	res := e.Evaluate(btc(), 100, bullishTA(), nil, time.Now())

	if res.Signal.Type != models.SignalStrongBuy {
		t.Fatalf("signal = %q, want strong_buy", res.Signal.Type)
	}
	if res.Signal.Confidence != models.ConfidenceHigh {
		t.Fatalf("confidence = %q, want high", res.Signal.Confidence)
	}
	if res.Signal.SellVotes != 0 {
		t.Fatalf("sell votes = %d, want 0", res.Signal.SellVotes)
	}
}

func TestEvaluateStrongSell(t *testing.T) {
	e := NewEngine(Config{})
	asset := models.AssetID{Market: models.MarketEquity, Symbol: "600519"}
	res := e.Evaluate(asset, 100, bearishTA(), nil, time.Now())

	if res.Signal.Type != models.SignalStrongSell {
		t.Fatalf("signal = %q, want strong_sell", res.Signal.Type)
	}
	if res.Signal.BuyVotes != 0 {
		t.Fatalf("buy votes = %d, want 0", res.Signal.BuyVotes)
	}
}

func TestEvaluateNoIndicatorsHolds(t *testing.T) {
	e := NewEngine(Config{})
	res := e.Evaluate(btc(), 100, nil, nil, time.Now())

	if res.Signal.Type != models.SignalHold {
		t.Fatalf("signal = %q, want hold", res.Signal.Type)
	}
	if res.Reason != "no decisive technical signals" {
		t.Fatalf("reason = %q", res.Reason)
	}
	if res.Risk.Level != models.RiskUnknown {
		t.Fatalf("risk = %q, want unknown", res.Risk.Level)
	}
}

func TestVoteStrengths(t *testing.T) {
	cases := []struct {
		name     string
		ta       *models.TechnicalAnalysis
		side     models.VoteSide
		strength string
	}{
		{"rsi oversold is medium", &models.TechnicalAnalysis{RSI: f64(25)}, models.VoteBuy, strengthMedium},
		{"rsi overbought is medium", &models.TechnicalAnalysis{RSI: f64(75)}, models.VoteSell, strengthMedium},
		{
			"macd golden cross is strong",
			&models.TechnicalAnalysis{MACD: &models.MACDState{MACD: 1.0, Signal: 0.5, Histogram: 0.5}},
			models.VoteBuy, strengthStrong,
		},
		{
			"macd death cross is strong",
			&models.TechnicalAnalysis{MACD: &models.MACDState{MACD: -1.0, Signal: -0.5, Histogram: -0.5}},
			models.VoteSell, strengthStrong,
		},
		{
			"volume surge is medium buy",
			&models.TechnicalAnalysis{Volume: &models.VolumeState{Ratio: 2.5, Abnormal: true}},
			models.VoteBuy, strengthMedium,
		},
	}
	for _, c := range cases {
		votes := collectVotes(c.ta)
		if len(votes) != 1 {
			t.Fatalf("%s: votes = %+v, want exactly one", c.name, votes)
		}
		if votes[0].Side != c.side || votes[0].Strength != c.strength {
			t.Fatalf("%s: got %s/%s, want %s/%s",
				c.name, votes[0].Side, votes[0].Strength, c.side, c.strength)
		}
	}
}

func TestMACDAboveSignalWithoutPositiveHistogramNoVote(t *testing.T) {
	ta := &models.TechnicalAnalysis{
		MACD: &models.MACDState{MACD: 1.0, Signal: 0.5, Histogram: -0.1},
	}
	if votes := collectVotes(ta); len(votes) != 0 {
		t.Fatalf("votes = %+v, want none", votes)
	}
}

func TestPercentChangeVotes(t *testing.T) {
	strong := collectVotes(&models.TechnicalAnalysis{PriceChangePct: f64(0.06)})
	if len(strong) != 1 || strong[0].Side != models.VoteBuy || strong[0].Strength != strengthStrong {
		t.Fatalf("strong move votes = %+v", strong)
	}

	mild := collectVotes(&models.TechnicalAnalysis{PriceChangePct: f64(0.03)})
	if len(mild) != 1 || mild[0].Strength != strengthMedium {
		t.Fatalf("mild move votes = %+v", mild)
	}

	down := collectVotes(&models.TechnicalAnalysis{PriceChangePct: f64(-0.06)})
	if len(down) != 1 || down[0].Side != models.VoteSell {
		t.Fatalf("down move votes = %+v", down)
	}
}

func TestExtremeRSISuppressesMildChangeVote(t *testing.T) {
	// Overbought RSI overrides a mild uptrend vote but not a strong one.
	mild := collectVotes(&models.TechnicalAnalysis{PriceChangePct: f64(0.03), RSI: f64(80)})
	for _, v := range mild {
		if v.Side == models.VoteBuy {
			t.Fatalf("mild change vote survived extreme RSI: %+v", mild)
		}
	}

	strong := collectVotes(&models.TechnicalAnalysis{PriceChangePct: f64(0.08), RSI: f64(80)})
	var buys int
	for _, v := range strong {
		if v.Side == models.VoteBuy {
			buys++
		}
	}
	if buys != 1 {
		t.Fatalf("strong change vote missing: %+v", strong)
	}
}

func TestVolumeBelowSurgeThresholdNoVote(t *testing.T) {
	ta := &models.TechnicalAnalysis{Volume: &models.VolumeState{Ratio: 1.8, Abnormal: true}}
	if votes := collectVotes(ta); len(votes) != 0 {
		t.Fatalf("votes = %+v, want none", votes)
	}
}

func TestEvaluateConflictingVotesHold(t *testing.T) {
	// RSI medium buy (+1) against a Bollinger upper-band sell (-1): total 0.
	ta := &models.TechnicalAnalysis{
		RSI:       f64(25),
		Bollinger: &models.BollingerState{Position: 1},
	}
	e := NewEngine(Config{})
	res := e.Evaluate(btc(), 100, ta, nil, time.Now())

	if res.Signal.Type != models.SignalHold {
		t.Fatalf("signal = %q, want hold (total %d)", res.Signal.Type, res.Signal.TotalScore)
	}
	if !strings.Contains(res.Reason, "mixed") {
		t.Fatalf("reason = %q, want mixed-signals text", res.Reason)
	}
}

func TestMLContribution(t *testing.T) {
	cases := []struct {
		prob float64
		want int
	}{
		{0.8, 2},
		{0.5, 1},
		{0.2, -1},
	}
	for _, c := range cases {
		got := mlContribution(&models.Prediction{Probability: c.prob})
		if got != c.want {
			t.Fatalf("mlContribution(%v) = %d, want %d", c.prob, got, c.want)
		}
	}
	if mlContribution(nil) != 0 {
		t.Fatalf("nil prediction should contribute 0")
	}
}

func TestEvaluateMLTipsTheSignal(t *testing.T) {
	// Moving averages alone: one medium buy vote, not enough for a signal.
	ta := &models.TechnicalAnalysis{
		MovingAverages: &models.MAState{SMA5: 105, SMA20: 100, PriceVsSMA5: 0.02},
	}
	e := NewEngine(Config{})

	res := e.Evaluate(btc(), 100, ta, nil, time.Now())
	if res.Signal.Type != models.SignalHold {
		t.Fatalf("votes alone = %q, want hold", res.Signal.Type)
	}

	pred := &models.Prediction{Probability: 0.75}
	res = e.Evaluate(btc(), 100, ta, pred, time.Now())
	if res.Signal.Type != models.SignalBuy {
		t.Fatalf("with model = %q, want buy", res.Signal.Type)
	}
	if !strings.Contains(res.Reason, "model probability 75%") {
		t.Fatalf("reason = %q, want model probability note", res.Reason)
	}
}

func TestConfidenceNeedsVoteAgreement(t *testing.T) {
	cases := []struct {
		total, votes int
		want         models.Confidence
	}{
		{4, 3, models.ConfidenceHigh},
		{-5, 4, models.ConfidenceHigh},
		{4, 2, models.ConfidenceMedium},
		{2, 2, models.ConfidenceMedium},
		{2, 1, models.ConfidenceLow},
		{1, 3, models.ConfidenceLow},
	}
	for _, c := range cases {
		if got := confidence(c.total, c.votes); got != c.want {
			t.Fatalf("confidence(%d, %d) = %q, want %q", c.total, c.votes, got, c.want)
		}
	}

	// A score of 4 from only two strong votes grades medium, not high.
	ta := &models.TechnicalAnalysis{
		PriceChangePct: f64(0.08),
		MACD:           &models.MACDState{MACD: 1.0, Signal: 0.5, Histogram: 0.5},
	}
	e := NewEngine(Config{})
	res := e.Evaluate(btc(), 100, ta, nil, time.Now())
	if res.Signal.Type != models.SignalStrongBuy {
		t.Fatalf("signal = %q, want strong_buy", res.Signal.Type)
	}
	if res.Signal.Confidence != models.ConfidenceMedium {
		t.Fatalf("confidence = %q, want medium", res.Signal.Confidence)
	}
}

// risingSeries builds n daily NAV-style closes growing 2% per day.
func risingSeries(n int) models.PriceSeries {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.PriceSeries, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		s = append(s, models.PricePoint{Timestamp: base.AddDate(0, 0, i), Close: price})
		price *= 1.02
	}
	return s
}

func TestSteadyUptrendSignalsBuy(t *testing.T) {
	ind := indicator.NewEngine(indicator.DefaultParams(), 1.5)
	e := NewEngine(Config{})

	for _, n := range []int{30, 40} {
		series := risingSeries(n)
		ta, err := ind.Compute(series, 0)
		if err != nil {
			t.Fatalf("%d bars: Compute: %v", n, err)
		}
		if ta.RSI == nil || *ta.RSI <= 70 {
			t.Fatalf("%d bars: RSI = %v, want > 70", n, ta.RSI)
		}
		if n >= 40 {
			if ta.MACD == nil || ta.MACD.MACD <= ta.MACD.Signal {
				t.Fatalf("%d bars: MACD state = %+v, want line above signal", n, ta.MACD)
			}
		}

		res := e.Evaluate(btc(), 0, &ta, nil, time.Now())
		if res.Signal.Type != models.SignalBuy && res.Signal.Type != models.SignalStrongBuy {
			t.Fatalf("%d bars: signal = %q (score %d, votes %+v), want buy or strong_buy",
				n, res.Signal.Type, res.Signal.TotalScore, res.Votes)
		}
	}
}

func TestSteadyDowntrendSignalsSell(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.PriceSeries, 0, 30)
	price := 100.0
	for i := 0; i < 30; i++ {
		s = append(s, models.PricePoint{Timestamp: base.AddDate(0, 0, i), Close: price})
		price *= 0.98
	}

	ind := indicator.NewEngine(indicator.DefaultParams(), 1.5)
	ta, err := ind.Compute(s, 0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	e := NewEngine(Config{})
	res := e.Evaluate(btc(), 0, &ta, nil, time.Now())
	if res.Signal.Type != models.SignalSell && res.Signal.Type != models.SignalStrongSell {
		t.Fatalf("signal = %q (score %d), want sell or strong_sell",
			res.Signal.Type, res.Signal.TotalScore)
	}
}

func TestEntryExitBuyLevels(t *testing.T) {
	e := NewEngine(Config{StopLossPct: 0.05, TakeProfitPct: 0.15})
	ee := e.entryExit(100, models.SignalBuy)

	if ee.EntryPrice >= 100 {
		t.Fatalf("buy entry = %v, want below market", ee.EntryPrice)
	}
	if ee.StopLoss >= ee.EntryPrice {
		t.Fatalf("stop %v not below entry %v", ee.StopLoss, ee.EntryPrice)
	}
	if ee.TakeProfit <= ee.EntryPrice {
		t.Fatalf("take %v not above entry %v", ee.TakeProfit, ee.EntryPrice)
	}
	if math.Abs(ee.RiskRewardRatio-3) > 1e-9 {
		t.Fatalf("risk-reward = %v, want 3", ee.RiskRewardRatio)
	}
}

func TestEntryExitSellLevels(t *testing.T) {
	e := NewEngine(Config{})
	ee := e.entryExit(100, models.SignalStrongSell)

	if ee.EntryPrice <= 100 {
		t.Fatalf("sell entry = %v, want above market", ee.EntryPrice)
	}
	if ee.StopLoss <= ee.EntryPrice {
		t.Fatalf("sell stop %v not above entry %v", ee.StopLoss, ee.EntryPrice)
	}
	if ee.TakeProfit >= ee.EntryPrice {
		t.Fatalf("sell take %v not below entry %v", ee.TakeProfit, ee.EntryPrice)
	}
}

func TestEntryExitHoldAnchorsAtMarket(t *testing.T) {
	e := NewEngine(Config{})
	ee := e.entryExit(100, models.SignalHold)
	if ee.EntryPrice != 100 {
		t.Fatalf("hold entry = %v, want 100", ee.EntryPrice)
	}
}

func TestAssessRiskScoring(t *testing.T) {
	e := NewEngine(Config{VolatilityThreshold: 0.3})

	ta := &models.TechnicalAnalysis{
		Volatility: 0.5,
		RSI:        f64(85),
		Bollinger:  &models.BollingerState{Position: 0.95},
		Volume:     &models.VolumeState{Ratio: 0.3},
	}
	risk := e.assessRisk(ta)
	if risk.Score != 5 || risk.Level != models.RiskHigh {
		t.Fatalf("risk = %+v, want score 5 level high", risk)
	}
	if len(risk.Factors) != 4 {
		t.Fatalf("factors = %v, want 4", risk.Factors)
	}

	calm := &models.TechnicalAnalysis{
		Volatility: 0.1,
		RSI:        f64(55),
		Bollinger:  &models.BollingerState{Position: 0.5},
		Volume:     &models.VolumeState{Ratio: 1.1},
	}
	risk = e.assessRisk(calm)
	if risk.Score != 0 || risk.Level != models.RiskLow {
		t.Fatalf("calm risk = %+v, want score 0 level low", risk)
	}
}
