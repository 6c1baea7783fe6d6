package indicator

import (
	"TradePulse/internal/domain/models"
)

// Engine computes the full technical-analysis bundle for one asset. It is
// pure and stateless: the same series always yields the same result, so a
// single Engine is shared across goroutines.
type Engine struct {
	params          Params
	volumeThreshold float64
}

// NewEngine builds an Engine. A non-positive volumeThreshold falls back
// to 1.5, the usual abnormal-volume cut-off.
func NewEngine(params Params, volumeThreshold float64) *Engine {
	if volumeThreshold <= 0 {
		volumeThreshold = 1.5
	}
	return &Engine{params: params, volumeThreshold: volumeThreshold}
}

// Params returns the windows the engine was built with.
func (e *Engine) Params() Params { return e.params }

// Compute derives every indicator the series supports. Indicators whose
// window exceeds the series length are left nil; ErrInsufficientData is
// returned only when the series is too short for all of them.
func (e *Engine) Compute(series models.PriceSeries, price float64) (models.TechnicalAnalysis, error) {
	closes := series.Closes()
	if len(closes) < 2 {
		return models.TechnicalAnalysis{}, ErrInsufficientData
	}
	if price == 0 {
		price = closes[len(closes)-1]
	}

	ta := models.TechnicalAnalysis{PatternSignal: "neutral"}
	any := false

	// Recent percent change over the short MA window.
	if lb := e.params.SMAShort; len(closes) > lb && lb > 0 {
		if base := closes[len(closes)-1-lb]; base != 0 {
			chg := closes[len(closes)-1]/base - 1
			ta.PriceChangePct = &chg
			any = true
		}
	}

	if rsi, err := RSI(closes, e.params.RSIPeriod); err == nil {
		v := rsi[len(rsi)-1]
		ta.RSI = &v
		any = true
	}

	if m, err := MACD(closes, e.params.MACDFast, e.params.MACDSlow, e.params.MACDSignal); err == nil {
		ta.MACD = &models.MACDState{
			MACD:        m.MACD[len(m.MACD)-1],
			Signal:      m.Signal[len(m.Signal)-1],
			Histogram:   m.Histogram[len(m.Histogram)-1],
			GoldenCross: m.GoldenCross(),
			DeathCross:  m.DeathCross(),
		}
		any = true
	}

	if b, err := Bollinger(closes, e.params.BollingerPeriod, e.params.BollingerStd); err == nil {
		n := len(b.Middle)
		ta.Bollinger = &models.BollingerState{
			Upper:    b.Upper[n-1],
			Middle:   b.Middle[n-1],
			Lower:    b.Lower[n-1],
			Position: b.Position(price),
		}
		any = true
	}

	short, errS := SMA(closes, e.params.SMAShort)
	long, errL := SMA(closes, e.params.SMALong)
	if errS == nil && errL == nil {
		ma := models.MAState{
			SMA5:  short[len(short)-1],
			SMA20: long[len(long)-1],
		}
		if ma.SMA5 != 0 {
			ma.PriceVsSMA5 = price/ma.SMA5 - 1
		}
		if ma.SMA20 != 0 {
			ma.PriceVsSMA20 = price/ma.SMA20 - 1
		}
		ta.MovingAverages = &ma
		any = true
	}

	if avg, cur, ratio, err := VolumeRatio(series.Volumes(), e.params.SMALong); err == nil && avg > 0 {
		ta.Volume = &models.VolumeState{
			Average:  avg,
			Current:  cur,
			Ratio:    ratio,
			Abnormal: ratio > e.volumeThreshold,
		}
		any = true
	}

	if vol, err := Volatility(closes, e.params.BollingerPeriod); err == nil {
		ta.Volatility = vol
		any = true
	}

	if p, score := DetectPattern(bars(series)); p != PatternNone {
		switch {
		case score > 0:
			ta.PatternSignal = "bullish"
		case score < 0:
			ta.PatternSignal = "bearish"
		}
		any = true
	}

	if !any {
		return models.TechnicalAnalysis{}, ErrInsufficientData
	}
	return ta, nil
}

// SupportResistance returns recent swing levels for the series, newest
// last. Series without high/low columns (funds) fall back to closes.
func (e *Engine) SupportResistance(series models.PriceSeries, window int) (support, resistance []float64) {
	highs := make([]float64, len(series))
	lows := make([]float64, len(series))
	for i, p := range series {
		highs[i] = p.High
		lows[i] = p.Low
		if p.High == 0 {
			highs[i] = p.Close
		}
		if p.Low == 0 {
			lows[i] = p.Close
		}
	}
	return Levels(highs, lows, window)
}

func bars(series models.PriceSeries) []Bar {
	out := make([]Bar, 0, len(series))
	for _, p := range series {
		b := Bar{Open: p.Open, High: p.High, Low: p.Low, Close: p.Close}
		// NAV-only series carry closes only; synthesize a flat bar so
		// pattern detection degrades to no-pattern instead of panicking.
		if b.High == 0 && b.Low == 0 {
			b.Open, b.High, b.Low = p.Close, p.Close, p.Close
		}
		out = append(out, b)
	}
	return out
}
