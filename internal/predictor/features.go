package predictor

import (
	"errors"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/indicator"
)

// featureNames is the fixed column order of every feature vector. The
// scaler and weights are only meaningful against this exact order.
var featureNames = []string{
	"price_change",
	"rsi",
	"macd",
	"macd_signal",
	"macd_histogram",
	"bb_position",
	"sma5_ratio",
	"sma20_ratio",
	"ema12_ratio",
	"ema26_ratio",
	"volume_ratio",
	"volatility",
	"pattern_signal",
}

// FeatureCount is the width of the model input.
const FeatureCount = 13

var errShortSeries = errors.New("predictor: series too short for features")

// extractAt builds the feature vector for position at, seeing only
// series[:at+1]. Used both for the latest bar at predict time and for
// every historical bar at training time.
func extractAt(series models.PriceSeries, params indicator.Params, at int) ([]float64, error) {
	warmup := params.MinLookback()
	if at < warmup || at >= len(series) {
		return nil, errShortSeries
	}
	window := series[:at+1]
	closes := window.Closes()
	price := closes[len(closes)-1]
	if price == 0 {
		return nil, errShortSeries
	}

	rsi, err := indicator.RSI(closes, params.RSIPeriod)
	if err != nil {
		return nil, err
	}
	macd, err := indicator.MACD(closes, params.MACDFast, params.MACDSlow, params.MACDSignal)
	if err != nil {
		return nil, err
	}
	bb, err := indicator.Bollinger(closes, params.BollingerPeriod, params.BollingerStd)
	if err != nil {
		return nil, err
	}
	sma5, err := indicator.SMA(closes, params.SMAShort)
	if err != nil {
		return nil, err
	}
	sma20, err := indicator.SMA(closes, params.SMALong)
	if err != nil {
		return nil, err
	}
	ema12, err := indicator.EMA(closes, params.EMAShort)
	if err != nil {
		return nil, err
	}
	ema26, err := indicator.EMA(closes, params.EMALong)
	if err != nil {
		return nil, err
	}

	prev := closes[len(closes)-2]
	var priceChange float64
	if prev != 0 {
		priceChange = price/prev - 1
	}

	volatility, err := indicator.Volatility(closes, params.BollingerPeriod)
	if err != nil {
		volatility = 0
	}

	volumeRatio := 1.0
	if _, _, ratio, err := indicator.VolumeRatio(window.Volumes(), params.SMALong); err == nil && ratio > 0 {
		volumeRatio = ratio
	}

	_, patternScore := indicator.DetectPattern(lastBars(window, 2))

	return []float64{
		priceChange,
		last(rsi) / 100,
		last(macd.MACD),
		last(macd.Signal),
		last(macd.Histogram),
		bb.Position(price),
		ratio(price, last(sma5)),
		ratio(price, last(sma20)),
		ratio(price, last(ema12)),
		ratio(price, last(ema26)),
		volumeRatio,
		volatility,
		patternScore,
	}, nil
}

func last(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

func ratio(price, base float64) float64 {
	if base == 0 {
		return 1
	}
	return price / base
}

func lastBars(series models.PriceSeries, n int) []indicator.Bar {
	tail := series.Tail(n)
	out := make([]indicator.Bar, 0, len(tail))
	for _, p := range tail {
		b := indicator.Bar{Open: p.Open, High: p.High, Low: p.Low, Close: p.Close}
		if b.High == 0 && b.Low == 0 {
			b.Open, b.High, b.Low = p.Close, p.Close, p.Close
		}
		out = append(out, b)
	}
	return out
}

// buildDataset walks one series producing (features, label) pairs where
// the label marks a forward return of at least targetReturn over horizon
// bars.
func buildDataset(series models.PriceSeries, params indicator.Params, horizon int, targetReturn float64) (xs [][]float64, ys []float64) {
	warmup := params.MinLookback()
	for i := warmup; i < len(series)-horizon; i++ {
		x, err := extractAt(series, params, i)
		if err != nil {
			continue
		}
		base := series[i].Close
		if base == 0 {
			continue
		}
		forward := series[i+horizon].Close/base - 1
		var y float64
		if forward >= targetReturn {
			y = 1
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys
}
