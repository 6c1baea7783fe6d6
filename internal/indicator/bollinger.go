package indicator

import "math"

// BollingerSeries holds the three aligned bands, each with
// len(prices)-period+1 points.
type BollingerSeries struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes bands at k standard deviations around the SMA.
func Bollinger(prices []float64, period int, k float64) (BollingerSeries, error) {
	mid, err := SMA(prices, period)
	if err != nil {
		return BollingerSeries{}, err
	}
	upper := make([]float64, len(mid))
	lower := make([]float64, len(mid))
	for i := range mid {
		window := prices[i : i+period]
		var ss float64
		for _, p := range window {
			d := p - mid[i]
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(period))
		upper[i] = mid[i] + k*sd
		lower[i] = mid[i] - k*sd
	}
	return BollingerSeries{Upper: upper, Middle: mid, Lower: lower}, nil
}

// Position maps price into the most recent band: 0 at the lower band,
// 1 at the upper, clamped to [0, 1]. Returns 0.5 when the bands have
// collapsed to zero width.
func (b BollingerSeries) Position(price float64) float64 {
	n := len(b.Upper)
	if n == 0 {
		return 0.5
	}
	width := b.Upper[n-1] - b.Lower[n-1]
	if width == 0 {
		return 0.5
	}
	pos := (price - b.Lower[n-1]) / width
	return math.Min(1, math.Max(0, pos))
}

// Volatility is the standard deviation of simple returns over the last
// period+1 prices.
func Volatility(prices []float64, period int) (float64, error) {
	if period <= 0 || len(prices) < period+1 {
		return 0, ErrInsufficientData
	}
	tail := prices[len(prices)-period-1:]
	returns := make([]float64, period)
	var mean float64
	for i := 1; i < len(tail); i++ {
		if tail[i-1] == 0 {
			return 0, ErrInsufficientData
		}
		r := tail[i]/tail[i-1] - 1
		returns[i-1] = r
		mean += r
	}
	mean /= float64(period)
	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(period)), nil
}
