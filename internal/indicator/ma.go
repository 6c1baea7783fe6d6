package indicator

// SMA returns the simple moving average over the given period. The
// result has len(prices)-period+1 points; result[i] covers
// prices[i:i+period].
func SMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 || len(prices) < period {
		return nil, ErrInsufficientData
	}
	out := make([]float64, 0, len(prices)-period+1)
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// EMA returns the exponential moving average with smoothing
// 2/(period+1), seeded with the SMA of the first period points.
func EMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 || len(prices) < period {
		return nil, ErrInsufficientData
	}
	var seed float64
	for _, p := range prices[:period] {
		seed += p
	}
	seed /= float64(period)

	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(prices)-period+1)
	out = append(out, seed)
	prev := seed
	for _, p := range prices[period:] {
		prev = p*k + prev*(1-k)
		out = append(out, prev)
	}
	return out, nil
}
