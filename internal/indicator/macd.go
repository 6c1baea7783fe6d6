package indicator

// MACDSeries holds the aligned MACD line, signal line and histogram.
// All three slices end at the newest price; Signal and Histogram are
// shorter than MACD by the signal warm-up.
type MACDSeries struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the MACD line (fast EMA minus slow EMA), its signal EMA
// and the histogram.
func MACD(prices []float64, fast, slow, signal int) (MACDSeries, error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return MACDSeries{}, ErrInsufficientData
	}
	if len(prices) < slow+signal-1 {
		return MACDSeries{}, ErrInsufficientData
	}

	fastEMA, err := EMA(prices, fast)
	if err != nil {
		return MACDSeries{}, err
	}
	slowEMA, err := EMA(prices, slow)
	if err != nil {
		return MACDSeries{}, err
	}

	// Align the fast EMA to the slow EMA's first point.
	offset := len(fastEMA) - len(slowEMA)
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	sig, err := EMA(line, signal)
	if err != nil {
		return MACDSeries{}, err
	}
	hist := make([]float64, len(sig))
	shift := len(line) - len(sig)
	for i := range sig {
		hist[i] = line[i+shift] - sig[i]
	}
	return MACDSeries{MACD: line, Signal: sig, Histogram: hist}, nil
}

// GoldenCross reports whether the MACD line crossed above the signal
// line between the two most recent points.
func (m MACDSeries) GoldenCross() bool {
	return m.crossed(true)
}

// DeathCross reports whether the MACD line crossed below the signal
// line between the two most recent points.
func (m MACDSeries) DeathCross() bool {
	return m.crossed(false)
}

func (m MACDSeries) crossed(up bool) bool {
	if len(m.Signal) < 2 {
		return false
	}
	shift := len(m.MACD) - len(m.Signal)
	i := len(m.Signal) - 1
	prevDiff := m.MACD[i-1+shift] - m.Signal[i-1]
	currDiff := m.MACD[i+shift] - m.Signal[i]
	if up {
		return prevDiff <= 0 && currDiff > 0
	}
	return prevDiff >= 0 && currDiff < 0
}
