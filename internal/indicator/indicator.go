package indicator

import "errors"

// ErrInsufficientData is returned whenever a series is shorter than the
// window an indicator needs. Callers must treat the indicator as absent;
// no numeric default is ever produced.
var ErrInsufficientData = errors.New("indicator: insufficient data")

// Params holds the window sizes for all indicator computations.
type Params struct {
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	SMAShort        int
	SMALong         int
	EMAShort        int
	EMALong         int
	BollingerPeriod int
	BollingerStd    float64
}

// DefaultParams are the standard textbook windows.
func DefaultParams() Params {
	return Params{
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		SMAShort:        5,
		SMALong:         20,
		EMAShort:        12,
		EMALong:         26,
		BollingerPeriod: 20,
		BollingerStd:    2,
	}
}

// MinLookback is the shortest series Compute can fully analyze: the slow
// MACD EMA plus its signal warm-up dominates every other window.
func (p Params) MinLookback() int {
	n := p.MACDSlow + p.MACDSignal - 1
	if m := p.RSIPeriod + 1; m > n {
		n = m
	}
	if p.BollingerPeriod > n {
		n = p.BollingerPeriod
	}
	return n
}
