package indicator

import "math"

// Pattern names the candlestick shape detected on the latest bars.
type Pattern string

const (
	PatternNone             Pattern = ""
	PatternHammer           Pattern = "hammer"
	PatternDoji             Pattern = "doji"
	PatternBullishEngulfing Pattern = "bullish_engulfing"
	PatternBearishEngulfing Pattern = "bearish_engulfing"
)

// Bar is a single OHLC candle as seen by pattern detection.
type Bar struct {
	Open, High, Low, Close float64
}

// DetectPattern inspects the last two bars and returns the first
// matching pattern plus its directional score: +1 bullish, -1 bearish,
// 0 neutral.
func DetectPattern(bars []Bar) (Pattern, float64) {
	if len(bars) == 0 {
		return PatternNone, 0
	}
	last := bars[len(bars)-1]

	if len(bars) >= 2 {
		prev := bars[len(bars)-2]
		if engulfs(prev, last, true) {
			return PatternBullishEngulfing, 1
		}
		if engulfs(prev, last, false) {
			return PatternBearishEngulfing, -1
		}
	}
	if isHammer(last) {
		return PatternHammer, 1
	}
	if isDoji(last) {
		return PatternDoji, 0
	}
	return PatternNone, 0
}

// isHammer: small body in the upper part of the range with a lower
// shadow at least twice the body.
func isHammer(b Bar) bool {
	body := math.Abs(b.Close - b.Open)
	total := b.High - b.Low
	if total == 0 {
		return false
	}
	lower := math.Min(b.Open, b.Close) - b.Low
	upper := b.High - math.Max(b.Open, b.Close)
	return body <= total*0.3 && lower >= body*2 && upper <= body
}

// isDoji: open and close within 10% of the bar's range.
func isDoji(b Bar) bool {
	total := b.High - b.Low
	if total == 0 {
		return false
	}
	return math.Abs(b.Close-b.Open) <= total*0.1
}

func engulfs(prev, last Bar, bullish bool) bool {
	if bullish {
		return prev.Close < prev.Open && // previous bearish
			last.Close > last.Open && // current bullish
			last.Open <= prev.Close && last.Close >= prev.Open
	}
	return prev.Close > prev.Open &&
		last.Close < last.Open &&
		last.Open >= prev.Close && last.Close <= prev.Open
}
