package indicator

// VolumeRatio compares the latest volume against the average of the
// preceding period. A ratio above abnormalThreshold in the engine marks
// the bar as abnormal volume.
func VolumeRatio(volumes []float64, period int) (avg, current, ratio float64, err error) {
	if period <= 0 || len(volumes) < period+1 {
		return 0, 0, 0, ErrInsufficientData
	}
	window := volumes[len(volumes)-period-1 : len(volumes)-1]
	for _, v := range window {
		avg += v
	}
	avg /= float64(period)
	current = volumes[len(volumes)-1]
	if avg == 0 {
		return avg, current, 0, nil
	}
	return avg, current, current / avg, nil
}

// Levels finds local support and resistance from swing extrema: a low
// (high) is a level when it is the minimum (maximum) of the window
// centered on it.
func Levels(highs, lows []float64, window int) (support, resistance []float64) {
	if window < 1 || len(lows) < 2*window+1 {
		return nil, nil
	}
	for i := window; i < len(lows)-window; i++ {
		if isExtreme(lows, i, window, false) {
			support = append(support, lows[i])
		}
		if isExtreme(highs, i, window, true) {
			resistance = append(resistance, highs[i])
		}
	}
	return support, resistance
}

func isExtreme(vals []float64, i, window int, max bool) bool {
	for j := i - window; j <= i+window; j++ {
		if j == i {
			continue
		}
		if max && vals[j] > vals[i] {
			return false
		}
		if !max && vals[j] < vals[i] {
			return false
		}
	}
	return true
}
