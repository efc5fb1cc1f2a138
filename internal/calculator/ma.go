package calculator

import "errors"

// DefaultMAWindow matches the slowest moving average drawn on the chart.
const DefaultMAWindow = 30

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingMean computes a trailing simple mean over window closes for every
// index. Until the window fills, the close itself stands in for the mean, so
// a trend filter built on it stays neutral during warm-up.
func RollingMean(closes []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	out := make([]float64, len(closes))
	for i, c := range closes {
		if i < window-1 {
			out[i] = c
			continue
		}
		sma, err := CalculateSMA(closes[:i+1], window)
		if err != nil {
			return nil, err
		}
		out[i] = sma
	}
	return out, nil
}
