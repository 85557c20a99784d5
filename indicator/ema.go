package indicator

import (
	"math"
)

// EMA computes the exponential moving average of the provided values using a
// smoothing factor of 2/(window+1). The average is seeded with the first
// value, so the first window outputs lean toward it until enough history has
// accumulated. Outputs are rounded to 8 decimal places to match the precision
// displayed by the exchange.
func EMA(values []float64, window int) []float64 {
	if len(values) == 0 || window <= 0 {
		return nil
	}

	smoothing := 2 / float64(window+1)

	ema := make([]float64, len(values))
	ema[0] = roundToPrecision(values[0])
	for idx := 1; idx < len(values); idx++ {
		ema[idx] = roundToPrecision(values[idx]*smoothing + ema[idx-1]*(1-smoothing))
	}

	return ema
}

// roundToPrecision rounds the provided value to 8 decimal places.
func roundToPrecision(value float64) float64 {
	return math.Round(value*1e8) / 1e8
}
