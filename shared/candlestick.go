package shared

import (
	"fmt"
	"time"
)

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market   string
	Interval Interval
}

// CandleSeries represents an ordered candle history for a market and interval.
type CandleSeries struct {
	Market   string
	Interval Interval
	Candles  []Candlestick
}

// NewCandleSeries initializes a new candle series from the provided candles.
// Candles are expected in strictly increasing timestamp order.
func NewCandleSeries(market string, interval Interval, candles []Candlestick) (*CandleSeries, error) {
	for idx := 1; idx < len(candles); idx++ {
		if !candles[idx].Date.After(candles[idx-1].Date) {
			return nil, fmt.Errorf("candle series for %s (%s) is not strictly ordered at index %d",
				market, interval.String(), idx)
		}
	}

	series := &CandleSeries{
		Market:   market,
		Interval: interval,
		Candles:  candles,
	}

	return series, nil
}

// Size returns the number of candles in the series.
func (s *CandleSeries) Size() int {
	return len(s.Candles)
}

// Closes returns the close prices of the series in order.
func (s *CandleSeries) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for idx := range s.Candles {
		closes[idx] = s.Candles[idx].Close
	}

	return closes
}

// LatestClosed returns the most recent closed candle of the series. The last
// candle is excluded since it is still forming.
func (s *CandleSeries) LatestClosed() (*Candlestick, error) {
	if len(s.Candles) < 2 {
		return nil, fmt.Errorf("candle series for %s has no closed candles", s.Market)
	}

	return &s.Candles[len(s.Candles)-2], nil
}
