package strategy

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
	"github.com/tidemark/skimmer/shared"
)

// generateSeries creates a candle series from the provided closes. Each
// candle opens at the prior close.
func generateSeries(t *testing.T, market string, interval shared.Interval, closes []float64) *shared.CandleSeries {
	t.Helper()

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	candles := make([]shared.Candlestick, len(closes))
	for idx := range closes {
		open := closes[idx]
		if idx > 0 {
			open = closes[idx-1]
		}

		candles[idx] = shared.Candlestick{
			Open:     open,
			High:     max(open, closes[idx]),
			Low:      min(open, closes[idx]),
			Close:    closes[idx],
			Volume:   10,
			Date:     start.Add(time.Duration(idx) * time.Minute * 15),
			Market:   market,
			Interval: interval,
		}
	}

	series, err := shared.NewCandleSeries(market, interval, candles)
	assert.NoError(t, err)

	return series
}

// constantCloses creates a close series holding the provided value.
func constantCloses(value float64, size int) []float64 {
	closes := make([]float64, size)
	for idx := range closes {
		closes[idx] = value
	}

	return closes
}

func TestNewPolicy(t *testing.T) {
	// Ensure both policies can be created by name.
	levelCross, err := NewPolicy(LevelCrossName, &log.Logger)
	assert.NoError(t, err)
	assert.Equal(t, levelCross.Name(), LevelCrossName)
	assert.True(t, levelCross.RequiresSwingData())

	emaCross, err := NewPolicy(EMACrossName, &log.Logger)
	assert.NoError(t, err)
	assert.Equal(t, emaCross.Name(), EMACrossName)
	assert.False(t, emaCross.RequiresSwingData())

	// Ensure unknown policy names are rejected.
	_, err = NewPolicy("martingale", &log.Logger)
	assert.Error(t, err)
}

func TestEntryPriceRatio(t *testing.T) {
	// Ensure the ratio reflects the relative open to close move.
	candle := &shared.Candlestick{Open: 100, Close: 101}
	ratio, ok := entryPriceRatio(candle)
	assert.True(t, ok)
	assert.Equal(t, ratio, 0.01)

	// Ensure the ratio direction does not matter.
	candle = &shared.Candlestick{Open: 100, Close: 99}
	ratio, ok = entryPriceRatio(candle)
	assert.True(t, ok)
	assert.Equal(t, ratio, 0.01)

	// Ensure a zero open renders the ratio invalid.
	candle = &shared.Candlestick{Open: 0, Close: 100}
	_, ok = entryPriceRatio(candle)
	assert.False(t, ok)
}
