package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/tidemark/skimmer/shared"
)

const (
	// maxEntryPriceRatio is the maximum open-to-close move of the latest
	// closed candle for an entry to be considered.
	maxEntryPriceRatio = 0.02
	// minEvaluableSize is the minimum series size needed to compare the two
	// most recent closed candles.
	minEvaluableSize = 3
)

// MarketData bundles the candle series a policy evaluates per cycle.
type MarketData struct {
	// Series is the candle history for the trading interval.
	Series *shared.CandleSeries
	// Swing is the daily candle history, only set for policies that
	// require swing data.
	Swing *shared.CandleSeries
}

// Policy defines the requirements for deriving trade signals from market data.
type Policy interface {
	// Name returns the policy name.
	Name() string
	// RequiresSwingData indicates whether the policy needs daily swing data.
	RequiresSwingData() bool
	// Evaluate derives at most one trade signal from the provided market
	// data and position state.
	Evaluate(data *MarketData, open bool) (*shared.Signal, error)
}

// NewPolicy initializes the signal policy with the provided name.
func NewPolicy(name string, logger *zerolog.Logger) (Policy, error) {
	switch name {
	case LevelCrossName:
		return NewLevelCross(&LevelCrossConfig{Logger: logger}), nil
	case EMACrossName:
		return NewEMACross(&EMACrossConfig{Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unknown signal policy: %s", name)
	}
}

// entryPriceRatio returns the relative open-to-close move of the provided
// candle. It reports false when the candle open is zero, which renders the
// ratio invalid.
func entryPriceRatio(candle *shared.Candlestick) (float64, bool) {
	if candle.Open == 0 {
		return 0, false
	}

	return math.Abs(candle.Open-candle.Close) / candle.Open, true
}
