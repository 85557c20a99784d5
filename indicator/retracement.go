package indicator

import (
	"fmt"

	"github.com/tidemark/skimmer/shared"
)

const (
	// SwingWindow is the trailing daily window used to anchor retracement levels.
	SwingWindow = 50
	// LevelCount is the number of levels in a retracement set.
	LevelCount = 7
)

// RetracementRatios are the standard retracement ratios, ordered.
var RetracementRatios = [LevelCount]float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

// Direction represents the direction of the swing move anchoring a
// retracement set.
type Direction int

const (
	Upward Direction = iota
	Downward
)

// String stringifies the provided direction.
func (d *Direction) String() string {
	switch *d {
	case Upward:
		return "upward"
	case Downward:
		return "downward"
	default:
		return "unknown"
	}
}

// Level represents a unit retracement level.
type Level struct {
	Ratio float64
	Price float64
}

// RetracementLevels represents a set of retracement levels for a market,
// ordered by ratio from 0.0 to 1.0.
type RetracementLevels struct {
	Market    string
	Direction Direction
	Levels    [LevelCount]Level
}

// Retracement computes retracement levels from the trailing daily candles of
// the provided series. The anchors are the minimum and maximum closes of the
// window; the move is treated as upward when the minimum occurred first, and
// downward otherwise.
func Retracement(series *shared.CandleSeries) (*RetracementLevels, error) {
	if series.Size() < shared.MinSwingSeriesSize {
		return nil, fmt.Errorf("computing retracement for %s: %w: got %d candles, want %d",
			series.Market, shared.ErrInsufficientData, series.Size(), shared.MinSwingSeriesSize)
	}

	candles := series.Candles
	if len(candles) > SwingWindow {
		candles = candles[len(candles)-SwingWindow:]
	}

	minIdx, maxIdx := 0, 0
	for idx := range candles {
		if candles[idx].Close < candles[minIdx].Close {
			minIdx = idx
		}
		if candles[idx].Close > candles[maxIdx].Close {
			maxIdx = idx
		}
	}

	low := candles[minIdx].Close
	high := candles[maxIdx].Close

	set := &RetracementLevels{
		Market: series.Market,
	}

	switch {
	case minIdx <= maxIdx:
		// The low was set before the high, the move is upward and levels
		// descend from the high anchor.
		set.Direction = Upward
		for idx, ratio := range RetracementRatios {
			set.Levels[idx] = Level{Ratio: ratio, Price: high - (high-low)*ratio}
		}
	default:
		set.Direction = Downward
		for idx, ratio := range RetracementRatios {
			set.Levels[idx] = Level{Ratio: ratio, Price: low + (high-low)*ratio}
		}
	}

	return set, nil
}
