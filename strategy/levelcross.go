package strategy

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidemark/skimmer/indicator"
	"github.com/tidemark/skimmer/shared"
)

const (
	// LevelCrossName is the name of the level crossover policy.
	LevelCrossName = "levelcross"
	// defaultShortEMAWindow is the default window of the short ema evaluated
	// against retracement levels.
	defaultShortEMAWindow = 9
)

// LevelCrossConfig represents the configuration for the level crossover policy.
type LevelCrossConfig struct {
	// EMAWindow is the window of the short ema evaluated against levels.
	EMAWindow int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// LevelCross represents the level crossover policy. It enters when the short
// ema crosses above a retracement level and exits when it crosses below one.
type LevelCross struct {
	cfg *LevelCrossConfig
}

// Ensure the level crossover policy implements the Policy interface.
var _ Policy = (*LevelCross)(nil)

// NewLevelCross initializes a new level crossover policy.
func NewLevelCross(cfg *LevelCrossConfig) *LevelCross {
	if cfg.EMAWindow == 0 {
		cfg.EMAWindow = defaultShortEMAWindow
	}

	return &LevelCross{
		cfg: cfg,
	}
}

// Name returns the policy name.
func (p *LevelCross) Name() string {
	return LevelCrossName
}

// RequiresSwingData indicates whether the policy needs daily swing data.
func (p *LevelCross) RequiresSwingData() bool {
	return true
}

// Evaluate derives at most one trade signal from the provided market data.
// Only the first crossed level is acted on per cycle.
func (p *LevelCross) Evaluate(data *MarketData, open bool) (*shared.Signal, error) {
	series := data.Series
	if series.Size() < minEvaluableSize {
		return shared.NewSignal(series.Market, shared.None, "", 0), nil
	}
	if data.Swing == nil {
		return nil, fmt.Errorf("evaluating %s for %s: no swing data provided",
			LevelCrossName, series.Market)
	}

	levels, err := indicator.Retracement(data.Swing)
	if err != nil {
		// Insufficient swing history is a silent skip for the cycle.
		if errors.Is(err, shared.ErrInsufficientData) {
			p.cfg.Logger.Debug().Msgf("skipping %s: %v", series.Market, err)
			return shared.NewSignal(series.Market, shared.None, "", 0), nil
		}

		return nil, err
	}

	ema := indicator.EMA(series.Closes(), p.cfg.EMAWindow)
	curr := ema[len(ema)-2]
	prev := ema[len(ema)-3]

	candle, err := series.LatestClosed()
	if err != nil {
		return nil, err
	}

	switch {
	case !open:
		ratio, ok := entryPriceRatio(candle)
		for idx := range levels.Levels {
			lvl := levels.Levels[idx]
			if prev <= lvl.Price && curr > lvl.Price {
				if !ok || ratio >= maxEntryPriceRatio {
					break
				}

				trigger := fmt.Sprintf("ema%d crossed above the %.3f level (%.8f)",
					p.cfg.EMAWindow, lvl.Ratio, lvl.Price)
				return shared.NewSignal(series.Market, shared.Buy, trigger, candle.Close), nil
			}
		}
	default:
		for idx := range levels.Levels {
			lvl := levels.Levels[idx]
			if prev >= lvl.Price && curr < lvl.Price {
				trigger := fmt.Sprintf("ema%d crossed below the %.3f level (%.8f)",
					p.cfg.EMAWindow, lvl.Ratio, lvl.Price)
				return shared.NewSignal(series.Market, shared.Sell, trigger, candle.Close), nil
			}
		}
	}

	return shared.NewSignal(series.Market, shared.None, "", candle.Close), nil
}
