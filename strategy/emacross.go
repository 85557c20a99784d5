package strategy

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidemark/skimmer/indicator"
	"github.com/tidemark/skimmer/shared"
)

const (
	// EMACrossName is the name of the ema crossover policy.
	EMACrossName = "emacross"
	// defaultFastWindow is the default window of the fast entry ema.
	defaultFastWindow = 9
	// defaultSlowWindow is the default window of the slow trend ema.
	defaultSlowWindow = 200
	// defaultExitWindow is the default window of the very fast exit ema.
	defaultExitWindow = 5
)

// EMACrossConfig represents the configuration for the ema crossover policy.
type EMACrossConfig struct {
	// FastWindow is the window of the fast entry ema.
	FastWindow int
	// SlowWindow is the window of the slow trend ema.
	SlowWindow int
	// ExitWindow is the window of the very fast exit ema.
	ExitWindow int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// EMACross represents the ema crossover policy. It enters when the fast ema
// crosses above the slow ema and exits when the very fast ema crosses below
// the fast ema. The entry and exit branches are mutually exclusive per cycle.
type EMACross struct {
	cfg *EMACrossConfig
}

// Ensure the ema crossover policy implements the Policy interface.
var _ Policy = (*EMACross)(nil)

// NewEMACross initializes a new ema crossover policy.
func NewEMACross(cfg *EMACrossConfig) *EMACross {
	if cfg.FastWindow == 0 {
		cfg.FastWindow = defaultFastWindow
	}
	if cfg.SlowWindow == 0 {
		cfg.SlowWindow = defaultSlowWindow
	}
	if cfg.ExitWindow == 0 {
		cfg.ExitWindow = defaultExitWindow
	}

	return &EMACross{
		cfg: cfg,
	}
}

// Name returns the policy name.
func (p *EMACross) Name() string {
	return EMACrossName
}

// RequiresSwingData indicates whether the policy needs daily swing data.
func (p *EMACross) RequiresSwingData() bool {
	return false
}

// Evaluate derives at most one trade signal from the provided market data.
func (p *EMACross) Evaluate(data *MarketData, open bool) (*shared.Signal, error) {
	series := data.Series
	if series.Size() < minEvaluableSize {
		return shared.NewSignal(series.Market, shared.None, "", 0), nil
	}

	closes := series.Closes()
	fast := indicator.EMA(closes, p.cfg.FastWindow)
	slow := indicator.EMA(closes, p.cfg.SlowWindow)
	exit := indicator.EMA(closes, p.cfg.ExitWindow)

	curr := len(closes) - 2
	prev := len(closes) - 3

	candle, err := series.LatestClosed()
	if err != nil {
		return nil, err
	}

	ratio, ok := entryPriceRatio(candle)
	entryCrossed := fast[prev] <= slow[prev] && fast[curr] > slow[curr]
	exitCrossed := exit[prev] >= fast[prev] && exit[curr] < fast[curr]

	switch {
	case entryCrossed && !open && ok && ratio < maxEntryPriceRatio:
		trigger := fmt.Sprintf("ema%d crossed above ema%d (%.8f > %.8f)",
			p.cfg.FastWindow, p.cfg.SlowWindow, fast[curr], slow[curr])
		return shared.NewSignal(series.Market, shared.Buy, trigger, candle.Close), nil
	case exitCrossed && open:
		trigger := fmt.Sprintf("ema%d crossed below ema%d (%.8f < %.8f)",
			p.cfg.ExitWindow, p.cfg.FastWindow, exit[curr], fast[curr])
		return shared.NewSignal(series.Market, shared.Sell, trigger, candle.Close), nil
	default:
		return shared.NewSignal(series.Market, shared.None, "", candle.Close), nil
	}
}
