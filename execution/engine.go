package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidemark/skimmer/position"
	"github.com/tidemark/skimmer/shared"
)

const (
	// maxSellAttempts is the maximum total attempts for a sell order.
	maxSellAttempts = 5
	// defaultSellRetryDelay is the default wait between sell attempts.
	defaultSellRetryDelay = time.Second * 5
)

// Trade represents an executed market order.
type Trade struct {
	ID        string
	Market    string
	Side      shared.Action
	Quantity  decimal.Decimal
	Notional  decimal.Decimal
	OrderID   string
	CreatedOn uint64
}

// EngineConfig represents the order execution engine configuration.
type EngineConfig struct {
	// Fetcher represents the exchange market data fetcher.
	Fetcher shared.MarketFetcher
	// Placer represents the exchange order placer.
	Placer shared.OrderPlacer
	// Positions is the keyed position store owned by the engine.
	Positions *position.Store
	// Notify sends the provided failure message for the market, best effort.
	Notify func(market string, message string)
	// PersistTrade persists the provided executed trade, best effort.
	PersistTrade func(ctx context.Context, trade *Trade) error
	// BuyNotional is the quote notional used for entry buys.
	BuyNotional decimal.Decimal
	// SkimNotional is the quote notional of the partial sell placed right
	// after an entry buy.
	SkimNotional decimal.Decimal
	// SellRetryDelay is the wait between sell attempts.
	SellRetryDelay time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Engine executes trade signals as exchange market orders and owns the
// position store mutations.
type Engine struct {
	cfg *EngineConfig
}

// NewEngine initializes a new order execution engine.
func NewEngine(cfg *EngineConfig) *Engine {
	if cfg.SellRetryDelay == 0 {
		cfg.SellRetryDelay = defaultSellRetryDelay
	}

	return &Engine{
		cfg: cfg,
	}
}

// HandleSignal executes the provided trade signal for the symbol.
func (e *Engine) HandleSignal(ctx context.Context, sym *shared.Symbol, signal *shared.Signal) {
	switch signal.Action {
	case shared.Buy:
		e.executeEntry(ctx, sym, signal)
	case shared.Sell:
		e.executeExit(ctx, sym)
	default:
		// do nothing.
	}
}

// executeEntry places the entry buy for the symbol and the skim sell
// following it. Market buys are not idempotent against the exchange, so a
// failed buy is never retried and leaves the position state unchanged.
func (e *Engine) executeEntry(ctx context.Context, sym *shared.Symbol, signal *shared.Signal) {
	if e.cfg.Positions.Open(sym.Name) {
		e.cfg.Logger.Warn().Msgf("buy signal for %s but a position is already tracked", sym.Name)
		return
	}

	notional := e.cfg.BuyNotional
	if notional.LessThan(sym.MinNotional) {
		notional = sym.MinNotional
	}

	bid, ask, err := e.cfg.Fetcher.FetchTopOfBook(ctx, sym.Name)
	if err != nil {
		e.cfg.Logger.Error().Msgf("fetching top of book for %s entry: %v", sym.Name, err)
		return
	}
	if !bid.IsPositive() || !ask.IsPositive() {
		e.cfg.Logger.Error().Msgf("top of book for %s is empty, skipping entry", sym.Name)
		return
	}

	req := &shared.OrderRequest{
		Market:        sym.Name,
		Side:          shared.Buy,
		Notional:      notional,
		ClientOrderID: uuid.New().String(),
	}

	result, err := e.cfg.Placer.PlaceMarketOrder(ctx, req)
	if err != nil {
		e.cfg.Logger.Error().Msgf("entry buy for %s failed: %v", sym.Name, err)
		return
	}

	quantity := notional.Div(ask).RoundFloor(sym.QuantityPrecision)
	e.cfg.Positions.Set(&position.Position{
		Market:    sym.Name,
		OrderID:   result.OrderID,
		Quantity:  quantity,
		CreatedOn: time.Now().UTC(),
	})

	e.cfg.Logger.Info().Msgf("entered %s: order %s, ~%s %s for %s %s (%s)",
		sym.Name, result.OrderID, quantity.String(), sym.Base, notional.String(),
		sym.Quote, signal.Trigger)

	e.persistTrade(ctx, &Trade{
		ID:        req.ClientOrderID,
		Market:    sym.Name,
		Side:      shared.Buy,
		Quantity:  quantity,
		Notional:  notional,
		OrderID:   result.OrderID,
		CreatedOn: uint64(time.Now().Unix()),
	})

	// Skim a smaller notional right away to recover most of the entry cost.
	// The skim never mutates the tracked position.
	skimQuantity := e.cfg.SkimNotional.Div(bid).RoundFloor(sym.QuantityPrecision)
	skimResult, err := e.submitSell(ctx, sym, skimQuantity, false)
	if err != nil {
		e.cfg.Logger.Error().Msgf("skim sell for %s failed: %v", sym.Name, err)
		return
	}

	e.persistTrade(ctx, &Trade{
		ID:        uuid.New().String(),
		Market:    sym.Name,
		Side:      shared.Sell,
		Quantity:  skimQuantity,
		Notional:  e.cfg.SkimNotional,
		OrderID:   skimResult.OrderID,
		CreatedOn: uint64(time.Now().Unix()),
	})
}

// executeExit sells the full free balance of the symbol's base asset and
// clears the tracked position on success.
func (e *Engine) executeExit(ctx context.Context, sym *shared.Symbol) {
	balance := e.cfg.Fetcher.FetchFreeBalance(ctx, sym.Base)
	quantity := balance.RoundFloor(sym.QuantityPrecision)
	if !quantity.IsPositive() {
		e.cfg.Logger.Error().Msgf("exit sell for %s: %v", sym.Name, shared.ErrNoBalance)
		return
	}

	result, err := e.submitSell(ctx, sym, quantity, true)
	if err != nil {
		// The failure notification was already dispatched.
		e.cfg.Logger.Error().Msgf("exit sell for %s failed: %v", sym.Name, err)
		return
	}

	e.cfg.Positions.Clear(sym.Name)
	e.cfg.Logger.Info().Msgf("exited %s: order %s, %s %s", sym.Name, result.OrderID,
		quantity.String(), sym.Base)

	e.persistTrade(ctx, &Trade{
		ID:        uuid.New().String(),
		Market:    sym.Name,
		Side:      shared.Sell,
		Quantity:  quantity,
		OrderID:   result.OrderID,
		CreatedOn: uint64(time.Now().Unix()),
	})
}

// submitSell places a sell market order, retrying up to maxSellAttempts with
// a fixed wait between attempts. When refreshQuantity is set, the quantity is
// recomputed from the fresh free balance before each retry. Exhausted retries
// escalate once to the notification sink.
func (e *Engine) submitSell(ctx context.Context, sym *shared.Symbol, quantity decimal.Decimal, refreshQuantity bool) (*shared.OrderResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxSellAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.cfg.SellRetryDelay):
			}

			if refreshQuantity {
				refreshed := e.cfg.Fetcher.FetchFreeBalance(ctx, sym.Base).RoundFloor(sym.QuantityPrecision)
				if !refreshed.IsPositive() {
					lastErr = fmt.Errorf("refreshing sell quantity for %s: %w", sym.Name, shared.ErrNoBalance)
					continue
				}
				quantity = refreshed
			}
		}

		req := &shared.OrderRequest{
			Market:        sym.Name,
			Side:          shared.Sell,
			Quantity:      quantity,
			ClientOrderID: uuid.New().String(),
		}

		result, err := e.cfg.Placer.PlaceMarketOrder(ctx, req)
		if err == nil {
			return result, nil
		}

		lastErr = err
		e.cfg.Logger.Error().Msgf("sell attempt %d/%d for %s failed: %v",
			attempt, maxSellAttempts, sym.Name, err)
	}

	if e.cfg.Notify != nil {
		e.cfg.Notify(sym.Name, lastErr.Error())
	}

	return nil, fmt.Errorf("sell for %s failed after %d attempts: %w",
		sym.Name, maxSellAttempts, lastErr)
}

// persistTrade journals the provided trade, logging and discarding any error.
func (e *Engine) persistTrade(ctx context.Context, trade *Trade) {
	if e.cfg.PersistTrade == nil {
		return
	}

	if err := e.cfg.PersistTrade(ctx, trade); err != nil {
		e.cfg.Logger.Error().Msgf("persisting trade for %s: %v", trade.Market, err)
	}
}
