package shared

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarketFetcher defines the requirements for fetching exchange market data.
type MarketFetcher interface {
	// FetchCandles fetches the candle history for the provided market and interval.
	FetchCandles(ctx context.Context, market string, interval Interval, limit int) (*CandleSeries, error)
	// FetchTopOfBook fetches the best bid and ask for the provided market.
	FetchTopOfBook(ctx context.Context, market string) (decimal.Decimal, decimal.Decimal, error)
	// FetchFreeBalance fetches the free balance of the provided asset. It
	// returns zero on any error so a failed balance check cannot abort a
	// polling cycle.
	FetchFreeBalance(ctx context.Context, asset string) decimal.Decimal
}

// OrderPlacer defines the requirements for placing exchange orders.
type OrderPlacer interface {
	// PlaceMarketOrder places a market order on the exchange.
	PlaceMarketOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error)
}
