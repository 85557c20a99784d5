package shared

import (
	"github.com/shopspring/decimal"
)

// Symbol represents a tradable pair listed on the exchange.
type Symbol struct {
	// Name is the pair identifier, eg. BTCUSDT.
	Name string
	// Base is the base asset of the pair.
	Base string
	// Quote is the quote asset of the pair.
	Quote string
	// Tradable indicates whether the exchange currently allows trading the pair.
	Tradable bool
	// QuantityPrecision is the number of decimal places allowed for order quantities.
	QuantityPrecision int32
	// MinNotional is the minimum order size in quote currency.
	MinNotional decimal.Decimal
}
