package shared

import (
	"github.com/shopspring/decimal"
)

// OrderRequest represents a market order request. Exactly one of Quantity and
// Notional is set: sells are sized in base quantity, buys in quote notional.
type OrderRequest struct {
	Market        string
	Side          Action
	Quantity      decimal.Decimal
	Notional      decimal.Decimal
	ClientOrderID string
}

// OrderResult represents the exchange response to a placed order.
type OrderResult struct {
	OrderID string
	Filled  bool
}
