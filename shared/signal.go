package shared

import (
	"time"
)

// Action represents the action advised by a trade signal.
type Action int

const (
	None Action = iota
	Buy
	Sell
)

// String stringifies the provided action.
func (a *Action) String() string {
	switch *a {
	case None:
		return "none"
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Signal represents a trade signal for a market. At most one signal is
// emitted per market per polling cycle.
type Signal struct {
	Market    string
	Action    Action
	Trigger   string
	Price     float64
	CreatedOn time.Time
}

// NewSignal initializes a new trade signal.
func NewSignal(market string, action Action, trigger string, price float64) *Signal {
	return &Signal{
		Market:    market,
		Action:    action,
		Trigger:   trigger,
		Price:     price,
		CreatedOn: time.Now().UTC(),
	}
}
