package shared

import (
	"errors"
)

var (
	// ErrInsufficientData indicates a candle history too short for signal evaluation.
	ErrInsufficientData = errors.New("insufficient candle history")
	// ErrNoBalance indicates no free balance is available for an exit order.
	ErrNoBalance = errors.New("no free balance available")
)
