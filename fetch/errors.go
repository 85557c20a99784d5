package fetch

import (
	"fmt"
)

// TransportError represents a network or http transport failure.
type TransportError struct {
	Op  string
	Err error
}

// Error stringifies the transport error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause of the transport error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectionError represents a request rejected by the exchange.
type RejectionError struct {
	StatusCode int
	Message    string
}

// Error stringifies the rejection error.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("exchange rejected request (%d): %s", e.StatusCode, e.Message)
}
