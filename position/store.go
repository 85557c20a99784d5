package position

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Position represents an open spot position for a market.
type Position struct {
	// Market is the pair the position was entered on.
	Market string
	// OrderID is the exchange order id of the entry buy.
	OrderID string
	// Quantity is the estimated filled quantity of the entry buy.
	Quantity decimal.Decimal
	// CreatedOn is the entry time.
	CreatedOn time.Time
}

// Store tracks open positions keyed by market. The store is process-local
// and not durable; a restart loses the mapping.
type Store struct {
	positions    map[string]*Position
	positionsMtx sync.RWMutex
}

// NewStore initializes a new position store.
func NewStore() *Store {
	return &Store{
		positions: make(map[string]*Position),
	}
}

// Get returns the tracked position for the provided market.
func (s *Store) Get(market string) (*Position, bool) {
	s.positionsMtx.RLock()
	defer s.positionsMtx.RUnlock()

	pos, ok := s.positions[market]
	return pos, ok
}

// Open checks whether the provided market has a tracked open position.
func (s *Store) Open(market string) bool {
	s.positionsMtx.RLock()
	defer s.positionsMtx.RUnlock()

	_, ok := s.positions[market]
	return ok
}

// Set tracks the provided position, replacing any existing entry for its market.
func (s *Store) Set(pos *Position) {
	s.positionsMtx.Lock()
	defer s.positionsMtx.Unlock()

	s.positions[pos.Market] = pos
}

// Clear removes the tracked position for the provided market.
func (s *Store) Clear(market string) {
	s.positionsMtx.Lock()
	defer s.positionsMtx.Unlock()

	delete(s.positions, market)
}
