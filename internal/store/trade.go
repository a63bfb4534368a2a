package store

import (
	"sync"

	"github.com/efreitasn/marketsim/internal/domain"
)

// TradeStore is a thread-safe in-memory store for trades. Trades are
// append-only and chronological, with a secondary index by agent.
type TradeStore struct {
	mu      sync.RWMutex
	trades  []*domain.Trade
	byAgent map[string][]*domain.Trade
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		byAgent: make(map[string][]*domain.Trade),
	}
}

// Append adds trades to the chronological list and indexes them under
// both counterparties.
func (s *TradeStore) Append(trades ...*domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		s.trades = append(s.trades, t)
		s.byAgent[t.Buyer] = append(s.byAgent[t.Buyer], t)
		if t.Seller != t.Buyer {
			s.byAgent[t.Seller] = append(s.byAgent[t.Seller], t)
		}
	}
}

// All returns every trade in chronological order.
func (s *TradeStore) All() []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to avoid callers mutating the internal slice.
	result := make([]*domain.Trade, len(s.trades))
	copy(result, s.trades)
	return result
}

// ByAgent returns the trades an agent took part in, chronologically.
// Returns an empty slice if the agent has no trades.
func (s *TradeStore) ByAgent(agent string) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.byAgent[agent]
	result := make([]*domain.Trade, len(trades))
	copy(result, trades)
	return result
}

// Len returns the number of trades.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}
