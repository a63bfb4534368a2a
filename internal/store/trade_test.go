package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/marketsim/internal/domain"
)

func newTestTrade(id, buyer, seller string, executedAt time.Time) *domain.Trade {
	return &domain.Trade{
		TradeID:     id,
		Buyer:       buyer,
		Seller:      seller,
		BuyOrderID:  "order-b",
		SellOrderID: "order-s",
		Price:       10000, // $100.00
		Quantity:    10,
		ExecutedAt:  executedAt,
	}
}

func TestTradeStore_Append_and_All(t *testing.T) {
	s := NewTradeStore()
	now := time.Now()

	s.Append(newTestTrade("trade-1", "alice", "bob", now))
	s.Append(newTestTrade("trade-2", "bob", "carol", now.Add(time.Second)))

	trades := s.All()
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].TradeID != "trade-1" {
		t.Fatalf("expected trade-1 first, got %s", trades[0].TradeID)
	}
	if trades[1].TradeID != "trade-2" {
		t.Fatalf("expected trade-2 second, got %s", trades[1].TradeID)
	}
}

func TestTradeStore_ByAgent(t *testing.T) {
	s := NewTradeStore()
	now := time.Now()

	s.Append(
		newTestTrade("t1", "alice", "bob", now),
		newTestTrade("t2", "carol", "alice", now),
		newTestTrade("t3", "bob", "carol", now),
	)

	if got := s.ByAgent("alice"); len(got) != 2 {
		t.Fatalf("expected 2 alice trades, got %d", len(got))
	}
	if got := s.ByAgent("bob"); len(got) != 2 || got[0].TradeID != "t1" {
		t.Fatalf("expected bob's trades t1, t3, got %v", got)
	}
	if got := s.ByAgent("nobody"); got == nil || len(got) != 0 {
		t.Fatal("expected non-nil empty slice for unknown agent")
	}
}

func TestTradeStore_SelfTradeIndexedOnce(t *testing.T) {
	s := NewTradeStore()
	s.Append(newTestTrade("t1", "alice", "alice", time.Now()))
	if got := s.ByAgent("alice"); len(got) != 1 {
		t.Fatalf("expected self-trade indexed once, got %d", len(got))
	}
}

func TestTradeStore_All_ReturnsCopy(t *testing.T) {
	s := NewTradeStore()
	s.Append(newTestTrade("trade-1", "alice", "bob", time.Now()))

	trades := s.All()
	trades[0] = nil // mutate the returned slice

	// Internal state should be unaffected.
	original := s.All()
	if original[0] == nil {
		t.Fatal("All should return a copy; internal state was mutated")
	}
}

func TestTradeStore_ConcurrentAccess(t *testing.T) {
	s := NewTradeStore()
	var wg sync.WaitGroup
	now := time.Now()

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(newTestTrade(fmt.Sprintf("trade-%d", i), "alice", "bob", now.Add(time.Duration(i)*time.Millisecond)))
		}(i)
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Fatalf("expected 100 trades, got %d", s.Len())
	}

	// Concurrent reads while appending more trades.
	for i := 100; i < 200; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Append(newTestTrade(fmt.Sprintf("trade-%d", i), "alice", "bob", now.Add(time.Duration(i)*time.Millisecond)))
		}(i)
		go func() {
			defer wg.Done()
			s.ByAgent("alice")
		}()
	}
	wg.Wait()

	if got := len(s.ByAgent("bob")); got != 200 {
		t.Fatalf("expected 200 trades, got %d", got)
	}
}
