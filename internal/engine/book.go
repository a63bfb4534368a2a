package engine

import (
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/marketsim/internal/domain"
)

// OrderBookEntry represents a single order resting on the book. Seq is the
// arrival sequence assigned by the book; it never changes while the order
// rests, so partial fills keep their time priority.
type OrderBookEntry struct {
	Price   int64
	Seq     uint64
	OrderID string
	Order   *domain.Order
}

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price         int64 `json:"price"`
	TotalQuantity int64 `json:"quantity"`
	OrderCount    int   `json:"orders"`
}

// Depth is the top-N projection of both sides of the book.
type Depth struct {
	Bids   []PriceLevel `json:"bids"`
	Asks   []PriceLevel `json:"asks"`
	Spread *int64       `json:"spread"`
}

// BookStats summarises the book at a point in time.
type BookStats struct {
	RestingOrders  int    `json:"total_orders"`
	BidOrders      int    `json:"bid_orders"`
	AskOrders      int    `json:"ask_orders"`
	Trades         int    `json:"total_trades"`
	LastTradePrice *int64 `json:"last_trade_price"`
	BestBid        *int64 `json:"best_bid"`
	BestAsk        *int64 `json:"best_ask"`
	Spread         *int64 `json:"spread"`
}

// bidLess defines ordering for the bid side: price descending, then
// arrival sequence ascending. Min() returns the best bid.
func bidLess(a, b OrderBookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return a.Seq < b.Seq
}

// askLess defines ordering for the ask side: price ascending, then
// arrival sequence ascending. Min() returns the best ask.
func askLess(a, b OrderBookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.Seq < b.Seq
}

// OrderBook maintains the bid and ask sides for a single instrument using
// B-trees with a secondary index for O(log n) removal by order ID.
type OrderBook struct {
	symbol string
	mu     sync.RWMutex
	bids   *btree.BTreeG[OrderBookEntry]
	asks   *btree.BTreeG[OrderBookEntry]
	index  map[string]OrderBookEntry // order_id → entry
	seen   map[string]struct{}       // every order_id ever submitted
	seq    uint64

	trades         int
	lastTradePrice int64
}

// NewOrderBook creates an empty order book for the given symbol.
func NewOrderBook(symbol string) *OrderBook {
	const degree = 32
	return &OrderBook{
		symbol: symbol,
		bids:   btree.NewG[OrderBookEntry](degree, bidLess),
		asks:   btree.NewG[OrderBookEntry](degree, askLess),
		index:  make(map[string]OrderBookEntry),
		seen:   make(map[string]struct{}),
	}
}

// Symbol returns the instrument this book trades.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// insert rests an order on its side of the book. Callers hold the write lock.
func (ob *OrderBook) insert(order *domain.Order) {
	ob.seq++
	order.Seq = ob.seq
	entry := OrderBookEntry{
		Price:   order.Price,
		Seq:     order.Seq,
		OrderID: order.OrderID,
		Order:   order,
	}
	if order.Side == domain.OrderSideBuy {
		ob.bids.ReplaceOrInsert(entry)
	} else {
		ob.asks.ReplaceOrInsert(entry)
	}
	ob.index[entry.OrderID] = entry
}

// remove deletes an order from the book by order ID using the secondary
// index. Callers hold the write lock.
func (ob *OrderBook) remove(orderID string) (OrderBookEntry, bool) {
	entry, ok := ob.index[orderID]
	if !ok {
		return OrderBookEntry{}, false
	}
	delete(ob.index, orderID)
	if entry.Order.Side == domain.OrderSideBuy {
		ob.bids.Delete(entry)
	} else {
		ob.asks.Delete(entry)
	}
	return entry, true
}

// Cancel removes a resting order and marks it cancelled. It reports whether
// the order was on the book; cancelling an unknown order is a no-op.
func (ob *OrderBook) Cancel(orderID string) bool {
	_, ok := ob.Withdraw(orderID, domain.OrderStatusCancelled)
	return ok
}

// Withdraw removes a resting order and closes it with the given terminal
// status (cancelled or expired). The withdrawn order is returned so the
// caller can release whatever it still had reserved.
func (ob *OrderBook) Withdraw(orderID string, status domain.OrderStatus) (*domain.Order, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	entry, ok := ob.remove(orderID)
	if !ok {
		return nil, false
	}
	entry.Order.Close(status)
	return entry.Order, true
}

// Contains reports whether the order is resting on the book.
func (ob *OrderBook) Contains(orderID string) bool {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	_, ok := ob.index[orderID]
	return ok
}

// BestBid returns the highest resting bid price.
func (ob *OrderBook) BestBid() (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	e, ok := ob.bids.Min()
	return e.Price, ok
}

// BestAsk returns the lowest resting ask price.
func (ob *OrderBook) BestAsk() (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	e, ok := ob.asks.Min()
	return e.Price, ok
}

// Depth returns up to levels aggregated price levels per side, best first,
// plus the current spread when both sides are populated.
func (ob *OrderBook) Depth(levels int) Depth {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return Depth{
		Bids:   topLevels(ob.bids, levels),
		Asks:   topLevels(ob.asks, levels),
		Spread: ob.spread(),
	}
}

// Stats returns resting order counts, trade totals and the top of book.
func (ob *OrderBook) Stats() BookStats {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	s := BookStats{
		RestingOrders: len(ob.index),
		BidOrders:     ob.bids.Len(),
		AskOrders:     ob.asks.Len(),
		Trades:        ob.trades,
		Spread:        ob.spread(),
	}
	if ob.trades > 0 {
		p := ob.lastTradePrice
		s.LastTradePrice = &p
	}
	if e, ok := ob.bids.Min(); ok {
		p := e.Price
		s.BestBid = &p
	}
	if e, ok := ob.asks.Min(); ok {
		p := e.Price
		s.BestAsk = &p
	}
	return s
}

// Resting returns the resting orders of both sides in priority order,
// bids first.
func (ob *OrderBook) Resting() []*domain.Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	out := make([]*domain.Order, 0, len(ob.index))
	collect := func(e OrderBookEntry) bool {
		out = append(out, e.Order)
		return true
	}
	ob.bids.Ascend(collect)
	ob.asks.Ascend(collect)
	return out
}

func (ob *OrderBook) spread() *int64 {
	bid, okb := ob.bids.Min()
	ask, oka := ob.asks.Min()
	if !okb || !oka {
		return nil
	}
	s := ask.Price - bid.Price
	return &s
}

// topLevels iterates the B-tree in order and aggregates entries into
// at most n price levels.
func topLevels(tree *btree.BTreeG[OrderBookEntry], n int) []PriceLevel {
	levels := make([]PriceLevel, 0, max(n, 0))
	if n <= 0 {
		return levels
	}
	tree.Ascend(func(entry OrderBookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price == entry.Price {
			levels[len(levels)-1].TotalQuantity += entry.Order.RemainingQuantity
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.Price,
			TotalQuantity: entry.Order.RemainingQuantity,
			OrderCount:    1,
		})
		return true
	})
	return levels
}
