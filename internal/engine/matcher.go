package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/marketsim/internal/domain"
)

// QuotePriceLevel represents a single price level in a quote simulation.
type QuotePriceLevel struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
}

// QuoteResult holds the result of a market order simulation.
type QuoteResult struct {
	QuantityRequested int64             `json:"quantity_requested"`
	QuantityAvailable int64             `json:"quantity_available"`
	FullyFillable     bool              `json:"fully_fillable"`
	EstimatedAvgPrice *int64            `json:"estimated_average_price"` // nil when no liquidity
	EstimatedTotal    *int64            `json:"estimated_total"`         // nil when no liquidity
	PriceLevels       []QuotePriceLevel `json:"price_levels"`
}

// Submit matches an incoming order against the opposite side of the book
// and returns the resulting trades in execution order.
//
// Limit orders match while the best opposite price is at least as good as
// the limit and rest any remainder. Market orders take the best opposite
// order until filled or the opposite side is empty; the remainder is
// discarded and the order closes cancelled. Every trade prints at the
// resting order's price.
//
// The order must carry a unique OrderID. Reusing an ID is a programming
// error and panics.
func (ob *OrderBook) Submit(order *domain.Order, tick int) []*domain.Trade {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if order.OrderID == "" {
		panic("engine: order submitted without an id")
	}
	if _, dup := ob.seen[order.OrderID]; dup {
		panic(fmt.Sprintf("engine: duplicate order id %s", order.OrderID))
	}
	ob.seen[order.OrderID] = struct{}{}

	executedAt := time.Now()
	var trades []*domain.Trade

	for order.RemainingQuantity > 0 {
		var best OrderBookEntry
		var found bool
		if order.Side == domain.OrderSideBuy {
			best, found = ob.asks.Min()
		} else {
			best, found = ob.bids.Min()
		}
		if !found {
			break
		}

		if order.Type == domain.OrderTypeLimit {
			if order.Side == domain.OrderSideBuy && order.Price < best.Price {
				break
			}
			if order.Side == domain.OrderSideSell && best.Price < order.Price {
				break
			}
		}

		resting := best.Order
		fillQty := min(order.RemainingQuantity, resting.RemainingQuantity)

		order.Fill(fillQty)
		resting.Fill(fillQty)

		trade := &domain.Trade{
			TradeID:    uuid.New().String(),
			Price:      resting.Price,
			Quantity:   fillQty,
			Tick:       tick,
			ExecutedAt: executedAt,
		}
		if order.Side == domain.OrderSideBuy {
			trade.Buyer, trade.BuyOrderID = order.Agent, order.OrderID
			trade.Seller, trade.SellOrderID = resting.Agent, resting.OrderID
		} else {
			trade.Buyer, trade.BuyOrderID = resting.Agent, resting.OrderID
			trade.Seller, trade.SellOrderID = order.Agent, order.OrderID
		}

		order.Trades = append(order.Trades, trade)
		resting.Trades = append(resting.Trades, trade)
		trades = append(trades, trade)

		ob.trades++
		ob.lastTradePrice = trade.Price

		// A fully filled resting order leaves the book immediately.
		if resting.RemainingQuantity == 0 {
			ob.remove(resting.OrderID)
		}
	}

	if order.RemainingQuantity > 0 {
		if order.Type == domain.OrderTypeMarket {
			order.Close(domain.OrderStatusCancelled)
		} else {
			ob.insert(order)
		}
	}

	return trades
}

// Quote performs a read-only walk of the opposite side of the book to
// estimate the result of a market order without placing it. Buy quotes
// walk asks (lowest first); sell quotes walk bids (highest first).
func (ob *OrderBook) Quote(side domain.OrderSide, quantity int64) *QuoteResult {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	result := &QuoteResult{
		QuantityRequested: quantity,
		PriceLevels:       make([]QuotePriceLevel, 0),
	}

	remaining := quantity
	var totalCost int64

	walkFn := func(entry OrderBookEntry) bool {
		if remaining <= 0 {
			return false
		}
		fillQty := min(entry.Order.RemainingQuantity, remaining)
		totalCost += entry.Price * fillQty
		result.QuantityAvailable += fillQty
		remaining -= fillQty

		if n := len(result.PriceLevels); n > 0 && result.PriceLevels[n-1].Price == entry.Price {
			result.PriceLevels[n-1].Quantity += fillQty
		} else {
			result.PriceLevels = append(result.PriceLevels, QuotePriceLevel{
				Price:    entry.Price,
				Quantity: fillQty,
			})
		}
		return remaining > 0
	}

	if side == domain.OrderSideBuy {
		ob.asks.Ascend(walkFn)
	} else {
		ob.bids.Ascend(walkFn)
	}

	if result.QuantityAvailable > 0 {
		avgPrice := totalCost / result.QuantityAvailable
		result.EstimatedAvgPrice = &avgPrice
		result.EstimatedTotal = &totalCost
	}
	result.FullyFillable = result.QuantityAvailable >= quantity

	return result
}

// AffordableBuy walks the ask ladder and returns the largest quantity, up
// to quantity, whose total cost fits in budget, together with that cost.
// It is used to clamp market buys, which carry no limit price.
func (ob *OrderBook) AffordableBuy(quantity, budget int64) (qty, cost int64) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	ob.asks.Ascend(func(entry OrderBookEntry) bool {
		if qty >= quantity || entry.Price <= 0 {
			return false
		}
		take := min(entry.Order.RemainingQuantity, quantity-qty)
		if afford := (budget - cost) / entry.Price; afford < take {
			take = afford
		}
		if take <= 0 {
			return false
		}
		qty += take
		cost += take * entry.Price
		return qty < quantity
	})
	return qty, cost
}
