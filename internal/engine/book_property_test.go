package engine

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Price-time priority: among same-side orders at the same price, earlier
// arrivals fill first.

func TestProperty_PriceTimePriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 8).Draw(t, "n")
		price := rapid.Int64Range(1, 1000).Draw(t, "price")

		ob := NewOrderBook("SIM")
		resting := make([]*domain.Order, n)
		var total int64
		for i := range resting {
			qty := rapid.Int64Range(1, 20).Draw(t, "qty")
			resting[i] = limitSell("s", price, qty)
			ob.Submit(resting[i], 0)
			total += qty
		}

		take := rapid.Int64Range(1, total).Draw(t, "take")
		trades := ob.Submit(limitBuy("b", price, take), 1)

		// Fills must consume resting orders strictly in arrival order.
		idx := 0
		for _, tr := range trades {
			for idx < n && resting[idx].OrderID != tr.SellOrderID {
				if resting[idx].RemainingQuantity != 0 {
					t.Fatalf("order %d skipped while it still had %d remaining", idx, resting[idx].RemainingQuantity)
				}
				idx++
			}
			if idx == n {
				t.Fatalf("trade against unknown order %s", tr.SellOrderID)
			}
		}
		for i := 0; i < idx; i++ {
			if resting[i].RemainingQuantity != 0 {
				t.Fatalf("earlier order %d not exhausted before later fills", i)
			}
		}
	})
}

// The book never stays crossed and never holds zero-quantity entries.

func TestProperty_BookUncrossedAndPositive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook("SIM")
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			side := domain.OrderSideBuy
			if rapid.Bool().Draw(t, "sell") {
				side = domain.OrderSideSell
			}
			qty := rapid.Int64Range(1, 50).Draw(t, "qty")
			var req domain.OrderRequest
			if rapid.IntRange(0, 4).Draw(t, "kind") == 0 {
				req = domain.Market(side, qty)
			} else {
				req = domain.Limit(side, rapid.Int64Range(90, 110).Draw(t, "price"), qty)
			}
			ob.Submit(newOrder("a", req, i, 0), i)

			bid, okb := ob.BestBid()
			ask, oka := ob.BestAsk()
			if okb && oka && bid >= ask {
				t.Fatalf("book crossed: bid %d >= ask %d", bid, ask)
			}
			for _, o := range ob.Resting() {
				if o.RemainingQuantity <= 0 {
					t.Fatalf("resting order %s has quantity %d", o.OrderID, o.RemainingQuantity)
				}
				if o.Type != domain.OrderTypeLimit {
					t.Fatalf("market order %s rests on the book", o.OrderID)
				}
			}
		}
	})
}
