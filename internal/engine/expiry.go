package engine

import (
	"sort"
	"sync"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Releaser is notified of every order the expiry manager withdraws so the
// caller can release the order's remaining reservation without the engine
// depending on the ledger.
type Releaser interface {
	OrderExpired(order *domain.Order)
}

// ExpiryManager tracks resting limit orders that carry a TTL, sorted by the
// tick at which they become eligible for expiry, and withdraws them from the
// book when swept.
type ExpiryManager struct {
	book         *OrderBook
	releaser     Releaser
	activeOrders []*domain.Order // sorted by CreatedTick+TTL ASC
	mu           sync.Mutex      // protects activeOrders slice
}

// NewExpiryManager creates an ExpiryManager bound to a book.
func NewExpiryManager(book *OrderBook, releaser Releaser) *ExpiryManager {
	return &ExpiryManager{
		book:         book,
		releaser:     releaser,
		activeOrders: make([]*domain.Order, 0),
	}
}

func deadline(o *domain.Order) int {
	return o.CreatedTick + o.TTL
}

// Add inserts an order into the sorted activeOrders slice. Orders without a
// TTL and orders that are no longer active are ignored.
func (e *ExpiryManager) Add(order *domain.Order) {
	if order.TTL <= 0 || !order.Status.Active() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	d := deadline(order)
	// Binary search for the insertion point; equal deadlines keep arrival order.
	idx := sort.Search(len(e.activeOrders), func(i int) bool {
		return deadline(e.activeOrders[i]) > d
	})
	e.activeOrders = append(e.activeOrders, nil)
	copy(e.activeOrders[idx+1:], e.activeOrders[idx:])
	e.activeOrders[idx] = order
}

// Remove deletes an order from the activeOrders slice by order ID.
func (e *ExpiryManager) Remove(orderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, o := range e.activeOrders {
		if o.OrderID == orderID {
			e.activeOrders = append(e.activeOrders[:i], e.activeOrders[i+1:]...)
			return
		}
	}
}

// Sweep expires every tracked order with tick − created_tick ≥ ttl. Orders
// that filled or were cancelled since they were added are dropped without
// notification. It returns the orders it expired, in deadline order.
func (e *ExpiryManager) Sweep(tick int) []*domain.Order {
	e.mu.Lock()
	cutoff := 0
	for cutoff < len(e.activeOrders) && e.activeOrders[cutoff].Expired(tick) {
		cutoff++
	}
	due := make([]*domain.Order, cutoff)
	copy(due, e.activeOrders[:cutoff])
	e.activeOrders = e.activeOrders[cutoff:]
	e.mu.Unlock()

	var expired []*domain.Order
	for _, order := range due {
		if !order.Status.Active() {
			continue
		}
		if _, ok := e.book.Withdraw(order.OrderID, domain.OrderStatusExpired); !ok {
			continue
		}
		if e.releaser != nil {
			e.releaser.OrderExpired(order)
		}
		expired = append(expired, order)
	}
	return expired
}

// ActiveOrderCount returns the number of orders currently tracked for
// expiration.
func (e *ExpiryManager) ActiveOrderCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.activeOrders)
}
