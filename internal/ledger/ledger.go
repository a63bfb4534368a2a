// Package ledger tracks capacity earmarked for live orders so that no agent
// can commit, across all of its orders, more cash or shares than it can
// cover.
//
// Reservations are taken in full when an order is admitted (quantity ×
// limit price for buys, quantity for sells) and released as the order fills,
// is cancelled or expires. Fill releases use the order's limit price, never
// the trade price, and are capped at what the order still has reserved.
package ledger

import (
	"fmt"
	"sync"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Limits configures margin and short selling. A limit only applies when its
// matching Allow flag is set.
type Limits struct {
	AllowNegativeCash bool
	CashBorrowLimit   int64 // cents
	AllowShort        bool
	MaxShortShares    int64
}

// BorrowLimit returns the effective cash borrow allowance.
func (l Limits) BorrowLimit() int64 {
	if !l.AllowNegativeCash {
		return 0
	}
	return l.CashBorrowLimit
}

// ShortLimit returns the effective short allowance in shares.
func (l Limits) ShortLimit() int64 {
	if !l.AllowShort {
		return 0
	}
	return l.MaxShortShares
}

// Reservation is what one live order has earmarked. Price is the order's
// limit price; a zero price marks a budgeted market buy that releases at
// trade price.
type Reservation struct {
	OrderID string
	Agent   string
	Side    domain.OrderSide
	Price   int64
	Cash    int64
	Shares  int64
}

// Ledger keeps the per-order and per-agent reservation books.
type Ledger struct {
	mu     sync.RWMutex
	limits Limits
	orders map[string]*Reservation // order_id → reservation
	cash   map[string]int64        // agent → reserved cash
	shares map[string]int64        // agent → reserved shares
}

// New creates an empty ledger.
func New(limits Limits) *Ledger {
	return &Ledger{
		limits: limits,
		orders: make(map[string]*Reservation),
		cash:   make(map[string]int64),
		shares: make(map[string]int64),
	}
}

// Limits returns the configured margin and short limits.
func (l *Ledger) Limits() Limits {
	return l.limits
}

// AvailableCash returns the agent's unreserved cash, including the borrow
// allowance. It may be negative if balances moved against the agent.
func (l *Ledger) AvailableCash(agent string, p domain.Portfolio) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return p.Cash - l.cash[agent] + l.limits.BorrowLimit()
}

// AvailableShares returns the agent's unreserved shares, including the
// short allowance.
func (l *Ledger) AvailableShares(agent string, p domain.Portfolio) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return p.Stock - l.shares[agent] + l.limits.ShortLimit()
}

// Clamp returns the quantity of req the agent can cover right now:
// floor(available_cash / price) for buys and max(0, available_shares) for
// sells, capped at the requested quantity. A result of 0 means the order
// must be dropped. Buys without a positive price clamp to 0; market buys
// are sized against the ask ladder instead.
func (l *Ledger) Clamp(agent string, p domain.Portfolio, req domain.OrderRequest) int64 {
	if req.Quantity <= 0 {
		return 0
	}
	if req.Side == domain.OrderSideBuy {
		if req.Price <= 0 {
			return 0
		}
		avail := l.AvailableCash(agent, p)
		if avail <= 0 {
			return 0
		}
		return min(req.Quantity, avail/req.Price)
	}
	avail := l.AvailableShares(agent, p)
	if avail <= 0 {
		return 0
	}
	return min(req.Quantity, avail)
}

// Reserve earmarks capacity for an admitted order: qty × price cash for a
// buy or qty shares for a sell.
func (l *Ledger) Reserve(order *domain.Order) error {
	r := &Reservation{
		OrderID: order.OrderID,
		Agent:   order.Agent,
		Side:    order.Side,
		Price:   order.Price,
	}
	if order.Side == domain.OrderSideBuy {
		r.Cash = order.Price * order.Quantity
	} else {
		r.Shares = order.Quantity
	}
	return l.put(r)
}

// ReserveBudget earmarks a fixed cash budget for a market buy. Fills release
// at trade price; whatever is left is released when the order closes.
func (l *Ledger) ReserveBudget(order *domain.Order, budget int64) error {
	return l.put(&Reservation{
		OrderID: order.OrderID,
		Agent:   order.Agent,
		Side:    domain.OrderSideBuy,
		Cash:    budget,
	})
}

func (l *Ledger) put(r *Reservation) error {
	if r.Cash < 0 || r.Shares < 0 {
		return fmt.Errorf("negative reservation for order %s: %w", r.OrderID, domain.ErrInvariantViolation)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.orders[r.OrderID]; ok {
		return fmt.Errorf("order %s already reserved: %w", r.OrderID, domain.ErrInvariantViolation)
	}
	l.orders[r.OrderID] = r
	l.cash[r.Agent] += r.Cash
	l.shares[r.Agent] += r.Shares
	return nil
}

// ReleaseFill releases the reservation consumed by an execution of qty
// shares of orderID at tradePrice. Buy orders release qty × limit price,
// budgeted market buys release qty × tradePrice, sells release qty shares;
// every release is capped at what remains. It returns the cash and shares
// released. Orders without a reservation release nothing.
func (l *Ledger) ReleaseFill(orderID string, tradePrice, qty int64) (cash, shares int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.orders[orderID]
	if !ok {
		return 0, 0
	}
	if r.Side == domain.OrderSideBuy {
		price := r.Price
		if price == 0 {
			price = tradePrice
		}
		cash = min(r.Cash, price*qty)
		r.Cash -= cash
		l.cash[r.Agent] -= cash
	} else {
		shares = min(r.Shares, qty)
		r.Shares -= shares
		l.shares[r.Agent] -= shares
	}
	if r.Cash == 0 && r.Shares == 0 {
		delete(l.orders, orderID)
	}
	l.compact(r.Agent)
	return cash, shares
}

// Release frees everything the order still has reserved and forgets it.
// Used on cancellation, expiry and market-order close.
func (l *Ledger) Release(orderID string) (cash, shares int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.orders[orderID]
	if !ok {
		return 0, 0
	}
	delete(l.orders, orderID)
	l.cash[r.Agent] -= r.Cash
	l.shares[r.Agent] -= r.Shares
	l.compact(r.Agent)
	return r.Cash, r.Shares
}

// compact drops zeroed per-agent totals. Callers hold the write lock.
func (l *Ledger) compact(agent string) {
	if l.cash[agent] == 0 {
		delete(l.cash, agent)
	}
	if l.shares[agent] == 0 {
		delete(l.shares, agent)
	}
}

// Reserved returns the agent's aggregate reserved cash and shares.
func (l *Ledger) Reserved(agent string) (cash, shares int64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash[agent], l.shares[agent]
}

// Order returns a copy of the reservation held by orderID.
func (l *Ledger) Order(orderID string) (Reservation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.orders[orderID]
	if !ok {
		return Reservation{}, false
	}
	return *r, true
}

// Len returns the number of orders holding a reservation.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}

// Check verifies cash − reserved_cash ≥ −borrow_limit and
// stock − reserved_shares ≥ −short_limit for the agent, and that the
// per-agent totals equal the sum of that agent's order reservations.
func (l *Ledger) Check(agent string, p domain.Portfolio) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var cash, shares int64
	for _, r := range l.orders {
		if r.Agent != agent {
			continue
		}
		if r.Cash < 0 || r.Shares < 0 {
			return fmt.Errorf("order %s has negative reservation: %w", r.OrderID, domain.ErrInvariantViolation)
		}
		cash += r.Cash
		shares += r.Shares
	}
	if cash != l.cash[agent] || shares != l.shares[agent] {
		return fmt.Errorf("agent %s reserved totals %d/%d disagree with orders %d/%d: %w",
			agent, l.cash[agent], l.shares[agent], cash, shares, domain.ErrInvariantViolation)
	}
	if p.Cash-cash < -l.limits.BorrowLimit() {
		return fmt.Errorf("agent %s overspent: cash %d reserved %d: %w", agent, p.Cash, cash, domain.ErrInvariantViolation)
	}
	if p.Stock-shares < -l.limits.ShortLimit() {
		return fmt.Errorf("agent %s oversold: stock %d reserved %d: %w", agent, p.Stock, shares, domain.ErrInvariantViolation)
	}
	return nil
}
