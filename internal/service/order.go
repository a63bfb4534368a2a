package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/engine"
	"github.com/efreitasn/marketsim/internal/ledger"
	"github.com/efreitasn/marketsim/internal/store"
)

// ValidOrderStatuses lists all valid order status values for validation.
var ValidOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusPending:         true,
	domain.OrderStatusPartiallyFilled: true,
	domain.OrderStatusFilled:          true,
	domain.OrderStatusCancelled:       true,
	domain.OrderStatusExpired:         true,
}

// OrderServiceConfig controls how orders are admitted.
type OrderServiceConfig struct {
	// TTL is the lifetime in ticks given to every resting order; 0 means
	// orders never expire.
	TTL int
	// Immediate executes every admitted request at the tick price against
	// the market instead of through the book.
	Immediate bool
}

// SubmitResult is what a single submission produced.
type SubmitResult struct {
	Order  *domain.Order
	Trades []*domain.Trade
}

// OrderService runs the per-order pipeline: validate, clamp against
// unreserved capacity, reserve, match, settle and release. It also cancels
// orders and expires them when swept.
type OrderService struct {
	logger  *slog.Logger
	cfg     OrderServiceConfig
	book    *engine.OrderBook
	expiry  *engine.ExpiryManager
	ledger  *ledger.Ledger
	agents  *AgentManager
	orders  *store.OrderStore
	nowFunc func() time.Time
}

// NewOrderService creates a new OrderService with the given dependencies.
// book may be nil when cfg.Immediate is set.
func NewOrderService(
	logger *slog.Logger,
	cfg OrderServiceConfig,
	book *engine.OrderBook,
	ledger *ledger.Ledger,
	agents *AgentManager,
	orders *store.OrderStore,
) *OrderService {
	s := &OrderService{
		logger:  logger,
		cfg:     cfg,
		book:    book,
		ledger:  ledger,
		agents:  agents,
		orders:  orders,
		nowFunc: time.Now,
	}
	if book != nil {
		s.expiry = engine.NewExpiryManager(book, s)
	}
	return s
}

// Submit admits one request from agent at tick, with price the current
// market price.
//
// Errors:
//   - *domain.ValidationError: the request is malformed; drop it.
//   - domain.ErrInsufficientCapacity: clamping left nothing; drop it.
//   - domain.ErrNoLiquidity: a market order met an empty opposite side.
//   - domain.ErrAgentNotFound: the agent is not registered.
//   - domain.ErrInvariantViolation: settlement found the books
//     inconsistent; the run must stop.
func (s *OrderService) Submit(agent string, req domain.OrderRequest, tick int, price int64) (*SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	acc, err := s.agents.Get(agent)
	if err != nil {
		return nil, err
	}

	if s.cfg.Immediate || s.book == nil {
		return s.executeImmediate(acc, req, tick, price)
	}

	qty, budget, err := s.clamp(acc, req)
	if err != nil {
		return nil, err
	}
	req.Quantity = qty

	order := domain.NewOrder(agent, req, tick, s.cfg.TTL, s.nowFunc())
	order.OrderID = uuid.New().String()

	if req.Type == domain.OrderTypeMarket && req.Side == domain.OrderSideBuy {
		err = s.ledger.ReserveBudget(order, budget)
	} else {
		err = s.ledger.Reserve(order)
	}
	if err != nil {
		return nil, err
	}
	s.orders.Create(order)

	trades := s.book.Submit(order, tick)
	for _, t := range trades {
		if err := s.settle(t); err != nil {
			return &SubmitResult{Order: order, Trades: trades}, err
		}
	}

	if order.Status.Active() {
		s.expiry.Add(order)
	} else {
		// Filled or discarded: hand back whatever the order still holds.
		s.ledger.Release(order.OrderID)
	}

	return &SubmitResult{Order: order, Trades: trades}, nil
}

// clamp sizes a request to the agent's unreserved capacity. Market buys
// have no limit price, so they are sized by walking the ask ladder with the
// available cash as budget; the walked cost becomes their reservation.
func (s *OrderService) clamp(acc domain.Account, req domain.OrderRequest) (qty, budget int64, err error) {
	if req.Type == domain.OrderTypeMarket {
		var ok bool
		if req.Side == domain.OrderSideBuy {
			_, ok = s.book.BestAsk()
		} else {
			_, ok = s.book.BestBid()
		}
		if !ok {
			return 0, 0, domain.ErrNoLiquidity
		}
	}

	if req.Type == domain.OrderTypeMarket && req.Side == domain.OrderSideBuy {
		avail := s.ledger.AvailableCash(acc.Name, acc.Portfolio)
		qty, budget = s.book.AffordableBuy(req.Quantity, avail)
	} else {
		qty = s.ledger.Clamp(acc.Name, acc.Portfolio, req)
	}
	if qty <= 0 {
		return 0, 0, domain.ErrInsufficientCapacity
	}
	return qty, budget, nil
}

// settle applies one trade to both portfolios, releases both orders'
// reservations by the executed quantity and re-checks both agents.
func (s *OrderService) settle(t *domain.Trade) error {
	if err := s.agents.Settle(t); err != nil {
		return err
	}
	s.ledger.ReleaseFill(t.BuyOrderID, t.Price, t.Quantity)
	s.ledger.ReleaseFill(t.SellOrderID, t.Price, t.Quantity)

	if err := s.agents.Check(t.Buyer); err != nil {
		return fmt.Errorf("after trade %s: %w", t.TradeID, err)
	}
	if err := s.agents.Check(t.Seller); err != nil {
		return fmt.Errorf("after trade %s: %w", t.TradeID, err)
	}
	s.logger.Debug("trade settled",
		"trade_id", t.TradeID,
		"buyer", t.Buyer,
		"seller", t.Seller,
		"price", t.Price,
		"quantity", t.Quantity,
	)
	return nil
}

// executeImmediate fills the whole clamped request at the tick price with
// the market as counterparty. Nothing is reserved because nothing rests.
func (s *OrderService) executeImmediate(acc domain.Account, req domain.OrderRequest, tick int, price int64) (*SubmitResult, error) {
	if price <= 0 {
		return nil, &domain.ValidationError{Message: "market price must be greater than 0"}
	}
	priced := domain.Limit(req.Side, price, req.Quantity)
	qty := s.ledger.Clamp(acc.Name, acc.Portfolio, priced)
	if qty <= 0 {
		return nil, domain.ErrInsufficientCapacity
	}
	priced.Quantity = qty
	priced.Type = req.Type

	now := s.nowFunc()
	order := domain.NewOrder(acc.Name, priced, tick, 0, now)
	order.OrderID = uuid.New().String()
	order.Price = price
	s.orders.Create(order)

	trade := &domain.Trade{
		TradeID:    uuid.New().String(),
		Price:      price,
		Quantity:   qty,
		Tick:       tick,
		ExecutedAt: now,
	}
	if req.Side == domain.OrderSideBuy {
		trade.Buyer, trade.BuyOrderID = acc.Name, order.OrderID
		trade.Seller = domain.MarketCounterparty
	} else {
		trade.Seller, trade.SellOrderID = acc.Name, order.OrderID
		trade.Buyer = domain.MarketCounterparty
	}
	order.Fill(qty)
	order.Trades = append(order.Trades, trade)

	trades := []*domain.Trade{trade}
	if err := s.settle(trade); err != nil {
		return &SubmitResult{Order: order, Trades: trades}, err
	}
	return &SubmitResult{Order: order, Trades: trades}, nil
}

// GetOrder returns an order by ID.
func (s *OrderService) GetOrder(orderID string) (*domain.Order, error) {
	return s.orders.Get(orderID)
}

// ListOrders returns an agent's orders newest first, optionally filtered by
// status, with 1-based pagination.
func (s *OrderService) ListOrders(agent string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int, error) {
	if status != nil && !ValidOrderStatuses[*status] {
		return nil, 0, &domain.ValidationError{Message: fmt.Sprintf("unknown order status %q", *status)}
	}
	if page < 1 {
		return nil, 0, &domain.ValidationError{Message: "page must be >= 1"}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{Message: "limit must be between 1 and 100"}
	}
	orders, total := s.orders.ListByAgent(agent, status, page, limit)
	return orders, total, nil
}

// Cancel withdraws a resting order and releases its remaining reservation.
func (s *OrderService) Cancel(orderID string) (*domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Active() || s.book == nil {
		return nil, domain.ErrOrderNotCancellable
	}
	if _, ok := s.book.Withdraw(orderID, domain.OrderStatusCancelled); !ok {
		return nil, domain.ErrOrderNotCancellable
	}
	s.ledger.Release(orderID)
	s.expiry.Remove(orderID)
	return order, nil
}

// CancelAgent cancels every live order of an agent and returns how many
// were cancelled.
func (s *OrderService) CancelAgent(agent string) int {
	n := 0
	for _, o := range s.orders.ActiveByAgent(agent) {
		if _, err := s.Cancel(o.OrderID); err == nil {
			n++
		} else if !errors.Is(err, domain.ErrOrderNotCancellable) {
			s.logger.Warn("cancel failed", "agent", agent, "order_id", o.OrderID, "error", err)
		}
	}
	return n
}

// Sweep expires every resting order whose TTL has run out at tick.
func (s *OrderService) Sweep(tick int) []*domain.Order {
	if s.expiry == nil {
		return nil
	}
	return s.expiry.Sweep(tick)
}

// OrderExpired releases an expired order's reservation.
func (s *OrderService) OrderExpired(order *domain.Order) {
	cash, shares := s.ledger.Release(order.OrderID)
	s.logger.Debug("order expired",
		"order_id", order.OrderID,
		"agent", order.Agent,
		"released_cash", cash,
		"released_shares", shares,
	)
}
