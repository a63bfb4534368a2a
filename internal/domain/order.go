package domain

import "time"

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Opposite returns the other side of the book.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusExpired         OrderStatus = "expired"
)

// Active reports whether an order in this status may still trade.
func (s OrderStatus) Active() bool {
	return s == OrderStatusPending || s == OrderStatusPartiallyFilled
}

// Order is a standing interest to buy or sell. Identity, owner, side, type
// and price never change after creation; only the quantity bookkeeping and
// status move as the order fills, is cancelled or expires.
type Order struct {
	OrderID           string
	Agent             string
	Type              OrderType
	Side              OrderSide
	Price             int64 // cents, 0 for market orders
	Quantity          int64
	FilledQuantity    int64
	RemainingQuantity int64
	CancelledQuantity int64
	Status            OrderStatus
	CreatedTick       int
	TTL               int // ticks, 0 = never expires
	Seq               uint64
	CreatedAt         time.Time
	Trades            []*Trade
}

// NewOrder builds a pending order from a validated request. The caller
// assigns OrderID; the book assigns Seq on submission.
func NewOrder(agent string, req OrderRequest, tick, ttl int, now time.Time) *Order {
	price := req.Price
	if req.Type == OrderTypeMarket {
		price = 0
	}
	return &Order{
		Agent:             agent,
		Type:              req.Type,
		Side:              req.Side,
		Price:             price,
		Quantity:          req.Quantity,
		RemainingQuantity: req.Quantity,
		Status:            OrderStatusPending,
		CreatedTick:       tick,
		TTL:               ttl,
		CreatedAt:         now,
	}
}

// Fill applies an execution of qty shares to the order and moves its status.
func (o *Order) Fill(qty int64) {
	o.RemainingQuantity -= qty
	o.FilledQuantity += qty
	if o.RemainingQuantity == 0 {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
}

// Close moves the unfilled remainder into CancelledQuantity and sets the
// terminal status. A market order whose remainder is zero ends filled.
func (o *Order) Close(status OrderStatus) {
	o.CancelledQuantity += o.RemainingQuantity
	o.RemainingQuantity = 0
	if o.FilledQuantity == o.Quantity {
		o.Status = OrderStatusFilled
		return
	}
	o.Status = status
}

// Expired reports whether a resting order created at CreatedTick has lived
// for at least TTL ticks at the given tick.
func (o *Order) Expired(tick int) bool {
	return o.TTL > 0 && tick-o.CreatedTick >= o.TTL
}

// AveragePrice computes the volume-weighted average execution price
// as sum(trade.price × trade.quantity) / filled_quantity using integer
// arithmetic. Returns (price, true) when trades exist, or (0, false)
// when no trades have been executed.
func (o *Order) AveragePrice() (int64, bool) {
	if len(o.Trades) == 0 || o.FilledQuantity == 0 {
		return 0, false
	}
	var total int64
	for _, t := range o.Trades {
		total += t.Price * t.Quantity
	}
	return total / o.FilledQuantity, true
}
