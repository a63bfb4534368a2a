package handler

import (
	"net/http"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/sim"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	sim *sim.Simulation
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(s *sim.Simulation) *OrderHandler {
	return &OrderHandler{sim: s}
}

// tradeResponse represents a single trade in order responses.
type tradeResponse struct {
	TradeID      string  `json:"trade_id"`
	Price        float64 `json:"price"`
	Quantity     int64   `json:"quantity"`
	Counterparty string  `json:"counterparty"`
	Tick         int     `json:"tick"`
	ExecutedAt   string  `json:"executed_at"`
}

// orderResponse is the JSON response for a single order.
type orderResponse struct {
	OrderID           string          `json:"order_id"`
	Agent             string          `json:"agent"`
	Type              string          `json:"type"`
	Side              string          `json:"side"`
	Price             *float64        `json:"price"`
	Quantity          int64           `json:"quantity"`
	FilledQuantity    int64           `json:"filled_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	CancelledQuantity int64           `json:"cancelled_quantity"`
	Status            string          `json:"status"`
	CreatedTick       int             `json:"created_tick"`
	TTL               int             `json:"ttl_ticks"`
	AveragePrice      *float64        `json:"average_price"`
	Trades            []tradeResponse `json:"trades"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:           o.OrderID,
		Agent:             o.Agent,
		Type:              string(o.Type),
		Side:              string(o.Side),
		Quantity:          o.Quantity,
		FilledQuantity:    o.FilledQuantity,
		RemainingQuantity: o.RemainingQuantity,
		CancelledQuantity: o.CancelledQuantity,
		Status:            string(o.Status),
		CreatedTick:       o.CreatedTick,
		TTL:               o.TTL,
		Trades:            make([]tradeResponse, len(o.Trades)),
	}

	if o.Type == domain.OrderTypeLimit {
		p := domain.CentsToDollars(o.Price)
		resp.Price = &p
	}

	var notional int64
	for i, t := range o.Trades {
		counterparty := t.Seller
		if o.Side == domain.OrderSideSell {
			counterparty = t.Buyer
		}
		resp.Trades[i] = tradeResponse{
			TradeID:      t.TradeID,
			Price:        domain.CentsToDollars(t.Price),
			Quantity:     t.Quantity,
			Counterparty: counterparty,
			Tick:         t.Tick,
			ExecutedAt:   t.ExecutedAt.UTC().Format(timeLayout),
		}
		notional += t.Notional()
	}

	// Average price only when there are fills.
	if o.FilledQuantity > 0 {
		avg := domain.CentsToDollars(notional / o.FilledQuantity)
		resp.AveragePrice = &avg
	}

	return resp
}

// Get handles GET /orders/{order_id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	order, err := h.sim.Order(orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toOrderResponse(&order))
}

// Cancel handles DELETE /orders/{order_id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	order, err := h.sim.CancelOrder(orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toOrderResponse(&order))
}
