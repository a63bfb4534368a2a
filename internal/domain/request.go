package domain

import "fmt"

// OrderRequest is what a strategy asks for: a side, a type, a limit price
// (ignored for market orders) and a quantity. It becomes an Order only after
// validation and capacity clamping.
type OrderRequest struct {
	Side     OrderSide
	Type     OrderType
	Price    int64 // cents
	Quantity int64
}

// Limit is shorthand for a limit order request.
func Limit(side OrderSide, price, qty int64) OrderRequest {
	return OrderRequest{Side: side, Type: OrderTypeLimit, Price: price, Quantity: qty}
}

// Market is shorthand for a market order request.
func Market(side OrderSide, qty int64) OrderRequest {
	return OrderRequest{Side: side, Type: OrderTypeMarket, Quantity: qty}
}

// Validate rejects malformed requests: unknown side or type, non-positive
// quantity, or a non-positive price on a limit order.
func (r OrderRequest) Validate() error {
	if r.Side != OrderSideBuy && r.Side != OrderSideSell {
		return &ValidationError{Message: fmt.Sprintf("side must be 'buy' or 'sell', got %q", r.Side)}
	}
	if r.Type != OrderTypeLimit && r.Type != OrderTypeMarket {
		return &ValidationError{Message: fmt.Sprintf("Unknown order type: %s. Must be one of: limit, market", r.Type)}
	}
	if r.Quantity <= 0 {
		return &ValidationError{Message: "quantity must be a positive integer"}
	}
	if r.Type == OrderTypeLimit && r.Price <= 0 {
		return &ValidationError{Message: "price must be greater than 0"}
	}
	return nil
}
