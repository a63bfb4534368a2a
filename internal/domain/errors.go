package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrAgentAlreadyExists   = errors.New("agent_already_exists")
	ErrAgentNotFound        = errors.New("agent_not_found")
	ErrOrderNotFound        = errors.New("order_not_found")
	ErrOrderNotCancellable  = errors.New("order_not_cancellable")
	ErrNoLiquidity          = errors.New("no_liquidity")
	ErrInsufficientCapacity = errors.New("insufficient_capacity")
	ErrInvariantViolation   = errors.New("invariant_violation")
	ErrOrderBookDisabled    = errors.New("order_book_disabled")
	ErrSimulationStarted    = errors.New("simulation_already_started")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
