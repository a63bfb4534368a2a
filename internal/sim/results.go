package sim

import (
	"encoding/json"
	"io"
	"time"

	"github.com/efreitasn/marketsim/internal/engine"
	"github.com/efreitasn/marketsim/internal/service"
)

// State is where a run is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TickRecord is the per-tick history entry.
type TickRecord struct {
	Tick        int       `json:"tick"`
	Timestamp   time.Time `json:"timestamp"`
	Price       int64     `json:"price"`
	Volume      int64     `json:"market_volume"`
	Orders      int       `json:"orders"`
	Dropped     int       `json:"dropped"`
	Trades      int       `json:"trades"`
	Traded      int64     `json:"traded_volume"`
	Expired     int       `json:"expired"`
	AgentErrors int       `json:"agent_errors"`
	BestBid     *int64    `json:"best_bid,omitempty"`
	BestAsk     *int64    `json:"best_ask,omitempty"`
}

// Stats aggregates the whole run.
type Stats struct {
	Ticks         int           `json:"ticks"`
	Trades        int           `json:"trades"`
	Volume        int64         `json:"volume"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	FirstPrice    int64         `json:"first_price"`
	LastPrice     int64         `json:"last_price"`
	TradesPerTick float64       `json:"trades_per_tick"`
}

// Results is what a finished run produces. A run that aborted still
// carries everything up to its last fully processed tick.
type Results struct {
	Symbol             string               `json:"symbol"`
	State              State                `json:"state"`
	AbortReason        string               `json:"abort_reason,omitempty"`
	Interrupted        bool                 `json:"interrupted"`
	Stats              Stats                `json:"stats"`
	Leaderboard        []service.Standing   `json:"leaderboard"`
	LiquidityProviders []service.Standing   `json:"liquidity_providers"`
	Agents             []service.AgentStats `json:"agents"`
	Book               *engine.BookStats    `json:"order_book,omitempty"`
	History            []TickRecord         `json:"history"`
}

// WriteJSON writes the results as indented JSON.
func (r *Results) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// LiveStats is a progress snapshot, safe to read while a run progresses.
type LiveStats struct {
	State     State              `json:"state"`
	Tick      int                `json:"tick"`
	LastPrice int64              `json:"last_price"`
	Trades    int                `json:"trades"`
	Volume    int64              `json:"volume"`
	Agents    int                `json:"agents"`
	TopAgents []service.Standing `json:"top_agents"`
	BestBid   *int64             `json:"best_bid"`
	BestAsk   *int64             `json:"best_ask"`
	Spread    *int64             `json:"spread"`
}
