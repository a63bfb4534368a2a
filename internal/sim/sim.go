// Package sim drives a simulation run: one tick at a time it collects agent
// decisions, submits them in a fixed order, settles trades, expires stale
// orders and records tick statistics.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/marketsim/internal/agent"
	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/engine"
	"github.com/efreitasn/marketsim/internal/ledger"
	"github.com/efreitasn/marketsim/internal/service"
	"github.com/efreitasn/marketsim/internal/store"
)

// TickSource yields ticks until it returns io.EOF.
type TickSource interface {
	Next(ctx context.Context) (domain.Tick, error)
}

type member struct {
	name     string
	strategy agent.Strategy
}

type change struct {
	add    *member
	remove string
}

// Simulation owns the book, the ledger and every agent's account for one
// run. Read methods are safe to call while Run is in progress; they
// observe state as of the last fully processed tick.
type Simulation struct {
	logger *slog.Logger
	cfg    Config

	book       *engine.OrderBook
	ledger     *ledger.Ledger
	portfolios *store.PortfolioStore
	orderStore *store.OrderStore
	tradeStore *store.TradeStore
	agents     *service.AgentManager
	orders     *service.OrderService
	market     *service.MarketService

	// mu guards everything below and serialises tick processing against
	// readers.
	mu         sync.RWMutex
	state      State
	roster     []member
	pending    []change
	history    []TickRecord
	tick       int
	firstPrice int64
	lastPrice  int64
	trades     int
	volume     int64
	bookStats  engine.BookStats
	results    *Results
}

// New creates a simulation with no agents.
func New(logger *slog.Logger, cfg Config) (*Simulation, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}

	var book *engine.OrderBook
	if cfg.EnableOrderBook {
		book = engine.NewOrderBook(cfg.Symbol)
	}
	l := ledger.New(cfg.Limits)
	portfolios := store.NewPortfolioStore()
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()
	agents := service.NewAgentManager(portfolios, l)
	orders := service.NewOrderService(logger, service.OrderServiceConfig{
		TTL:       cfg.OrderTTLTicks,
		Immediate: !cfg.EnableOrderBook,
	}, book, l, agents, orderStore)

	return &Simulation{
		logger:     logger,
		cfg:        cfg,
		book:       book,
		ledger:     l,
		portfolios: portfolios,
		orderStore: orderStore,
		tradeStore: tradeStore,
		agents:     agents,
		orders:     orders,
		market:     service.NewMarketService(cfg.Symbol, book, tradeStore, cfg.VWAPWindow),
	}, nil
}

// Config returns the run configuration.
func (s *Simulation) Config() Config {
	return s.cfg
}

// AddAgent registers an agent. Before the run starts it joins immediately;
// during a run it joins at the start of the next tick. Liquidity providers
// are seeded with at least LiquidityInitialStock shares.
func (s *Simulation) AddAgent(name string, strategy agent.Strategy) error {
	if err := service.ValidateAgentName(name); err != nil {
		return err
	}
	if strategy == nil {
		return &domain.ValidationError{Message: "strategy is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCompleted || s.state == StateAborted {
		return fmt.Errorf("adding agent %s: run finished: %w", name, domain.ErrSimulationStarted)
	}
	if s.known(name) {
		return domain.ErrAgentAlreadyExists
	}

	m := member{name: name, strategy: strategy}
	if s.state == StateRunning {
		s.pending = append(s.pending, change{add: &m})
		return nil
	}
	return s.join(m)
}

// RemoveAgent takes an agent out of the run. Its resting orders are
// cancelled and their reservations released before the account closes.
// During a run the removal happens at the start of the next tick.
func (s *Simulation) RemoveAgent(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.known(name) {
		return domain.ErrAgentNotFound
	}
	if s.state == StateRunning {
		s.pending = append(s.pending, change{remove: name})
		return nil
	}
	return s.leave(name)
}

// known reports whether name is on the roster once pending changes apply.
// Callers hold mu.
func (s *Simulation) known(name string) bool {
	present := false
	for _, m := range s.roster {
		if m.name == name {
			present = true
			break
		}
	}
	for _, c := range s.pending {
		switch {
		case c.add != nil && c.add.name == name:
			present = true
		case c.remove == name:
			present = false
		}
	}
	return present
}

// startingStock is the share balance an agent joins with.
func (s *Simulation) startingStock(m member) (int64, bool) {
	lp := agent.IsLiquidityProvider(m.name, m.strategy)
	stock := s.cfg.InitialStock
	if lp {
		stock = max(stock, s.cfg.LiquidityInitialStock)
	}
	return stock, lp
}

// join opens the account and appends to the roster. Callers hold mu.
func (s *Simulation) join(m member) error {
	stock, lp := s.startingStock(m)
	_, err := s.agents.Register(service.RegisterAgentRequest{
		Name:              m.name,
		LiquidityProvider: lp,
		InitialCash:       s.cfg.InitialCash,
		InitialStock:      stock,
	})
	if err != nil {
		return err
	}
	s.roster = append(s.roster, m)
	return nil
}

// leave cancels the agent's orders, closes its account and drops it from
// the roster. Callers hold mu.
func (s *Simulation) leave(name string) error {
	cancelled := s.orders.CancelAgent(name)
	if err := s.agents.Remove(name); err != nil {
		return err
	}
	for i, m := range s.roster {
		if m.name == name {
			s.roster = append(s.roster[:i:i], s.roster[i+1:]...)
			break
		}
	}
	s.logger.Info("agent removed", "agent", name, "cancelled_orders", cancelled)
	return nil
}

// applyPending runs the first n queued hot-plug changes in arrival order.
// Changes queued after them wait for the next tick. Callers hold mu.
func (s *Simulation) applyPending(n int) {
	for _, c := range s.pending[:n] {
		var err error
		if c.add != nil {
			err = s.join(*c.add)
			if err == nil {
				s.logger.Info("agent joined", "agent", c.add.name, "tick", s.tick)
			}
		} else {
			err = s.leave(c.remove)
		}
		if err != nil {
			s.logger.Warn("hot-plug change failed", "error", err)
		}
	}
	s.pending = append([]change(nil), s.pending[n:]...)
}

// upcoming returns the roster as it will be once the queued changes apply,
// without applying them. Callers hold mu.
func (s *Simulation) upcoming() []member {
	roster := make([]member, len(s.roster))
	copy(roster, s.roster)
	for _, c := range s.pending {
		if c.add != nil {
			roster = append(roster, *c.add)
			continue
		}
		for i, m := range roster {
			if m.name == c.remove {
				roster = append(roster[:i:i], roster[i+1:]...)
				break
			}
		}
	}
	return roster
}

// observe builds what m sees at price. Agents still waiting to join see
// the balances they will join with. Callers hold mu.
func (s *Simulation) observe(m member, price int64) (agent.Observation, error) {
	obs := agent.Observation{
		Symbol: s.cfg.Symbol,
		Tick:   s.tick,
		Price:  price,
	}
	if !s.portfolios.Exists(m.name) {
		obs.Cash = s.cfg.InitialCash
		obs.Shares, _ = s.startingStock(m)
		return obs, nil
	}
	acc, err := s.agents.Get(m.name)
	if err != nil {
		return obs, err
	}
	obs.Cash = acc.Portfolio.Cash
	obs.Shares = acc.Portfolio.Stock
	return obs, nil
}

// Run consumes ticks from src until it ends, MaxTicks is reached or ctx is
// cancelled, and returns the results. It may be called once.
//
// Cancellation finalises the run as of the last fully processed tick and is
// not an error. A failed invariant aborts the run; the results are still
// returned together with an error wrapping domain.ErrInvariantViolation.
func (s *Simulation) Run(ctx context.Context, src TickSource) (*Results, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, domain.ErrSimulationStarted
	}
	s.state = StateRunning
	n := len(s.roster)
	s.mu.Unlock()

	start := time.Now()
	s.logger.Info("simulation started",
		"symbol", s.cfg.Symbol,
		"agents", n,
		"max_ticks", s.cfg.MaxTicks,
		"order_book", s.cfg.EnableOrderBook,
	)

	var runErr error
	interrupted := false
	for s.cfg.MaxTicks == 0 || s.tick < s.cfg.MaxTicks {
		t, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if err != nil {
			runErr = fmt.Errorf("reading tick %d: %w", s.tick, err)
			break
		}
		if t.Close <= 0 {
			s.logger.Warn("skipping tick without a positive close", "timestamp", t.Timestamp)
			continue
		}

		if err := s.step(ctx, t); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				interrupted = true
				break
			}
			runErr = err
			break
		}
	}

	res := s.finish(start, interrupted, runErr)
	if runErr != nil {
		s.logger.Error("simulation aborted", "tick", s.tick, "error", runErr)
		return res, runErr
	}
	s.logger.Info("simulation finished",
		"ticks", res.Stats.Ticks,
		"trades", res.Stats.Trades,
		"volume", res.Stats.Volume,
		"interrupted", interrupted,
		"elapsed", res.Stats.Elapsed,
	)
	return res, nil
}

// step processes one tick. Nothing changes until every agent has decided,
// so a cancelled decision round leaves the run as the previous tick left
// it. Once submissions start, an error rolls portfolios back to how the
// tick found them, withdraws the tick's orders and releases their
// reservations, and records nothing from the tick. Fills the tick made
// against older resting orders are not undone.
func (s *Simulation) step(ctx context.Context, t domain.Tick) error {
	price := t.Close

	s.mu.RLock()
	queued := len(s.pending)
	roster := s.upcoming()
	obs := make([]agent.Observation, len(roster))
	for i, m := range roster {
		o, err := s.observe(m, price)
		if err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("observing %s: %w", m.name, domain.ErrInvariantViolation)
		}
		obs[i] = o
	}
	s.mu.RUnlock()

	decisions, agentErrors, err := s.decide(ctx, roster, obs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyPending(queued)
	s.agents.SetBaselines(price)
	if s.firstPrice == 0 {
		s.firstPrice = price
	}

	snapshot := s.agents.Snapshot()
	rec := TickRecord{
		Tick:        s.tick,
		Timestamp:   t.Timestamp,
		Price:       price,
		Volume:      t.Volume,
		AgentErrors: agentErrors,
	}
	var trades []*domain.Trade
	var placed []*domain.Order

	for i, m := range roster {
		if !s.portfolios.Exists(m.name) {
			// its join failed
			continue
		}
		for _, req := range decisions[i] {
			res, err := s.orders.Submit(m.name, req, s.tick, price)
			if res != nil {
				trades = append(trades, res.Trades...)
				if res.Order != nil {
					placed = append(placed, res.Order)
				}
			}
			if err == nil {
				rec.Orders++
				continue
			}
			if dropped(err) {
				rec.Dropped++
				s.logger.Debug("order dropped",
					"agent", m.name,
					"tick", s.tick,
					"side", req.Side,
					"quantity", req.Quantity,
					"reason", err.Error(),
				)
				continue
			}
			s.agents.Restore(snapshot)
			s.unwind(placed)
			return fmt.Errorf("tick %d agent %s: %w", s.tick, m.name, err)
		}
	}

	rec.Expired = len(s.orders.Sweep(s.tick))

	s.tradeStore.Append(trades...)
	for _, tr := range trades {
		rec.Traded += tr.Quantity
	}
	rec.Trades = len(trades)
	if s.book != nil {
		s.bookStats = s.book.Stats()
		rec.BestBid = s.bookStats.BestBid
		rec.BestAsk = s.bookStats.BestAsk
	}
	s.history = append(s.history, rec)
	s.trades += rec.Trades
	s.volume += rec.Traded
	s.lastPrice = price
	s.tick++
	return nil
}

// unwind withdraws orders placed by an aborted tick and releases whatever
// they still reserve. Callers hold mu.
func (s *Simulation) unwind(placed []*domain.Order) {
	for _, o := range placed {
		if _, err := s.orders.Cancel(o.OrderID); err != nil {
			s.ledger.Release(o.OrderID)
		}
	}
	if s.book != nil {
		s.bookStats = s.book.Stats()
	}
}

// dropped reports whether a submission error only discards that order.
func dropped(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, domain.ErrInsufficientCapacity) ||
		errors.Is(err, domain.ErrNoLiquidity)
}

func (s *Simulation) finish(start time.Time, interrupted bool, runErr error) *Results {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateCompleted
	res := &Results{
		Symbol:      s.cfg.Symbol,
		Interrupted: interrupted,
		Stats: Stats{
			Ticks:      s.tick,
			Trades:     s.trades,
			Volume:     s.volume,
			Elapsed:    time.Since(start),
			FirstPrice: s.firstPrice,
			LastPrice:  s.lastPrice,
		},
		History: s.history,
	}
	if runErr != nil {
		s.state = StateAborted
		res.AbortReason = runErr.Error()
	}
	res.State = s.state
	if s.tick > 0 {
		res.Stats.TradesPerTick = float64(s.trades) / float64(s.tick)
	}
	res.Leaderboard, res.LiquidityProviders = s.agents.Leaderboard(s.lastPrice)
	for _, a := range s.agents.Accounts() {
		st, err := s.agents.Stats(a.Name, s.lastPrice)
		if err == nil {
			res.Agents = append(res.Agents, *st)
		}
	}
	if s.book != nil {
		bs := s.bookStats
		res.Book = &bs
	}
	s.results = res
	return res
}

// State returns the run state.
func (s *Simulation) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Results returns the results of a finished run, or nil while it has not
// finished.
func (s *Simulation) Results() *Results {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results
}

// LiveStats returns a progress snapshot.
func (s *Simulation) LiveStats() LiveStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked, _ := s.agents.Leaderboard(s.lastPrice)
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	ls := LiveStats{
		State:     s.state,
		Tick:      s.tick,
		LastPrice: s.lastPrice,
		Trades:    s.trades,
		Volume:    s.volume,
		Agents:    len(s.roster),
		TopAgents: ranked,
	}
	if s.book != nil {
		ls.BestBid = s.bookStats.BestBid
		ls.BestAsk = s.bookStats.BestAsk
		ls.Spread = s.bookStats.Spread
	}
	return ls
}

// Leaderboard ranks agents marked at the last price.
func (s *Simulation) Leaderboard() (ranked, providers []service.Standing) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents.Leaderboard(s.lastPrice)
}

// AgentStats returns one agent's performance marked at the last price.
func (s *Simulation) AgentStats(name string) (*service.AgentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents.Stats(name, s.lastPrice)
}

// AgentOrders lists an agent's orders newest first.
func (s *Simulation) AgentOrders(name string, status *domain.OrderStatus, page, limit int) ([]domain.Order, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.portfolios.Exists(name) {
		return nil, 0, domain.ErrAgentNotFound
	}
	orders, total, err := s.orders.ListOrders(name, status, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Order, len(orders))
	for i, o := range orders {
		out[i] = *o
	}
	return out, total, nil
}

// Order returns a copy of an order.
func (s *Simulation) Order(id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, err := s.orders.GetOrder(id)
	if err != nil {
		return domain.Order{}, err
	}
	return *o, nil
}

// CancelOrder withdraws a resting order between ticks and releases its
// reservation. Orders that already left the book return
// domain.ErrOrderNotCancellable.
func (s *Simulation) CancelOrder(id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.orders.Cancel(id)
	if err != nil {
		return domain.Order{}, err
	}
	if s.book != nil {
		s.bookStats = s.book.Stats()
	}
	s.logger.Info("order cancelled", "agent", o.Agent, "order_id", id)
	return *o, nil
}

// MarketDepth returns the top levels of each side of the book. It returns
// domain.ErrOrderBookDisabled in immediate execution mode.
func (s *Simulation) MarketDepth(levels int) (*service.BookResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market.GetBook(levels)
}

// Quote estimates a market order against the current book.
func (s *Simulation) Quote(side domain.OrderSide, quantity int64) (*service.QuoteResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market.GetQuote(side, quantity)
}

// Price returns the VWAP of recent trades.
func (s *Simulation) Price() *service.PriceResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market.GetPrice()
}

// Trades returns every committed trade.
func (s *Simulation) Trades() []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tradeStore.All()
}
