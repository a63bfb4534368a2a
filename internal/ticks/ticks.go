// Package ticks provides tick sources for the simulation: in-memory slices,
// a constant price, a seeded random walk and CSV replay. Every source
// returns io.EOF once exhausted.
package ticks

import (
	"context"
	"io"
	"math/rand/v2"
	"time"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Epoch is the timestamp of the first synthetic tick. Synthetic sources
// step one minute per tick from here.
var Epoch = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

// Slice replays a fixed list of ticks.
type Slice struct {
	ticks []domain.Tick
	pos   int
}

// NewSlice returns a source over ticks. The slice is not copied.
func NewSlice(ticks []domain.Tick) *Slice {
	return &Slice{ticks: ticks}
}

// FromPrices builds a slice source with one tick per close price.
func FromPrices(symbol string, prices ...int64) *Slice {
	ts := make([]domain.Tick, len(prices))
	for i, p := range prices {
		ts[i] = bar(symbol, i, p, p, 0)
	}
	return NewSlice(ts)
}

// Next returns the next tick or io.EOF.
func (s *Slice) Next(ctx context.Context) (domain.Tick, error) {
	if err := ctx.Err(); err != nil {
		return domain.Tick{}, err
	}
	if s.pos >= len(s.ticks) {
		return domain.Tick{}, io.EOF
	}
	t := s.ticks[s.pos]
	s.pos++
	return t, nil
}

// Constant emits the same price n times, or forever when n is 0.
type Constant struct {
	symbol string
	price  int64
	n      int
	i      int
}

// NewConstant returns a constant-price source.
func NewConstant(symbol string, price int64, n int) *Constant {
	return &Constant{symbol: symbol, price: price, n: n}
}

// Next returns the next tick or io.EOF.
func (c *Constant) Next(ctx context.Context) (domain.Tick, error) {
	if err := ctx.Err(); err != nil {
		return domain.Tick{}, err
	}
	if c.n > 0 && c.i >= c.n {
		return domain.Tick{}, io.EOF
	}
	t := bar(c.symbol, c.i, c.price, c.price, 0)
	c.i++
	return t, nil
}

// RandomWalk is a seeded geometric random walk: each close moves from the
// previous one by a normally distributed number of basis points.
type RandomWalk struct {
	symbol string
	price  int64
	volBps float64
	n      int
	i      int
	rng    *rand.Rand
}

// NewRandomWalk returns a random walk starting at start cents with per-tick
// volatility volBps. The same seed yields the same path. n bounds the walk;
// 0 means unbounded.
func NewRandomWalk(symbol string, start int64, volBps float64, seed uint64, n int) *RandomWalk {
	return &RandomWalk{
		symbol: symbol,
		price:  start,
		volBps: volBps,
		n:      n,
		rng:    rand.New(rand.NewPCG(seed, seed+1)),
	}
}

// Next returns the next tick or io.EOF.
func (w *RandomWalk) Next(ctx context.Context) (domain.Tick, error) {
	if err := ctx.Err(); err != nil {
		return domain.Tick{}, err
	}
	if w.n > 0 && w.i >= w.n {
		return domain.Tick{}, io.EOF
	}
	open := w.price
	if w.i > 0 {
		w.price = domain.ApplyBps(w.price, w.rng.NormFloat64()*w.volBps)
	}
	t := bar(w.symbol, w.i, open, w.price, 1000+w.rng.Int64N(9000))
	w.i++
	return t, nil
}

func bar(symbol string, i int, open, last, volume int64) domain.Tick {
	return domain.Tick{
		Timestamp: Epoch.Add(time.Duration(i) * time.Minute),
		Open:      open,
		High:      max(open, last),
		Low:       min(open, last),
		Close:     last,
		Volume:    volume,
		Symbol:    symbol,
	}
}
