package agent

import "github.com/shopspring/decimal"

// PriceWindow is a bounded history of recent prices owned by a single
// agent.
type PriceWindow struct {
	size   int
	prices []int64
}

// NewPriceWindow creates a window holding at most size prices.
func NewPriceWindow(size int) *PriceWindow {
	if size < 1 {
		size = 1
	}
	return &PriceWindow{size: size, prices: make([]int64, 0, size)}
}

// Push appends a price, evicting the oldest when full.
func (w *PriceWindow) Push(p int64) {
	if len(w.prices) == w.size {
		copy(w.prices, w.prices[1:])
		w.prices = w.prices[:w.size-1]
	}
	w.prices = append(w.prices, p)
}

// Len returns the number of prices held.
func (w *PriceWindow) Len() int { return len(w.prices) }

// Full reports whether the window holds size prices.
func (w *PriceWindow) Full() bool { return len(w.prices) == w.size }

// Last returns the most recent n prices, oldest first.
func (w *PriceWindow) Last(n int) []int64 {
	n = min(n, len(w.prices))
	out := make([]int64, n)
	copy(out, w.prices[len(w.prices)-n:])
	return out
}

// Mean returns the arithmetic mean of the window.
func (w *PriceWindow) Mean() decimal.Decimal {
	if len(w.prices) == 0 {
		return decimal.Zero
	}
	var sum int64
	for _, p := range w.prices {
		sum += p
	}
	return decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(w.prices))))
}
