package agent

import (
	"fmt"
	"sort"
)

// builders construct the built-in strategies with their default
// parameters. Strategies that need randomness are seeded from the agent
// name so the same roster always behaves the same.
var builders = map[string]func(name string) Strategy{
	"random": func(name string) Strategy {
		return NewRandom(0.5, seedFor(name))
	},
	"momentum": func(string) Strategy {
		return NewMomentum(NewPriceWindow(5))
	},
	"mean_reversion": func(string) Strategy {
		return NewMeanReversion(NewPriceWindow(10), 0.02)
	},
	"market_maker": func(string) Strategy {
		return NewMarketMaker(50, 5)
	},
	"accumulator": func(name string) Strategy {
		return NewAlgo(name, Threshold(20))
	},
}

// Kinds returns the names of the built-in strategies, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(builders))
	for k := range builders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build returns a fresh built-in strategy of the given kind for the named
// agent. Every call returns independent state.
func Build(kind, name string) (Strategy, error) {
	b, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q, must be one of: %v", kind, Kinds())
	}
	return b(name), nil
}
