package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/marketsim/internal/agent"
	"github.com/efreitasn/marketsim/internal/domain"
)

// decide asks every agent for its orders on a bounded pool of workers.
// Results land at the agent's roster index so submission order does not
// depend on scheduling. An agent that errors or panics submits nothing this
// tick. The only error returned is ctx's.
func (s *Simulation) decide(ctx context.Context, roster []member, obs []agent.Observation) ([][]domain.OrderRequest, int, error) {
	decisions := make([][]domain.OrderRequest, len(roster))
	failed := make([]bool, len(roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DecisionWorkers)
	for i := range roster {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reqs, err := callStrategy(roster[i].strategy, obs[i])
			if err != nil {
				failed[i] = true
				s.logger.Warn("agent decision failed",
					"agent", roster[i].name,
					"tick", obs[i].Tick,
					"error", err,
				)
				return nil
			}
			decisions[i] = reqs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	errs := 0
	for _, f := range failed {
		if f {
			errs++
		}
	}
	return decisions, errs, nil
}

func callStrategy(st agent.Strategy, obs agent.Observation) (reqs []domain.OrderRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			reqs, err = nil, fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return st.Decide(obs)
}
