package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/efreitasn/marketsim/internal/domain"
)

var orderCounter atomic.Int64

// newOrder builds an order with a unique id, ready for Submit.
func newOrder(agent string, req domain.OrderRequest, tick, ttl int) *domain.Order {
	o := domain.NewOrder(agent, req, tick, ttl, time.Now())
	o.OrderID = fmt.Sprintf("o%d", orderCounter.Add(1))
	return o
}

func limitBuy(agent string, price, qty int64) *domain.Order {
	return newOrder(agent, domain.Limit(domain.OrderSideBuy, price, qty), 0, 0)
}

func limitSell(agent string, price, qty int64) *domain.Order {
	return newOrder(agent, domain.Limit(domain.OrderSideSell, price, qty), 0, 0)
}
