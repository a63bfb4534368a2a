package domain

import "time"

// Tick is one bar of market data. The simulation reads Close for pricing and
// Timestamp/Volume for bookkeeping.
type Tick struct {
	Timestamp time.Time
	Open      int64 // cents
	High      int64
	Low       int64
	Close     int64
	Volume    int64
	Symbol    string
}
