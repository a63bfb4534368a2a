package ticks

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// CSV replays OHLCV bars from a CSV stream with a header row naming at
// least timestamp and close columns. open, high, low and volume are
// optional; missing prices default to close. Prices are in dollars.
type CSV struct {
	r      *csv.Reader
	symbol string
	cols   map[string]int
	line   int
}

// NewCSV reads the header from r and returns a source over the rest.
func NewCSV(r io.Reader, symbol string) (*CSV, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"timestamp", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", required)
		}
	}
	return &CSV{r: cr, symbol: symbol, cols: cols, line: 1}, nil
}

// Next returns the next bar or io.EOF.
func (c *CSV) Next(ctx context.Context) (domain.Tick, error) {
	if err := ctx.Err(); err != nil {
		return domain.Tick{}, err
	}
	rec, err := c.r.Read()
	if errors.Is(err, io.EOF) {
		return domain.Tick{}, io.EOF
	}
	c.line++
	if err != nil {
		return domain.Tick{}, fmt.Errorf("line %d: %w", c.line, err)
	}

	ts, err := c.timestamp(rec)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("line %d: %w", c.line, err)
	}
	closePrice, err := c.price(rec, "close", 0)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("line %d: %w", c.line, err)
	}
	t := domain.Tick{Timestamp: ts, Close: closePrice, Symbol: c.symbol}
	if t.Open, err = c.price(rec, "open", closePrice); err != nil {
		return domain.Tick{}, fmt.Errorf("line %d: %w", c.line, err)
	}
	if t.High, err = c.price(rec, "high", closePrice); err != nil {
		return domain.Tick{}, fmt.Errorf("line %d: %w", c.line, err)
	}
	if t.Low, err = c.price(rec, "low", closePrice); err != nil {
		return domain.Tick{}, fmt.Errorf("line %d: %w", c.line, err)
	}
	if i, ok := c.cols["volume"]; ok && i < len(rec) && rec[i] != "" {
		v, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return domain.Tick{}, fmt.Errorf("line %d: invalid volume %q", c.line, rec[i])
		}
		t.Volume = int64(v)
	}
	return t, nil
}

func (c *CSV) timestamp(rec []string) (time.Time, error) {
	raw := field(rec, c.cols["timestamp"])
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// price parses a dollar column into cents. An absent or empty column
// yields def; close has no default.
func (c *CSV) price(rec []string, col string, def int64) (int64, error) {
	i, ok := c.cols[col]
	if !ok || field(rec, i) == "" {
		if col == "close" {
			return 0, errors.New("missing close price")
		}
		return def, nil
	}
	d, err := decimal.NewFromString(field(rec, i))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", col, field(rec, i))
	}
	cents := d.Shift(2).Round(0).IntPart()
	if cents <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", col, field(rec, i))
	}
	return cents, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
