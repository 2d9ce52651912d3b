// Package barcache implements the bounded per-asset ring buffer of recent
// OHLCV bars that is authoritative for historical lookback within a single
// simulation; it never reaches back to the data source mid-step.
package barcache

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"quantrail/errs"
)

// Bar is an immutable OHLCV aggregate for one asset over one period. The
// system tolerates malformed input (low > min(open,close), etc.) by leaving
// it as-is: no silent repair, and such a bar simply fails to be crossable
// by downstream matching logic.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Valid reports whether the bar satisfies the documented well-formedness
// invariant. Callers are never required to check this before use — the
// broker's matching skips an invalid bar entirely, filling no order against it.
func (b Bar) Valid() bool {
	lo := b.Open
	if b.Close < lo {
		lo = b.Close
	}
	hi := b.Open
	if b.Close > hi {
		hi = b.Close
	}
	return b.Low <= lo && b.High >= hi
}

const defaultCapacity = 1000

// Cache is a per-asset bounded ring buffer of recent bars.
type Cache struct {
	capacity int
	buffers  map[int64][]Bar
}

// New returns a Cache with the given per-asset capacity; capacity <= 0
// selects the default of 1000 bars.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Cache{capacity: capacity, buffers: make(map[int64][]Bar)}
}

// Update appends bar for assetID, evicting the oldest entry on overflow.
func (c *Cache) Update(assetID int64, bar Bar) {
	buf := c.buffers[assetID]
	buf = append(buf, bar)
	if len(buf) > c.capacity {
		buf = buf[len(buf)-c.capacity:]
	}
	c.buffers[assetID] = buf
}

// Current returns the most recent bar cached for assetID.
func (c *Cache) Current(assetID int64) (Bar, bool) {
	buf := c.buffers[assetID]
	if len(buf) == 0 {
		return Bar{}, false
	}
	return buf[len(buf)-1], true
}

// HasData reports whether any bar has been cached for assetID.
func (c *Cache) HasData(assetID int64) bool {
	return len(c.buffers[assetID]) > 0
}

// HistoryLen returns the number of bars currently cached for assetID.
func (c *Cache) HistoryLen(assetID int64) int {
	return len(c.buffers[assetID])
}

// History returns the last n bars for assetID, oldest first. It fails with
// HistoryWindowBeforeFirstData if fewer than n bars are cached.
func (c *Cache) History(assetID int64, n int) ([]Bar, error) {
	buf := c.buffers[assetID]
	if len(buf) < n {
		return nil, errs.New(errs.HistoryWindowBeforeFirstData, "not enough history cached",
			"asset_id", assetID, "requested", n, "available", len(buf))
	}
	out := make([]Bar, n)
	copy(out, buf[len(buf)-n:])
	return out, nil
}

// HistoryPrices is History projected onto closing prices.
func (c *Cache) HistoryPrices(assetID int64, n int) ([]float64, error) {
	bars, err := c.History(assetID, n)
	if err != nil {
		return nil, err
	}
	prices := make([]float64, len(bars))
	for i, b := range bars {
		prices[i] = b.Close
	}
	return prices, nil
}

// Fetcher loads a single asset's bar for a session, used by Prefetch to hand
// the engine a completed, immutable batch rather than a live channel (see
// background-thread hand-off model).
type Fetcher func(ctx context.Context, assetID int64, session time.Time) (Bar, bool, error)

// Prefetch loads the given session's bar for every asset concurrently via
// fetch and pushes each into the cache, returning the first error
// encountered (if any). It is the sole concurrent entry point into the bar
// cache; Update/Current/History are otherwise called single-threaded from
// the engine's own loop.
func Prefetch(ctx context.Context, c *Cache, assetIDs []int64, session time.Time, fetch Fetcher) error {
	type result struct {
		assetID int64
		bar     Bar
		ok      bool
	}
	results := make([]result, len(assetIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range assetIDs {
		i, id := i, id
		g.Go(func() error {
			bar, ok, err := fetch(gctx, id, session)
			if err != nil {
				return err
			}
			results[i] = result{assetID: id, bar: bar, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, r := range results {
		if r.ok {
			c.Update(r.assetID, r.bar)
		}
	}
	return nil
}
