// Package fx implements the optional FX rate reader: same
// currency is always 1.0, rates forward-fill to the last known value before
// a query timestamp, cross pairs triangulate via a base currency when the
// direct pair is absent, and an "exploding" variant forbids any
// cross-currency call at all. Grounded on
// original_source/src/currency.rs and data/fx/mod.rs.
package fx

import (
	"fmt"
	"sort"
	"time"
)

// Currency is one of the ISO codes the system understands.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	CHF Currency = "CHF"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	NZD Currency = "NZD"
	CNY Currency = "CNY"
	HKD Currency = "HKD"
)

// Reader is the consumed FX interface.
type Reader interface {
	GetRate(from, to Currency, dt time.Time) (float64, error)
}

type ratePoint struct {
	dt   time.Time
	rate float64
}

// InMemory is a forward-filling, triangulating FX rate reader suitable for
// backtesting, grounded on original_source's InMemoryFXRateReader.
type InMemory struct {
	rates map[Currency]map[Currency][]ratePoint
	base  Currency
}

// NewInMemory returns an empty reader triangulating through base when a
// direct pair is not available.
func NewInMemory(base Currency) *InMemory {
	return &InMemory{rates: make(map[Currency]map[Currency][]ratePoint), base: base}
}

// AddRate registers one (from, to, dt, rate) observation.
func (r *InMemory) AddRate(from, to Currency, dt time.Time, rate float64) {
	if r.rates[from] == nil {
		r.rates[from] = make(map[Currency][]ratePoint)
	}
	points := append(r.rates[from][to], ratePoint{dt: dt, rate: rate})
	sort.Slice(points, func(i, j int) bool { return points[i].dt.Before(points[j].dt) })
	r.rates[from][to] = points
}

func (r *InMemory) directRate(from, to Currency, dt time.Time) (float64, bool) {
	points := r.rates[from][to]
	var best *ratePoint
	for i := range points {
		if !points[i].dt.After(dt) {
			best = &points[i]
		} else {
			break
		}
	}
	if best == nil {
		return 0, false
	}
	return best.rate, true
}

// GetRate implements Reader: identity for same-currency, forward-filled
// direct lookup, or triangulation via r.base.
func (r *InMemory) GetRate(from, to Currency, dt time.Time) (float64, error) {
	if from == to {
		return 1.0, nil
	}
	if rate, ok := r.directRate(from, to, dt); ok {
		return rate, nil
	}
	if from != r.base && to != r.base {
		toBase, ok1 := r.directRate(from, r.base, dt)
		baseToTarget, ok2 := r.directRate(r.base, to, dt)
		if ok1 && ok2 {
			return toBase * baseToTarget, nil
		}
	}
	return 0, fmt.Errorf("fx: no rate available for %s/%s at %s", from, to, dt)
}

// Exploding forbids any cross-currency call: every GetRate other than
// same-currency panics, for use in single-currency backtests where a
// cross-currency call would indicate a configuration bug.
type Exploding struct{}

func (Exploding) GetRate(from, to Currency, dt time.Time) (float64, error) {
	if from == to {
		return 1.0, nil
	}
	panic(fmt.Sprintf("fx: cross-currency rate requested (%s/%s) on an Exploding reader", from, to))
}

// Convert applies r.GetRate to transform an amount from one currency to
// another at dt.
func Convert(r Reader, amount float64, from, to Currency, dt time.Time) (float64, error) {
	rate, err := r.GetRate(from, to, dt)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}
