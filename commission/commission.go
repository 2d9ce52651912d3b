// Package commission implements the pure cash-cost functions, grounded on
// original_source/src/finance/commission.rs.
// Cash arithmetic uses shopspring/decimal to avoid float accumulation error
// across thousands of fills in a long backtest.
package commission

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Fill describes the inputs available to a commission model: the filled
// quantity and the fill price.
type Fill struct {
	Quantity float64
	Price    float64
}

// Model is the minimal interface every commission variant implements.
type Model interface {
	Calculate(f Fill) float64
}

// NoCommission always returns zero.
type NoCommission struct{}

func (NoCommission) Calculate(Fill) float64 { return 0 }

// PerShare charges CostPerShare per share filled, floored at MinCommission.
type PerShare struct {
	CostPerShare  float64
	MinCommission float64
}

func (m PerShare) Calculate(f Fill) float64 {
	cost := decimal.NewFromFloat(m.CostPerShare).Mul(decimal.NewFromFloat(f.Quantity))
	min := decimal.NewFromFloat(m.MinCommission)
	if cost.LessThan(min) {
		cost = min
	}
	result, _ := cost.Float64()
	return result
}

// PerTrade charges a flat cost per fill regardless of size.
type PerTrade struct {
	Cost float64
}

func (m PerTrade) Calculate(Fill) float64 { return m.Cost }

// PerDollar charges CostPerDollar of the fill's notional value, floored at
// MinCommission.
type PerDollar struct {
	CostPerDollar float64
	MinCommission float64
}

func (m PerDollar) Calculate(f Fill) float64 {
	notional := decimal.NewFromFloat(f.Quantity).Mul(decimal.NewFromFloat(f.Price))
	cost := notional.Mul(decimal.NewFromFloat(m.CostPerDollar))
	min := decimal.NewFromFloat(m.MinCommission)
	if cost.LessThan(min) {
		cost = min
	}
	result, _ := cost.Float64()
	return result
}

// Tier is one (threshold, cost-per-share) step of a Tiered schedule.
// Threshold is the minimum share count of a single fill the tier applies to.
type Tier struct {
	Threshold    float64
	CostPerShare float64
}

// defaultPerShareFallback mirrors original_source's default of $0.01/share
// when no configured tier matches.
const defaultPerShareFallback = 0.01

// Tiered selects the highest tier whose Threshold is <= the fill quantity,
// scanning tiers sorted ascending by threshold in reverse (matching
// original_source's `.rev().find()`), floored at MinCommission.
type Tiered struct {
	Tiers         []Tier
	MinCommission float64
}

func (m Tiered) Calculate(f Fill) float64 {
	tiers := append([]Tier(nil), m.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Threshold < tiers[j].Threshold })

	rate := defaultPerShareFallback
	for i := len(tiers) - 1; i >= 0; i-- {
		if tiers[i].Threshold <= f.Quantity {
			rate = tiers[i].CostPerShare
			break
		}
	}
	cost := decimal.NewFromFloat(rate).Mul(decimal.NewFromFloat(f.Quantity))
	min := decimal.NewFromFloat(m.MinCommission)
	if cost.LessThan(min) {
		cost = min
	}
	result, _ := cost.Float64()
	return result
}
