// Package slippage implements the pure price-impact functions, grounded on
// the exact coefficients and defaults of
// original_source/src/finance/slippage.rs. Models are stateless and
// composable: each is a value implementing Model.
package slippage

import "math"

// Fill describes the inputs available to a slippage model for one match
// attempt: the order's side, its requested quantity, the pre-slippage base
// price (the bar close for market orders; the close, limit, stop or open for
// the other order types) and the session volume available for this bar.
type Fill struct {
	IsBuy          bool
	OrderQuantity  float64
	MarketPrice    float64
	SessionVolume  float64
}

// Result is the slippage model's verdict: the execution price plus the
// quantity it is willing to fill (<= OrderQuantity). A Filled of 0 means the
// order does not fill at all this step.
type Result struct {
	ExecutionPrice float64
	Filled         float64
}

// Model is the minimal interface every slippage variant implements —
// a trait-with-tagged-variants replacement for the deep inheritance
// hierarchy of the source model.
type Model interface {
	Calculate(f Fill) Result
}

func direction(isBuy bool) float64 {
	if isBuy {
		return 1
	}
	return -1
}

// NoSlippage fills the full requested quantity at the market price exactly.
type NoSlippage struct{}

func (NoSlippage) Calculate(f Fill) Result {
	return Result{ExecutionPrice: f.MarketPrice, Filled: f.OrderQuantity}
}

// FixedBasisPoints applies a constant impact of bps/10000 of price,
// independent of size or volume; it still fills at the bar close when
// volume is zero.
type FixedBasisPoints struct {
	BPS float64
}

func (m FixedBasisPoints) Calculate(f Fill) Result {
	impact := f.MarketPrice * (m.BPS / 10000.0)
	return Result{
		ExecutionPrice: f.MarketPrice + direction(f.IsBuy)*impact,
		Filled:         f.OrderQuantity,
	}
}

// VolumeShare clips the fillable quantity to MaxFraction*SessionVolume and
// prices the impact as PriceImpact*realizedFraction of market price. Zero
// session volume means the order does not fill at all this step, diverging
// from the source model's silent fallback to the volume limit.
type VolumeShare struct {
	PriceImpact float64 // default 0.1
	MaxFraction float64 // default 0.25
}

// DefaultVolumeShare mirrors original_source's VolumeShareSlippage defaults.
func DefaultVolumeShare() VolumeShare {
	return VolumeShare{PriceImpact: 0.1, MaxFraction: 0.25}
}

func (m VolumeShare) Calculate(f Fill) Result {
	if f.SessionVolume <= 0 {
		return Result{Filled: 0}
	}
	maxFillable := m.MaxFraction * f.SessionVolume
	filled := f.OrderQuantity
	if filled > maxFillable {
		filled = maxFillable
	}
	if filled <= 0 {
		return Result{Filled: 0}
	}
	realizedFraction := filled / f.SessionVolume
	impact := f.MarketPrice * m.PriceImpact * realizedFraction
	return Result{
		ExecutionPrice: f.MarketPrice + direction(f.IsBuy)*impact,
		Filled:         filled,
	}
}

// SquareRootImpact models impact = k*sqrt(size/volume); unlike VolumeShare,
// it still fills the full requested quantity at the bar close when volume
// is zero.
type SquareRootImpact struct {
	Coefficient float64
}

func (m SquareRootImpact) Calculate(f Fill) Result {
	if f.SessionVolume <= 0 {
		return Result{ExecutionPrice: f.MarketPrice, Filled: f.OrderQuantity}
	}
	impact := f.MarketPrice * m.Coefficient * math.Sqrt(f.OrderQuantity/f.SessionVolume)
	return Result{
		ExecutionPrice: f.MarketPrice + direction(f.IsBuy)*impact,
		Filled:         f.OrderQuantity,
	}
}

// LinearImpact models slippage = k*size/price, applied as a multiplicative
// adjustment to the market price; session volume plays no part, matching
// original_source's LinearImpact (which accepts but ignores a volume
// parameter).
type LinearImpact struct {
	Coefficient float64
}

func (m LinearImpact) Calculate(f Fill) Result {
	slippage := m.Coefficient * f.OrderQuantity / f.MarketPrice
	return Result{
		ExecutionPrice: f.MarketPrice * (1 + direction(f.IsBuy)*slippage),
		Filled:         f.OrderQuantity,
	}
}
