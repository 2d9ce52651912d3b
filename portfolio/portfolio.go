// Package portfolio implements the cash/position accounting model:
// weighted-average cost basis, realized/unrealized P&L, leverage and the
// derived Account view. Cash and cost-basis arithmetic use
// shopspring/decimal to avoid float accumulation error across a long
// backtest's fill history.
package portfolio

import (
	"github.com/shopspring/decimal"

	"quantrail/asset"
)

// zeroTolerance is the float-equality slack used when deciding a closing
// fill exactly flattens a position, absorbing the residue floating-point
// subtraction leaves behind.
const zeroTolerance = 1e-10

// Position is per-asset state. Quantity is signed: positive long, negative
// short.
type Position struct {
	Asset         asset.Asset
	Quantity      float64
	CostBasis     float64
	LastSalePrice float64
}

// UnrealizedPnL is Quantity * (LastSalePrice - CostBasis).
func (p Position) UnrealizedPnL() float64 {
	return p.Quantity * (p.LastSalePrice - p.CostBasis)
}

// applyFill updates a position for a signed fill quantity at price,
// returning the realized P&L of any overlap that was closed. On a fill of
// the same sign as the existing position, cost basis updates by
// share-weighted average. On a fill of the opposite sign, the overlap
// portion realizes P&L and reduces quantity; a fill that crosses zero opens
// a new position at the new side with basis equal to the crossing portion's
// fill price.
func applyFill(p Position, signedQty, price float64) (Position, float64) {
	var realized float64
	switch {
	case p.Quantity == 0:
		p.Quantity = signedQty
		p.CostBasis = price
	case sameSign(p.Quantity, signedQty):
		totalQty := p.Quantity + signedQty
		p.CostBasis = (p.CostBasis*abs(p.Quantity) + price*abs(signedQty)) / abs(totalQty)
		p.Quantity = totalQty
	default:
		// Opposite sign: closing fill. The overlap is min(|existing|, |incoming|).
		overlap := minf(abs(p.Quantity), abs(signedQty))
		// Sign of existing position determines realized P&L direction.
		if p.Quantity > 0 {
			realized = overlap * (price - p.CostBasis)
		} else {
			realized = overlap * (p.CostBasis - price)
		}
		remaining := signedQty + p.Quantity
		if abs(remaining) < zeroTolerance {
			p.Quantity = 0
			p.CostBasis = 0
		} else if abs(signedQty) < abs(p.Quantity) {
			// Partial close: quantity shrinks toward zero, basis unchanged.
			p.Quantity = remaining
		} else {
			// Crossed zero: open fresh position at the new side.
			p.Quantity = remaining
			p.CostBasis = price
		}
	}
	p.LastSalePrice = price
	return p, realized
}

func sameSign(a, b float64) bool { return (a >= 0) == (b >= 0) }
func abs(a float64) float64 {
	if a < 0 {
		return -a
	}
	return a
}
func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Portfolio is the cash/positions aggregate.
type Portfolio struct {
	Cash         decimal.Decimal
	StartingCash decimal.Decimal
	Positions    map[int64]Position
}

// New returns a flat portfolio with the given starting cash.
func New(startingCash float64) *Portfolio {
	cash := decimal.NewFromFloat(startingCash)
	return &Portfolio{Cash: cash, StartingCash: cash, Positions: make(map[int64]Position)}
}

// ApplyBuy records a buy fill: increases the position, decreases cash by
// value + commission.
func (p *Portfolio) ApplyBuy(a asset.Asset, qty, price, commission float64) float64 {
	return p.applyFill(a, qty, price, commission, true)
}

// ApplySell records a sell fill: decreases the position, increases cash by
// value - commission.
func (p *Portfolio) ApplySell(a asset.Asset, qty, price, commission float64) float64 {
	return p.applyFill(a, -qty, price, commission, false)
}

func (p *Portfolio) applyFill(a asset.Asset, signedQty, price, commission float64, isBuy bool) float64 {
	pos, ok := p.Positions[a.ID]
	if !ok {
		pos = Position{Asset: a}
	}
	updated, realized := applyFill(pos, signedQty, price)
	p.Positions[a.ID] = updated

	value := decimal.NewFromFloat(abs(signedQty)).Mul(decimal.NewFromFloat(price))
	comm := decimal.NewFromFloat(commission)
	if isBuy {
		p.Cash = p.Cash.Sub(value).Sub(comm)
	} else {
		p.Cash = p.Cash.Add(value).Sub(comm)
	}
	return realized
}

// MarkToMarket updates LastSalePrice for an asset without generating a fill.
// Callers only call this with a fresh close price; an asset with no new bar
// this step is simply skipped, leaving its last sale price unchanged.
func (p *Portfolio) MarkToMarket(assetID int64, closePrice float64) {
	pos, ok := p.Positions[assetID]
	if !ok {
		return
	}
	pos.LastSalePrice = closePrice
	p.Positions[assetID] = pos
}

// PositionsValue is sum of quantity*last_sale_price across all positions.
func (p *Portfolio) PositionsValue() float64 {
	var total float64
	for _, pos := range p.Positions {
		total += pos.Quantity * pos.LastSalePrice
	}
	return total
}

// Value is cash + PositionsValue().
func (p *Portfolio) Value() float64 {
	cash, _ := p.Cash.Float64()
	return cash + p.PositionsValue()
}

// Returns is portfolio_value/starting_cash - 1.
func (p *Portfolio) Returns() float64 {
	start, _ := p.StartingCash.Float64()
	if start == 0 {
		return 0
	}
	return p.Value()/start - 1
}

// Leverage is gross exposure divided by portfolio value.
func (p *Portfolio) Leverage() float64 {
	value := p.Value()
	if value == 0 {
		return 0
	}
	var gross float64
	for _, pos := range p.Positions {
		gross += abs(pos.Quantity * pos.LastSalePrice)
	}
	return gross / value
}

// marginRequirement returns the asset-class-dependent initial margin
// fraction: equities long 50%, everything else treated as a derivative at
// 100% (full notional) absent a contract-specific spec.
func marginRequirement(a asset.Asset) float64 {
	switch a.Class {
	case asset.Equity:
		return 0.5
	default:
		return 1.0
	}
}

// Account is the derived, read-only view surfaced to strategies.
type Account struct {
	NetLiquidation float64
	SettledCash    float64
	BuyingPower    float64
	InitialMargin  float64
	ExcessLiquidity float64
	Cushion        float64
}

// BuildAccount derives the Account view from current portfolio state.
func (p *Portfolio) BuildAccount() Account {
	cash, _ := p.Cash.Float64()
	net := p.Value()
	var initialMargin float64
	for _, pos := range p.Positions {
		initialMargin += abs(pos.Quantity*pos.LastSalePrice) * marginRequirement(pos.Asset)
	}
	excess := net - initialMargin
	var buyingPower float64
	if len(p.Positions) == 0 {
		buyingPower = cash / 0.5 // default Reg-T-style 2x for an all-cash, unlevered account
	} else {
		buyingPower = excess
	}
	var cushion float64
	if net != 0 {
		cushion = excess / net
	}
	return Account{
		NetLiquidation:  net,
		SettledCash:     cash,
		BuyingPower:     buyingPower,
		InitialMargin:   initialMargin,
		ExcessLiquidity: excess,
		Cushion:         cushion,
	}
}
