// Package broker implements the simulated matching engine:
// given open orders and the current bar for each asset, it decides fill
// eligibility and price using a slippage model and prices commission via a
// commission model, writing transactions to the blotter and updating the
// portfolio.
package broker

import (
	"time"

	"quantrail/barcache"
	"quantrail/blotter"
	"quantrail/commission"
	"quantrail/order"
	"quantrail/portfolio"
	"quantrail/slippage"
)

// Broker matches open orders against bars using a single slippage/commission
// model pair. Per-asset-class model lookup is the caller's
// responsibility: construct one Broker per class, or set the Slippage and
// Commission fields between calls.
type Broker struct {
	Slippage   slippage.Model
	Commission commission.Model
}

// New returns a Broker using the given models.
func New(s slippage.Model, c commission.Model) *Broker {
	return &Broker{Slippage: s, Commission: c}
}

func clamp(price, low, high float64) float64 {
	if price < low {
		return low
	}
	if price > high {
		return high
	}
	return price
}

// basePrice computes the pre-slippage execution price per the order kind's
// fill table, along with whether the order is eligible to fill at all this
// bar.
func basePrice(o *order.Order, bar barcache.Bar) (price float64, eligible bool) {
	switch o.Kind {
	case order.Market:
		return bar.Close, true
	case order.Limit:
		limit := *o.LimitPrice
		if o.Side == order.Buy {
			if bar.Close > limit && bar.Low > limit {
				return 0, false
			}
			base := bar.Close
			if base > limit {
				base = limit
			}
			return base, true
		}
		if bar.Close < limit && bar.High < limit {
			return 0, false
		}
		base := bar.Close
		if base < limit {
			base = limit
		}
		return base, true
	case order.Stop:
		stop := *o.StopPrice
		if o.Side == order.Buy {
			if bar.High < stop {
				return 0, false
			}
			base := stop
			if bar.Open > stop {
				base = bar.Open
			}
			return base, true
		}
		if bar.Low > stop {
			return 0, false
		}
		base := stop
		if bar.Open < stop {
			base = bar.Open
		}
		return base, true
	case order.StopLimit:
		stop := *o.StopPrice
		limit := *o.LimitPrice
		triggered := false
		if o.Side == order.Buy {
			triggered = bar.High >= stop
		} else {
			triggered = bar.Low <= stop
		}
		if !triggered {
			return 0, false
		}
		if o.Side == order.Buy {
			if bar.Close > limit && bar.Low > limit {
				return 0, false
			}
			base := bar.Close
			if base > limit {
				base = limit
			}
			return base, true
		}
		if bar.Close < limit && bar.High < limit {
			return 0, false
		}
		base := bar.Close
		if base < limit {
			base = limit
		}
		return base, true
	}
	return 0, false
}

// needsClamp reports whether the order kind's execution price must be
// clamped to [low, high] — every kind except Market, which simply fills at
// the bar close.
func needsClamp(k order.Kind) bool { return k != order.Market }

// Match runs one pass over open orders for a single asset's bar, filling
// eligible orders into the blotter and applying resulting cash/position
// changes to the portfolio. It returns the transactions produced this pass.
func (b *Broker) Match(openOrders []*order.Order, bar barcache.Bar, bl *blotter.Blotter, pf *portfolio.Portfolio, now time.Time) []blotter.Transaction {
	var txns []blotter.Transaction
	for _, o := range openOrders {
		if !bar.Valid() {
			continue
		}
		base, eligible := basePrice(o, bar)
		if !eligible {
			continue
		}
		remaining := o.Remaining()
		result := b.Slippage.Calculate(slippage.Fill{
			IsBuy:         o.Side == order.Buy,
			OrderQuantity: remaining,
			MarketPrice:   base,
			SessionVolume: bar.Volume,
		})
		if result.Filled <= 0 {
			continue
		}
		execPrice := result.ExecutionPrice
		if needsClamp(o.Kind) {
			execPrice = clamp(execPrice, bar.Low, bar.High)
		}
		comm := b.Commission.Calculate(commission.Fill{Quantity: result.Filled, Price: execPrice})

		txn, err := bl.ProcessFill(o.ID, result.Filled, execPrice, comm, now)
		if err != nil {
			continue
		}
		txns = append(txns, txn)

		if o.Side == order.Buy {
			pf.ApplyBuy(o.Asset, result.Filled, execPrice, comm)
		} else {
			pf.ApplySell(o.Asset, result.Filled, execPrice, comm)
		}
	}
	return txns
}
