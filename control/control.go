// Package control implements the pluggable order- and account-level
// validators, grounded on
// original_source/src/finance/controls.rs (windowed order-count deque) and
// finance/trading.rs (structured violation fields). The tagged-variant
// family shape mirrors the options-constructor provider pattern seen in
// SynapseStrike/mcp's AIClient implementations, without reusing any of that
// package's code.
package control

import (
	"time"

	"quantrail/errs"
	"quantrail/order"
)

// OrderContext carries the information an order-level control needs to
// validate a newly submitted order against current portfolio state.
type OrderContext struct {
	Order          *order.Order
	Now            time.Time
	CurrentShares  float64 // signed existing position quantity for Order.Asset
	ReferencePrice float64 // current market price, used for notional checks
	PortfolioValue float64
}

// AccountContext carries the information an account-level control needs,
// evaluated after every portfolio update.
type AccountContext struct {
	Now      time.Time
	Leverage float64
}

// OrderControl validates a single order before it enters the blotter.
type OrderControl interface {
	ValidateOrder(ctx OrderContext) error
}

// AccountControl validates account-wide state after a portfolio update.
type AccountControl interface {
	ValidateAccount(ctx AccountContext) error
}

// MaxOrderSize rejects an order whose quantity or notional exceeds a limit.
// Either field may be zero to disable that check.
type MaxOrderSize struct {
	MaxShares   float64
	MaxNotional float64
}

func (c MaxOrderSize) ValidateOrder(ctx OrderContext) error {
	o := ctx.Order
	if c.MaxShares > 0 && o.Quantity > c.MaxShares {
		return errs.New(errs.MaxOrderSizeExceeded, "order exceeds max shares",
			"order_id", o.ID, "asset_id", o.Asset.ID, "attempted", o.Quantity, "limit", c.MaxShares)
	}
	if c.MaxNotional > 0 {
		notional := o.Quantity * ctx.ReferencePrice
		if notional > c.MaxNotional {
			return errs.New(errs.MaxOrderSizeExceeded, "order exceeds max notional",
				"order_id", o.ID, "asset_id", o.Asset.ID, "attempted", notional, "limit", c.MaxNotional)
		}
	}
	return nil
}

// MaxOrderCount rejects an order once N orders for the same control instance
// have already been placed within the trailing Window. State (the sliding
// deque of order timestamps) lives on the control value itself since a
// single MaxOrderCount is typically constructed once and shared; callers
// that need per-entry isolation should construct one instance per use.
type MaxOrderCount struct {
	MaxCount int
	Window   time.Duration

	orderTimes []time.Time
}

func (c *MaxOrderCount) ValidateOrder(ctx OrderContext) error {
	cutoff := ctx.Now.Add(-c.Window)
	pruned := c.orderTimes[:0]
	for _, t := range c.orderTimes {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}
	c.orderTimes = pruned
	if len(c.orderTimes) >= c.MaxCount {
		return errs.New(errs.MaxOrderCountExceeded, "order count exceeds window limit",
			"order_id", ctx.Order.ID, "attempted", len(c.orderTimes)+1, "limit", c.MaxCount)
	}
	c.orderTimes = append(c.orderTimes, ctx.Now)
	return nil
}

// MaxPositionSize rejects an order that would push the resulting position
// beyond MaxShares, or beyond MaxPctPortfolio of portfolio value (using the
// order's limit/stop price, or the current price if neither is set, as the
// valuation price). Either field may be zero to disable that check.
type MaxPositionSize struct {
	MaxShares      float64
	MaxPctPortfolio float64
}

func (c MaxPositionSize) ValidateOrder(ctx OrderContext) error {
	o := ctx.Order
	resulting := ctx.CurrentShares + o.SignedQuantity()
	abs := resulting
	if abs < 0 {
		abs = -abs
	}
	if c.MaxShares > 0 && abs > c.MaxShares {
		return errs.New(errs.MaxPositionSizeExceeded, "resulting position exceeds max shares",
			"asset_id", o.Asset.ID, "current", ctx.CurrentShares, "attempted", resulting, "limit", c.MaxShares)
	}
	if c.MaxPctPortfolio > 0 && ctx.PortfolioValue > 0 {
		price := ctx.ReferencePrice
		if o.LimitPrice != nil {
			price = *o.LimitPrice
		} else if o.StopPrice != nil {
			price = *o.StopPrice
		}
		notional := abs * price
		limit := c.MaxPctPortfolio * ctx.PortfolioValue
		if notional > limit {
			return errs.New(errs.MaxPositionSizeExceeded, "resulting position exceeds max portfolio percentage",
				"asset_id", o.Asset.ID, "attempted_notional", notional, "limit_pct", c.MaxPctPortfolio, "limit_notional", limit)
		}
	}
	return nil
}

// RestrictedList rejects any order on a configured set of asset ids.
type RestrictedList struct {
	AssetIDs map[int64]bool
}

func (c RestrictedList) ValidateOrder(ctx OrderContext) error {
	if c.AssetIDs[ctx.Order.Asset.ID] {
		return errs.New(errs.RestrictedAsset, "asset is restricted",
			"order_id", ctx.Order.ID, "asset_id", ctx.Order.Asset.ID)
	}
	return nil
}

// LongOnly rejects any order whose resulting position would be negative.
type LongOnly struct{}

func (LongOnly) ValidateOrder(ctx OrderContext) error {
	o := ctx.Order
	resulting := ctx.CurrentShares + o.SignedQuantity()
	if resulting < 0 {
		return errs.New(errs.ShortSellingNotAllowed, "short selling not allowed",
			"order_id", o.ID, "asset_id", o.Asset.ID, "resulting_quantity", resulting)
	}
	return nil
}

// MaxLeverage rejects account state whose gross leverage exceeds Limit.
type MaxLeverage struct {
	Limit float64
}

func (c MaxLeverage) ValidateAccount(ctx AccountContext) error {
	if ctx.Leverage > c.Limit {
		return errs.New(errs.MaxLeverageExceeded, "leverage exceeds limit",
			"current", ctx.Leverage, "limit", c.Limit)
	}
	return nil
}

// MinLeverage rejects account state whose gross leverage falls below Limit.
type MinLeverage struct {
	Limit float64
}

func (c MinLeverage) ValidateAccount(ctx AccountContext) error {
	if ctx.Leverage < c.Limit {
		return errs.New(errs.MinLeverageViolated, "leverage below minimum",
			"current", ctx.Leverage, "limit", c.Limit)
	}
	return nil
}

// Manager iterates order-level controls before an order enters the blotter
// and account-level controls after every portfolio update.
type Manager struct {
	OrderControls   []OrderControl
	AccountControls []AccountControl
}

// ValidateOrder runs every order-level control, returning the first
// violation encountered.
func (m *Manager) ValidateOrder(ctx OrderContext) error {
	for _, c := range m.OrderControls {
		if err := c.ValidateOrder(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAccount runs every account-level control, returning the first
// violation encountered.
func (m *Manager) ValidateAccount(ctx AccountContext) error {
	for _, c := range m.AccountControls {
		if err := c.ValidateAccount(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ControlCount returns the total number of registered controls.
func (m *Manager) ControlCount() int {
	return len(m.OrderControls) + len(m.AccountControls)
}
