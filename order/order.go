// Package order implements the Order state machine, grounded on
// original_source/src/order.rs.
package order

import (
	"time"

	"github.com/google/uuid"

	"quantrail/asset"
	"quantrail/errs"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

// Kind is the order type.
type Kind int

const (
	Market Kind = iota
	Limit
	Stop
	StopLimit
)

// Status is the order's lifecycle state. Filled, Cancelled and Rejected are
// terminal and absorbing.
type Status int

const (
	Created Status = iota
	Submitted
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

func (s Status) Terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// Order is mutable; its id is a fresh opaque 128-bit value.
type Order struct {
	ID         uuid.UUID
	Asset      asset.Asset
	Side       Side
	Kind       Kind
	Quantity   float64
	Filled     float64
	LimitPrice *float64
	StopPrice  *float64
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func newOrder(a asset.Asset, side Side, kind Kind, quantity float64, now time.Time) (*Order, error) {
	if quantity <= 0 {
		return nil, errs.New(errs.InvalidOrder, "quantity must be positive", "asset_id", a.ID, "quantity", quantity)
	}
	return &Order{
		ID:        uuid.New(),
		Asset:     a,
		Side:      side,
		Kind:      kind,
		Quantity:  quantity,
		Status:    Created,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewMarket constructs a market order.
func NewMarket(a asset.Asset, side Side, quantity float64, now time.Time) (*Order, error) {
	return newOrder(a, side, Market, quantity, now)
}

// NewLimit constructs a limit order.
func NewLimit(a asset.Asset, side Side, quantity, limitPrice float64, now time.Time) (*Order, error) {
	o, err := newOrder(a, side, Limit, quantity, now)
	if err != nil {
		return nil, err
	}
	o.LimitPrice = &limitPrice
	return o, nil
}

// NewStop constructs a stop order.
func NewStop(a asset.Asset, side Side, quantity, stopPrice float64, now time.Time) (*Order, error) {
	o, err := newOrder(a, side, Stop, quantity, now)
	if err != nil {
		return nil, err
	}
	o.StopPrice = &stopPrice
	return o, nil
}

// NewStopLimit constructs a stop-limit order.
func NewStopLimit(a asset.Asset, side Side, quantity, stopPrice, limitPrice float64, now time.Time) (*Order, error) {
	o, err := newOrder(a, side, StopLimit, quantity, now)
	if err != nil {
		return nil, err
	}
	o.StopPrice = &stopPrice
	o.LimitPrice = &limitPrice
	return o, nil
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() float64 { return o.Quantity - o.Filled }

// ApplyFill advances Filled by qty and transitions Status, enforcing
// Filled <= Quantity.
func (o *Order) ApplyFill(qty float64, now time.Time) {
	o.Filled += qty
	if o.Filled > o.Quantity {
		o.Filled = o.Quantity
	}
	if o.Filled >= o.Quantity {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
	o.UpdatedAt = now
}

// SignedQuantity returns the order quantity signed by side (positive buy,
// negative sell), matching the strategy-facing order(asset, signed_quantity)
// convention
func (o *Order) SignedQuantity() float64 {
	if o.Side == Sell {
		return -o.Quantity
	}
	return o.Quantity
}
