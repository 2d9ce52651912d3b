// Package blotter implements order/transaction record-keeping: four disjoint
// maps keyed by order id plus an append-only transaction log, grounded on
// original_source/src/finance/blotter.rs.
package blotter

import (
	"time"

	"github.com/google/uuid"

	"quantrail/asset"
	"quantrail/errs"
	"quantrail/order"
)

// Transaction is an immutable post-fill record. Amount is signed (positive
// buy, negative sell).
type Transaction struct {
	ID         uuid.UUID
	Asset      asset.Asset
	Amount     float64
	DT         time.Time
	Price      float64
	OrderID    uuid.UUID
	Commission float64
}

// Value is |amount| * price.
func (t Transaction) Value() float64 {
	amt := t.Amount
	if amt < 0 {
		amt = -amt
	}
	return amt * t.Price
}

// TotalCost is Value() + Commission, the cash-flow magnitude of the fill.
func (t Transaction) TotalCost() float64 { return t.Value() + t.Commission }

// Blotter holds orders partitioned into four disjoint maps plus the
// append-only transaction log. An order id appears in exactly one map;
// valid transitions are open -> {filled, cancelled, rejected}.
type Blotter struct {
	open      map[uuid.UUID]*order.Order
	filled    map[uuid.UUID]*order.Order
	cancelled map[uuid.UUID]*order.Order
	rejected  map[uuid.UUID]*order.Order
	log       []Transaction
}

// New returns an empty Blotter.
func New() *Blotter {
	return &Blotter{
		open:      make(map[uuid.UUID]*order.Order),
		filled:    make(map[uuid.UUID]*order.Order),
		cancelled: make(map[uuid.UUID]*order.Order),
		rejected:  make(map[uuid.UUID]*order.Order),
	}
}

// PlaceOrder inserts a new order into the open map.
func (b *Blotter) PlaceOrder(o *order.Order) {
	o.Status = order.Submitted
	b.open[o.ID] = o
}

// RejectOrder moves an open order straight to rejected without a fill.
func (b *Blotter) RejectOrder(id uuid.UUID, now time.Time) error {
	o, ok := b.open[id]
	if !ok {
		return errs.New(errs.OrderIdNotFound, "order not open", "order_id", id)
	}
	delete(b.open, id)
	o.Status = order.Rejected
	o.UpdatedAt = now
	b.rejected[id] = o
	return nil
}

// CancelOrder moves an open order to cancelled. Cancelling an
// already-terminal order is a no-op returning OrderIdNotFound (idempotent
// cancel).
func (b *Blotter) CancelOrder(id uuid.UUID, now time.Time) error {
	o, ok := b.open[id]
	if !ok {
		return errs.New(errs.OrderIdNotFound, "order not open", "order_id", id)
	}
	delete(b.open, id)
	o.Status = order.Cancelled
	o.UpdatedAt = now
	b.cancelled[id] = o
	return nil
}

// ProcessFill records a fill against an open order: applies the fill,
// appends the transaction, and moves the order to filled if it is now
// complete, leaving it open (PartiallyFilled) otherwise.
func (b *Blotter) ProcessFill(id uuid.UUID, qty, price, commission float64, now time.Time) (Transaction, error) {
	o, ok := b.open[id]
	if !ok {
		return Transaction{}, errs.New(errs.OrderIdNotFound, "order not open", "order_id", id)
	}
	amount := qty
	if o.Side == order.Sell {
		amount = -qty
	}
	txn := Transaction{
		ID:         uuid.New(),
		Asset:      o.Asset,
		Amount:     amount,
		DT:         now,
		Price:      price,
		OrderID:    id,
		Commission: commission,
	}
	b.log = append(b.log, txn)
	o.ApplyFill(qty, now)
	if o.Status == order.Filled {
		delete(b.open, id)
		b.filled[id] = o
	}
	return txn, nil
}

// GetOrder looks up an order by id across all four partitions.
func (b *Blotter) GetOrder(id uuid.UUID) (*order.Order, bool) {
	if o, ok := b.open[id]; ok {
		return o, true
	}
	if o, ok := b.filled[id]; ok {
		return o, true
	}
	if o, ok := b.cancelled[id]; ok {
		return o, true
	}
	if o, ok := b.rejected[id]; ok {
		return o, true
	}
	return nil, false
}

// OpenOrders returns every currently-open order; order is unspecified.
func (b *Blotter) OpenOrders() []*order.Order {
	out := make([]*order.Order, 0, len(b.open))
	for _, o := range b.open {
		out = append(out, o)
	}
	return out
}

// Transactions returns the full append-only transaction log.
func (b *Blotter) Transactions() []Transaction {
	return b.log
}

// TotalCommission sums commission across the transaction log.
func (b *Blotter) TotalCommission() float64 {
	var total float64
	for _, t := range b.log {
		total += t.Commission
	}
	return total
}

// OrderCounts returns (open, filled, cancelled, rejected) counts, satisfying
// the invariant that their sum equals the total number of orders ever
// placed.
func (b *Blotter) OrderCounts() (open, filled, cancelled, rejected int) {
	return len(b.open), len(b.filled), len(b.cancelled), len(b.rejected)
}
