// Package strategy defines the Strategy API and Context/BarView surfaces:
// the per-invocation view the engine lends a strategy for the duration of
// one hook call.
package strategy

import (
	"time"

	"github.com/google/uuid"

	"quantrail/asset"
	"quantrail/order"
	"quantrail/portfolio"
)

// RecordedSeries is an ordered (timestamp, value) series for one named
// variable recorded through Context.Record.
type RecordedSeries []RecordedPoint

// RecordedPoint is one sample of a named recorded series.
type RecordedPoint struct {
	Timestamp time.Time
	Value     float64
}

// pendingOrderRequest captures one order placed through Context during the
// current hook call; the engine drains these at hook return and queues them
// into the blotter: they are not visible to the strategy's own
// next handle_data call until after broker matching.
type pendingOrderRequest struct {
	Asset      asset.Asset
	Side       order.Side
	Kind       order.Kind
	Quantity   float64
	LimitPrice *float64
	StopPrice  *float64
}

type cancelRequest struct {
	OrderID uuid.UUID
}

// Context is the per-invocation view passed to the strategy. It is
// exclusively borrowed by the strategy for the duration of one hook call.
type Context struct {
	Timestamp     time.Time
	Portfolio     portfolio.Portfolio
	Account       portfolio.Account
	PendingOrders []*order.Order

	recorded map[string]RecordedSeries
	requests []pendingOrderRequest
	cancels  []cancelRequest
}

// NewContext constructs a fresh Context for one hook invocation.
func NewContext(ts time.Time, pf portfolio.Portfolio, acct portfolio.Account, pending []*order.Order) *Context {
	return &Context{
		Timestamp:     ts,
		Portfolio:     pf,
		Account:       acct,
		PendingOrders: pending,
		recorded:      make(map[string]RecordedSeries),
	}
}

// Record appends (timestamp, value) to the named series. Write-only from
// the strategy's perspective; the engine owns the accumulated map across
// calls and merges it after each hook returns.
func (c *Context) Record(name string, value float64) {
	c.recorded[name] = append(c.recorded[name], RecordedPoint{Timestamp: c.Timestamp, Value: value})
}

// Recorded returns everything this hook call recorded, for the engine to
// merge into its persistent recorded_vars map.
func (c *Context) Recorded() map[string]RecordedSeries { return c.recorded }

// Order enqueues a market order for signedQuantity (positive buy, negative
// sell) shares of a. The order is constructed and queued in one call.
func (c *Context) Order(a asset.Asset, signedQuantity float64) {
	side, qty := sideOf(signedQuantity)
	c.requests = append(c.requests, pendingOrderRequest{Asset: a, Side: side, Kind: order.Market, Quantity: qty})
}

// OrderLimit enqueues a limit order.
func (c *Context) OrderLimit(a asset.Asset, signedQuantity, limitPrice float64) {
	side, qty := sideOf(signedQuantity)
	c.requests = append(c.requests, pendingOrderRequest{Asset: a, Side: side, Kind: order.Limit, Quantity: qty, LimitPrice: &limitPrice})
}

// OrderStop enqueues a stop order.
func (c *Context) OrderStop(a asset.Asset, signedQuantity, stopPrice float64) {
	side, qty := sideOf(signedQuantity)
	c.requests = append(c.requests, pendingOrderRequest{Asset: a, Side: side, Kind: order.Stop, Quantity: qty, StopPrice: &stopPrice})
}

// OrderStopLimit enqueues a stop-limit order.
func (c *Context) OrderStopLimit(a asset.Asset, signedQuantity, stopPrice, limitPrice float64) {
	side, qty := sideOf(signedQuantity)
	c.requests = append(c.requests, pendingOrderRequest{Asset: a, Side: side, Kind: order.StopLimit, Quantity: qty, StopPrice: &stopPrice, LimitPrice: &limitPrice})
}

// Cancel enqueues a cancellation request for orderID.
func (c *Context) Cancel(orderID uuid.UUID) {
	c.cancels = append(c.cancels, cancelRequest{OrderID: orderID})
}

// DrainOrderRequests returns and clears every order queued this hook call;
// called by the engine at hook return.
func (c *Context) DrainOrderRequests() []pendingOrderRequest {
	out := c.requests
	c.requests = nil
	return out
}

// DrainCancelRequests returns and clears every cancel request queued this
// hook call.
func (c *Context) DrainCancelRequests() []uuid.UUID {
	out := make([]uuid.UUID, len(c.cancels))
	for i, r := range c.cancels {
		out[i] = r.OrderID
	}
	c.cancels = nil
	return out
}

func sideOf(signedQuantity float64) (order.Side, float64) {
	if signedQuantity < 0 {
		return order.Sell, -signedQuantity
	}
	return order.Buy, signedQuantity
}

// OrderRequest is an exported alias of pendingOrderRequest; the engine
// constructs real orders from its fields directly.
type OrderRequest = pendingOrderRequest

// BarView is the read-only bar/history surface handed to handle_data.
type BarView interface {
	CurrentPrice(a asset.Asset) (float64, bool)
	HasData(a asset.Asset) bool
	HistoryPrices(a asset.Asset, n int) ([]float64, error)
	HistoryLen(a asset.Asset) int
}

// Strategy is the user-supplied strategy API All hooks are
// optional; embed NoopStrategy to satisfy the interface without
// implementing every method.
type Strategy interface {
	Initialize(ctx *Context)
	BeforeTradingStart(ctx *Context)
	HandleData(ctx *Context, bars BarView)
	Analyze(ctx *Context)
}

// NoopStrategy implements Strategy with empty hooks; embed it and override
// only the hooks a concrete strategy needs.
type NoopStrategy struct{}

func (NoopStrategy) Initialize(*Context)                 {}
func (NoopStrategy) BeforeTradingStart(*Context)          {}
func (NoopStrategy) HandleData(*Context, BarView)         {}
func (NoopStrategy) Analyze(*Context)                     {}
