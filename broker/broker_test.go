package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantrail/asset"
	"quantrail/barcache"
	"quantrail/blotter"
	"quantrail/commission"
	"quantrail/order"
	"quantrail/portfolio"
	"quantrail/slippage"
)

func anAsset() asset.Asset {
	return asset.NewEquity(1, "AAPL", "NASDAQ", time.Time{})
}

func bar(open, high, low, close, volume float64) barcache.Bar {
	return barcache.Bar{Open: open, High: high, Low: low, Close: close, Volume: volume, Timestamp: time.Now()}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 10.0, clamp(5, 10, 20))
	assert.Equal(t, 20.0, clamp(25, 10, 20))
	assert.Equal(t, 15.0, clamp(15, 10, 20))
}

func TestBasePriceMarketAlwaysEligibleAtClose(t *testing.T) {
	o, _ := order.NewMarket(anAsset(), order.Buy, 10, time.Now())
	price, ok := basePrice(o, bar(100, 105, 95, 102, 1000))
	assert.True(t, ok)
	assert.Equal(t, 102.0, price)
}

func TestBasePriceLimitBuyIneligibleAboveLimit(t *testing.T) {
	o, _ := order.NewLimit(anAsset(), order.Buy, 10, 100, time.Now())
	_, ok := basePrice(o, bar(105, 110, 102, 108, 1000))
	assert.False(t, ok, "bar never traded at or below the limit")
}

func TestBasePriceLimitBuyFillsAtBetterOfCloseOrLimit(t *testing.T) {
	o, _ := order.NewLimit(anAsset(), order.Buy, 10, 100, time.Now())
	price, ok := basePrice(o, bar(99, 101, 95, 98, 1000))
	require.True(t, ok)
	assert.Equal(t, 98.0, price, "close is better than limit, use close")

	o2, _ := order.NewLimit(anAsset(), order.Buy, 10, 100, time.Now())
	price2, ok2 := basePrice(o2, bar(102, 103, 99, 101, 1000))
	require.True(t, ok2, "low reached the limit even though close is above it")
	assert.Equal(t, 100.0, price2)
}

func TestBasePriceLimitSellIneligibleBelowLimit(t *testing.T) {
	o, _ := order.NewLimit(anAsset(), order.Sell, 10, 100, time.Now())
	_, ok := basePrice(o, bar(95, 98, 90, 92, 1000))
	assert.False(t, ok)
}

func TestBasePriceLimitSellFillsAtBetterOfCloseOrLimit(t *testing.T) {
	o, _ := order.NewLimit(anAsset(), order.Sell, 10, 100, time.Now())
	price, ok := basePrice(o, bar(101, 105, 99, 103, 1000))
	require.True(t, ok)
	assert.Equal(t, 103.0, price, "close above limit is better for a seller")
}

func TestBasePriceStopBuyIneligibleUntilTriggered(t *testing.T) {
	o, _ := order.NewStop(anAsset(), order.Buy, 10, 100, time.Now())
	_, ok := basePrice(o, bar(90, 95, 88, 92, 1000))
	assert.False(t, ok)
}

func TestBasePriceStopBuyFillsAtOpenOrStop(t *testing.T) {
	o, _ := order.NewStop(anAsset(), order.Buy, 10, 100, time.Now())
	price, ok := basePrice(o, bar(105, 110, 99, 107, 1000))
	require.True(t, ok)
	assert.Equal(t, 105.0, price, "gapped above stop, fills at the open")

	o2, _ := order.NewStop(anAsset(), order.Buy, 10, 100, time.Now())
	price2, ok2 := basePrice(o2, bar(98, 101, 97, 99, 1000))
	require.True(t, ok2)
	assert.Equal(t, 100.0, price2, "triggered intrabar, fills at the stop")
}

func TestBasePriceStopSellIneligibleUntilTriggered(t *testing.T) {
	o, _ := order.NewStop(anAsset(), order.Sell, 10, 100, time.Now())
	_, ok := basePrice(o, bar(105, 108, 102, 106, 1000))
	assert.False(t, ok)
}

func TestBasePriceStopSellFillsAtOpenOrStop(t *testing.T) {
	o, _ := order.NewStop(anAsset(), order.Sell, 10, 100, time.Now())
	price, ok := basePrice(o, bar(95, 96, 90, 92, 1000))
	require.True(t, ok)
	assert.Equal(t, 95.0, price, "gapped below stop, fills at the open")
}

func TestBasePriceStopLimitBuyMustTriggerThenRespectLimit(t *testing.T) {
	o, _ := order.NewStopLimit(anAsset(), order.Buy, 10, 100, 102, time.Now())
	_, ok := basePrice(o, bar(95, 99, 94, 97, 1000))
	assert.False(t, ok, "never triggered the stop")

	o2, _ := order.NewStopLimit(anAsset(), order.Buy, 10, 100, 102, time.Now())
	_, ok2 := basePrice(o2, bar(105, 108, 104, 107, 1000))
	assert.False(t, ok2, "triggered but never traded at or below the limit")

	o3, _ := order.NewStopLimit(anAsset(), order.Buy, 10, 100, 102, time.Now())
	price, ok3 := basePrice(o3, bar(101, 103, 99, 101, 1000))
	require.True(t, ok3)
	assert.Equal(t, 101.0, price)
}

func TestBasePriceStopLimitSellMustTriggerThenRespectLimit(t *testing.T) {
	o, _ := order.NewStopLimit(anAsset(), order.Sell, 10, 100, 98, time.Now())
	_, ok := basePrice(o, bar(105, 107, 102, 104, 1000))
	assert.False(t, ok, "never triggered the stop")

	o2, _ := order.NewStopLimit(anAsset(), order.Sell, 10, 100, 98, time.Now())
	_, ok2 := basePrice(o2, bar(95, 97, 92, 94, 1000))
	assert.False(t, ok2, "triggered but never traded at or above the limit")
}

func TestNeedsClamp(t *testing.T) {
	assert.False(t, needsClamp(order.Market))
	assert.True(t, needsClamp(order.Limit))
	assert.True(t, needsClamp(order.Stop))
	assert.True(t, needsClamp(order.StopLimit))
}

func TestMatchFillsEligibleMarketOrder(t *testing.T) {
	b := New(slippage.NoSlippage{}, commission.PerShare{CostPerShare: 0.01, MinCommission: 1})
	bl := blotter.New()
	pf := portfolio.New(100000)

	o, _ := order.NewMarket(anAsset(), order.Buy, 10, time.Now())
	bl.PlaceOrder(o)

	txns := b.Match([]*order.Order{o}, bar(100, 102, 99, 101, 10000), bl, pf, time.Now())
	require.Len(t, txns, 1)
	assert.Equal(t, 10.0, txns[0].Amount)
	assert.Equal(t, 101.0, txns[0].Price)

	pos := pf.Positions[1]
	assert.Equal(t, 10.0, pos.Quantity)
}

func TestMatchSkipsIneligibleOrder(t *testing.T) {
	b := New(slippage.NoSlippage{}, commission.NoCommission{})
	bl := blotter.New()
	pf := portfolio.New(100000)

	o, _ := order.NewLimit(anAsset(), order.Buy, 10, 90, time.Now())
	bl.PlaceOrder(o)

	txns := b.Match([]*order.Order{o}, bar(100, 105, 98, 102, 1000), bl, pf, time.Now())
	assert.Empty(t, txns)
	assert.Empty(t, pf.Positions)
	assert.Equal(t, order.Submitted, o.Status)
}

func TestMatchSkipsInvalidBar(t *testing.T) {
	b := New(slippage.NoSlippage{}, commission.NoCommission{})
	bl := blotter.New()
	pf := portfolio.New(100000)

	o, _ := order.NewMarket(anAsset(), order.Buy, 10, time.Now())
	bl.PlaceOrder(o)

	txns := b.Match([]*order.Order{o}, barcache.Bar{Open: 100, High: 99, Low: 98, Close: 101, Volume: 1000, Timestamp: time.Now()}, bl, pf, time.Now())
	assert.Empty(t, txns)
}

func TestMatchSkipsZeroFillFromSlippage(t *testing.T) {
	b := New(VolumeShareZero{}, commission.NoCommission{})
	bl := blotter.New()
	pf := portfolio.New(100000)

	o, _ := order.NewMarket(anAsset(), order.Buy, 10, time.Now())
	bl.PlaceOrder(o)

	txns := b.Match([]*order.Order{o}, bar(100, 102, 99, 101, 10000), bl, pf, time.Now())
	assert.Empty(t, txns)
}

func TestMatchSellAppliesPortfolioAndCommission(t *testing.T) {
	b := New(slippage.NoSlippage{}, commission.PerTrade{Cost: 5})
	bl := blotter.New()
	pf := portfolio.New(100000)
	pf.ApplyBuy(anAsset(), 10, 100, 0)

	o, _ := order.NewMarket(anAsset(), order.Sell, 10, time.Now())
	bl.PlaceOrder(o)

	txns := b.Match([]*order.Order{o}, bar(100, 105, 98, 104, 10000), bl, pf, time.Now())
	require.Len(t, txns, 1)
	assert.Equal(t, -10.0, txns[0].Amount)
	assert.Equal(t, 5.0, txns[0].Commission)

	pos := pf.Positions[1]
	assert.Zero(t, pos.Quantity)
}

func TestMatchClampsNonMarketExecutionPriceToBarRange(t *testing.T) {
	b := New(ExplosiveSlippage{}, commission.NoCommission{})
	bl := blotter.New()
	pf := portfolio.New(100000)

	o, _ := order.NewLimit(anAsset(), order.Buy, 10, 200, time.Now())
	bl.PlaceOrder(o)

	txns := b.Match([]*order.Order{o}, bar(100, 105, 98, 101, 10000), bl, pf, time.Now())
	require.Len(t, txns, 1)
	assert.Equal(t, 105.0, txns[0].Price, "execution price clamped to the bar high")
}

// VolumeShareZero always reports zero shares filled, simulating a slippage
// model that rejects the fill outright.
type VolumeShareZero struct{}

func (VolumeShareZero) Calculate(slippage.Fill) slippage.Result {
	return slippage.Result{Filled: 0, ExecutionPrice: 0}
}

// ExplosiveSlippage fills the full order at a price far outside the bar's
// range, exercising Match's post-slippage clamp for non-market orders.
type ExplosiveSlippage struct{}

func (ExplosiveSlippage) Calculate(f slippage.Fill) slippage.Result {
	return slippage.Result{Filled: f.OrderQuantity, ExecutionPrice: 9999}
}
