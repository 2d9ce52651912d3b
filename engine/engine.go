// Package engine implements the simulation engine: a single-threaded,
// cooperative event loop that drives the clock, dispatches bars, invokes
// strategy hooks, settles orders through the broker, updates the portfolio,
// and records performance. The config-struct-plus-cycle-loop shape is
// adapted from SynapseStrike/trader/auto_trader.go's AutoTrader, retargeted
// from a live polling loop to a deterministic session replay.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quantrail/asset"
	"quantrail/barcache"
	"quantrail/blotter"
	"quantrail/broker"
	"quantrail/calendar"
	"quantrail/cancelpolicy"
	"quantrail/commission"
	"quantrail/config"
	"quantrail/control"
	"quantrail/datasource"
	"quantrail/errs"
	"quantrail/logger"
	"quantrail/metrics"
	"quantrail/order"
	"quantrail/perf"
	"quantrail/portfolio"
	"quantrail/scheduler"
	"quantrail/slippage"
	"quantrail/strategy"
)

// ModelPair binds a slippage and commission model for one asset class:
// class -> model-pair lookup, O(1), with a process-configured fallback.
type ModelPair struct {
	Slippage   slippage.Model
	Commission commission.Model
}

// Engine owns the portfolio, blotter, scheduler and metrics tracker
// exclusively; the strategy holds a mutable borrow of Context only for the
// duration of a hook call.
type Engine struct {
	runID        string
	strategyName string
	startedAt    time.Time

	cfg       config.EngineConfig
	cal       calendar.Calendar
	registry  *asset.Registry
	data      datasource.DataSource
	cache     *barcache.Cache
	bl        *blotter.Blotter
	pf        *portfolio.Portfolio
	controls  *control.Manager
	sched     *scheduler.Scheduler
	tracker   *perf.Tracker
	strat     strategy.Strategy
	cancel    cancelpolicy.Policy
	log       zerolog.Logger
	aborted   atomic.Bool
	recorded  map[string]strategy.RecordedSeries

	modelsByClass map[asset.Class]ModelPair
	defaultModels ModelPair
	benchmark     datasource.BenchmarkReader

	onLiveState func(runID string, ts time.Time, value, leverage float64)
}

// New constructs an Engine. cfg is validated here; an invalid config is a
// fatal Configuration error.
func New(cfg config.EngineConfig, cal calendar.Calendar, registry *asset.Registry, data datasource.DataSource, strat strategy.Strategy) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	return &Engine{
		runID:         runID,
		strategyName:  fmt.Sprintf("%T", strat),
		startedAt:     time.Now().UTC(),
		cfg:           cfg,
		cal:           cal,
		registry:      registry,
		data:          data,
		cache:         barcache.New(cfg.MaxHistoryLen),
		bl:            blotter.New(),
		pf:            portfolio.New(cfg.StartingCash),
		controls:      &control.Manager{},
		sched:         scheduler.New(),
		tracker:       perf.New(),
		strat:         strat,
		cancel:        cancelpolicy.DefaultEODCancel(),
		log:           logger.WithRun(logger.New("engine"), runID),
		recorded:      make(map[string]strategy.RecordedSeries),
		defaultModels: ModelPair{Slippage: slippage.FixedBasisPoints{BPS: 5}, Commission: commission.PerShare{CostPerShare: 0.001, MinCommission: 0}},
		modelsByClass: make(map[asset.Class]ModelPair),
	}, nil
}

// SetControls installs the control manager's validators.
func (e *Engine) SetControls(m *control.Manager) { e.controls = m }

// SetLiveStateObserver registers a callback invoked once per session with the
// mark-to-market portfolio value and leverage, alongside the metrics export.
// Callers use this to stream progress (e.g. api.Server.PublishLiveState)
// without the engine depending on the reporting layer directly.
func (e *Engine) SetLiveStateObserver(fn func(runID string, ts time.Time, value, leverage float64)) {
	e.onLiveState = fn
}

// SetCancelPolicy installs the end-of-day cancel policy.
func (e *Engine) SetCancelPolicy(p cancelpolicy.Policy) { e.cancel = p }

// SetBenchmark installs a benchmark return series used to compute alpha/beta
// in the final Performance snapshot. Without one, alpha/beta are omitted.
func (e *Engine) SetBenchmark(b datasource.BenchmarkReader) { e.benchmark = b }

// benchmarkReturns converts the installed BenchmarkReader's series into the
// plain slice perf.Tracker.AlphaBeta expects, or nil if none is installed.
func (e *Engine) benchmarkReturns(start, end time.Time) []float64 {
	if e.benchmark == nil {
		return nil
	}
	trs := e.benchmark.Returns(start, end)
	out := make([]float64, len(trs))
	for i, tr := range trs {
		out[i] = tr.Return
	}
	return out
}

// SetModelsForClass overrides the slippage/commission pair used for a given
// asset class; classes without an override use the process-configured
// fallback.
func (e *Engine) SetModelsForClass(c asset.Class, m ModelPair) { e.modelsByClass[c] = m }

// SetDefaultModels overrides the process-wide fallback model pair.
func (e *Engine) SetDefaultModels(m ModelPair) { e.defaultModels = m }

// Schedule exposes the engine's scheduler so callers can register
// time-based callbacks before Run.
func (e *Engine) Schedule(name string, ev scheduler.EventRule, tr scheduler.TimeRule, cb scheduler.Callback) {
	e.sched.Schedule(name, ev, tr, cb)
}

// Abort requests cooperative cancellation; checked once per session.
func (e *Engine) Abort() { e.aborted.Store(true) }

// barTimestamps returns the bar timestamps a session steps through: daily
// frequency fires exactly once, at session close; minute frequency fires
// once per minute across the half-open [open, close) window.
func (e *Engine) barTimestamps(open, close time.Time) []time.Time {
	if e.cfg.Frequency != "minute" {
		return []time.Time{close}
	}
	out := make([]time.Time, 0, int(close.Sub(open)/time.Minute))
	for t := open; t.Before(close); t = t.Add(time.Minute) {
		out = append(out, t)
	}
	return out
}

// barKeyFor is the DataSource lookup key for a bar timestamp step: daily
// bars are keyed by the session date itself (the convention loadCSV and the
// in-memory data source use), while minute bars are keyed by their own
// intraday instant.
func (e *Engine) barKeyFor(session, now time.Time) time.Time {
	if e.cfg.Frequency == "minute" {
		return now
	}
	return session
}

func (e *Engine) modelsFor(a asset.Asset) ModelPair {
	if m, ok := e.modelsByClass[a.Class]; ok {
		return m
	}
	return e.defaultModels
}

// barView implements strategy.BarView against the engine's bar cache.
type barView struct {
	e *Engine
}

func (v barView) CurrentPrice(a asset.Asset) (float64, bool) {
	b, ok := v.e.cache.Current(a.ID)
	return b.Close, ok
}
func (v barView) HasData(a asset.Asset) bool { return v.e.cache.HasData(a.ID) }
func (v barView) HistoryPrices(a asset.Asset, n int) ([]float64, error) {
	return v.e.cache.HistoryPrices(a.ID, n)
}
func (v barView) HistoryLen(a asset.Asset) int { return v.e.cache.HistoryLen(a.ID) }

// Run drives the full simulation across the data source's date range,
// returning the final Performance record. A fatal error (Configuration,
// Financial) halts the loop and returns the partial performance snapshot
// alongside the error: partial progress is always recoverable.
func (e *Engine) Run(ctx context.Context) (perf.Performance, error) {
	start, end := e.data.DateRange()
	sessions := e.cal.SessionsInRange(start, end)
	assets := e.registry.All()

	initCtx := e.buildContext(start)
	e.strat.Initialize(initCtx)
	for _, o := range e.drainRequests(initCtx, start) {
		if err := e.submitOrder(o, start); err != nil {
			e.log.Debug().Err(err).Str("order_id", o.ID.String()).Msg("order rejected by control")
		}
	}

	for _, session := range sessions {
		if e.aborted.Load() {
			snap := e.tracker.Snapshot(e.cfg.RiskFreeAnnual, e.benchmarkReturns(start, end))
			snap.Cancelled = true
			metrics.RecordPerformance(e.runID, e.strategyName, snap)
			return snap, nil
		}

		open, close := e.cal.SessionWindow(session)

		beforeCtx := e.buildContext(open)
		e.strat.BeforeTradingStart(beforeCtx)
		for _, o := range e.drainRequests(beforeCtx, open) {
			if err := e.submitOrder(o, open); err != nil {
				e.log.Debug().Err(err).Str("order_id", o.ID.String()).Msg("order rejected by control")
			}
		}

		for _, now := range e.barTimestamps(open, close) {
			barKey := e.barKeyFor(session, now)
			for _, a := range assets {
				bar, ok := e.data.Bar(a.ID, barKey)
				if !ok {
					continue
				}
				e.cache.Update(a.ID, bar)
			}

			e.sched.RunPending(now, open, close)

			hookCtx := e.buildContext(now)
			e.strat.HandleData(hookCtx, barView{e: e})
			newOrders := e.drainRequests(hookCtx, now)

			for _, o := range newOrders {
				if err := e.submitOrder(o, now); err != nil {
					e.log.Debug().Err(err).Str("order_id", o.ID.String()).Msg("order rejected by control")
				}
			}

			for _, a := range assets {
				// An asset with no bar this step keeps its last_sale_price
				// unchanged: skip matching and mark-to-market entirely
				// rather than reusing a stale cached bar.
				freshBar, hasFreshBar := e.data.Bar(a.ID, barKey)
				if !hasFreshBar {
					continue
				}
				models := e.modelsFor(a)
				br := broker.New(models.Slippage, models.Commission)
				openForAsset := e.openOrdersFor(a.ID)
				txns := br.Match(openForAsset, freshBar, e.bl, e.pf, now)
				for _, txn := range txns {
					if o, ok := e.bl.GetOrder(txn.OrderID); ok && o.Status == order.Filled {
						metrics.RecordOrderTerminal(e.runID, e.strategyName, "filled")
					}
				}
				e.pf.MarkToMarket(a.ID, freshBar.Close)
			}

			if err := e.validateAccount(now); err != nil {
				if se, ok := err.(*errs.Error); ok && se.Fatal() {
					snap := e.tracker.Snapshot(e.cfg.RiskFreeAnnual, e.benchmarkReturns(start, end))
					metrics.RecordPerformance(e.runID, e.strategyName, snap)
					return snap, err
				}
				e.log.Debug().Err(err).Msg("account control violation")
			}

			if value := e.pf.Value(); value < 0 {
				e.tracker.RecordValue(now, value)
				snap := e.tracker.Snapshot(e.cfg.RiskFreeAnnual, e.benchmarkReturns(start, end))
				metrics.RecordPerformance(e.runID, e.strategyName, snap)
				return snap, errs.New(errs.NegativePortfolioValue, "portfolio value went negative", "value", value, "timestamp", now)
			}
		}

		// Step 3: record the session-close mark regardless of frequency —
		// the tracker's value series is always one sample per session.
		value := e.pf.Value()
		e.tracker.RecordValue(close, value)
		metrics.RecordLiveState(e.runID, e.strategyName, value, e.pf.Leverage())
		if e.onLiveState != nil {
			e.onLiveState(e.runID, close, value, e.pf.Leverage())
		}

		e.evictCancelled(close)
	}

	analyzeCtx := e.buildContext(end)
	e.strat.Analyze(analyzeCtx)

	snap := e.tracker.Snapshot(e.cfg.RiskFreeAnnual, e.benchmarkReturns(start, end))
	metrics.RecordPerformance(e.runID, e.strategyName, snap)
	return snap, nil
}

func (e *Engine) buildContext(now time.Time) *strategy.Context {
	return strategy.NewContext(now, *e.pf, e.pf.BuildAccount(), e.bl.OpenOrders())
}

func (e *Engine) drainRequests(ctx *strategy.Context, now time.Time) []*order.Order {
	for name, series := range ctx.Recorded() {
		e.recorded[name] = append(e.recorded[name], series...)
	}
	for _, id := range ctx.DrainCancelRequests() {
		if err := e.bl.CancelOrder(id, now); err != nil {
			e.log.Debug().Err(err).Str("order_id", id.String()).Msg("cancel request failed")
		} else {
			metrics.RecordOrderTerminal(e.runID, e.strategyName, "cancelled")
		}
	}
	var placed []*order.Order
	for _, req := range ctx.DrainOrderRequests() {
		o, err := e.buildOrder(req, now)
		if err != nil {
			e.log.Debug().Err(err).Msg("invalid order request")
			continue
		}
		placed = append(placed, o)
	}
	return placed
}

func (e *Engine) buildOrder(req strategy.OrderRequest, now time.Time) (*order.Order, error) {
	switch req.Kind {
	case order.Limit:
		return order.NewLimit(req.Asset, req.Side, req.Quantity, *req.LimitPrice, now)
	case order.Stop:
		return order.NewStop(req.Asset, req.Side, req.Quantity, *req.StopPrice, now)
	case order.StopLimit:
		return order.NewStopLimit(req.Asset, req.Side, req.Quantity, *req.StopPrice, *req.LimitPrice, now)
	default:
		return order.NewMarket(req.Asset, req.Side, req.Quantity, now)
	}
}

func (e *Engine) submitOrder(o *order.Order, now time.Time) error {
	currentShares := 0.0
	if pos, ok := e.pf.Positions[o.Asset.ID]; ok {
		currentShares = pos.Quantity
	}
	refPrice, _ := e.cache.Current(o.Asset.ID)
	err := e.controls.ValidateOrder(control.OrderContext{
		Order:          o,
		Now:            now,
		CurrentShares:  currentShares,
		ReferencePrice: refPrice.Close,
		PortfolioValue: e.pf.Value(),
	})
	if err != nil {
		o.Status = order.Rejected
		o.UpdatedAt = now
		// Construct a synthetic blotter entry so order-count invariants
		// over "total orders placed" remain consistent even for
		// controls-rejected orders.
		e.bl.PlaceOrder(o)
		_ = e.bl.RejectOrder(o.ID, now)
		metrics.RecordOrderTerminal(e.runID, e.strategyName, "rejected")
		return err
	}
	e.bl.PlaceOrder(o)
	return nil
}

func (e *Engine) openOrdersFor(assetID int64) []*order.Order {
	var out []*order.Order
	for _, o := range e.bl.OpenOrders() {
		if o.Asset.ID == assetID {
			out = append(out, o)
		}
	}
	return out
}

func (e *Engine) validateAccount(now time.Time) error {
	return e.controls.ValidateAccount(control.AccountContext{Now: now, Leverage: e.pf.Leverage()})
}

func (e *Engine) evictCancelled(now time.Time) {
	for _, o := range e.bl.OpenOrders() {
		if e.cancel.ShouldCancel(o.CreatedAt, now) {
			if err := e.bl.CancelOrder(o.ID, now); err == nil {
				metrics.RecordOrderTerminal(e.runID, e.strategyName, "cancelled")
			}
		}
	}
}

// Blotter exposes the engine's blotter for inspection after Run returns.
func (e *Engine) Blotter() *blotter.Blotter { return e.bl }

// Portfolio exposes the engine's portfolio for inspection after Run returns.
func (e *Engine) Portfolio() *portfolio.Portfolio { return e.pf }

// RecordedVars returns the accumulated Context.Record series.
func (e *Engine) RecordedVars() map[string]strategy.RecordedSeries { return e.recorded }

// RunID returns the run's correlation id, minted once in New.
func (e *Engine) RunID() string { return e.runID }

// StrategyName returns the concrete strategy type name used as the
// metrics/store label for this run.
func (e *Engine) StrategyName() string { return e.strategyName }

// StartedAt returns the wall-clock time New was called, for persistence.
func (e *Engine) StartedAt() time.Time { return e.startedAt }
