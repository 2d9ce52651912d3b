// Package metrics exports a completed (or in-progress) backtest run's
// performance as prometheus gauges/counters/histograms, retargeted from
// SynapseStrike/metrics/metrics.go's live per-trader label set
// (trader_id, ai_model) to a per-run label set (run_id, strategy).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quantrail/perf"
)

var (
	// Registry is the custom prometheus registry for backtest metrics; a
	// dedicated registry avoids collisions with the default global one when
	// multiple backtests run in the same process.
	Registry = prometheus.NewRegistry()

	mu sync.RWMutex

	RunTotalReturn = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "total_return",
			Help:      "Total return over the backtest window",
		},
		[]string{"run_id", "strategy"},
	)

	RunAnnualReturn = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "annual_return",
			Help:      "Annualized return",
		},
		[]string{"run_id", "strategy"},
	)

	RunVolatility = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "volatility",
			Help:      "Annualized volatility of daily returns",
		},
		[]string{"run_id", "strategy"},
	)

	RunSharpe = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "sharpe_ratio",
			Help:      "Sharpe ratio",
		},
		[]string{"run_id", "strategy"},
	)

	RunSortino = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "sortino_ratio",
			Help:      "Sortino ratio",
		},
		[]string{"run_id", "strategy"},
	)

	RunMaxDrawdown = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "max_drawdown",
			Help:      "Maximum peak-to-trough drawdown",
		},
		[]string{"run_id", "strategy"},
	)

	RunCalmar = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "calmar_ratio",
			Help:      "Calmar ratio",
		},
		[]string{"run_id", "strategy"},
	)

	RunOmega = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "omega_ratio",
			Help:      "Omega ratio",
		},
		[]string{"run_id", "strategy"},
	)

	RunWinRate = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "win_rate",
			Help:      "Fraction of recorded trades with positive P&L",
		},
		[]string{"run_id", "strategy"},
	)

	RunTradeCount = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "trade_count",
			Help:      "Number of completed round-trip trades",
		},
		[]string{"run_id", "strategy"},
	)

	RunAlpha = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "alpha",
			Help:      "Annualized alpha versus the configured benchmark",
		},
		[]string{"run_id", "strategy"},
	)

	RunBeta = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "beta",
			Help:      "Beta versus the configured benchmark",
		},
		[]string{"run_id", "strategy"},
	)

	RunPortfolioValue = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "portfolio_value",
			Help:      "Most recently recorded portfolio value for an in-progress run",
		},
		[]string{"run_id", "strategy"},
	)

	RunLeverage = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "leverage",
			Help:      "Most recently recorded gross leverage for an in-progress run",
		},
		[]string{"run_id", "strategy"},
	)

	RunOrdersTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "orders_total",
			Help:      "Total orders placed, partitioned by terminal status",
		},
		[]string{"run_id", "strategy", "status"},
	)

	RunSessionDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quantrail",
			Subsystem: "run",
			Name:      "session_duration_seconds",
			Help:      "Wall-clock time spent simulating one session",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"run_id"},
	)

	RunsCompleted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: "quantrail",
			Subsystem: "engine",
			Name:      "runs_completed_total",
			Help:      "Total number of backtest runs whose final snapshot was not cancelled, including runs halted by a fatal error",
		},
	)

	RunsAborted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: "quantrail",
			Subsystem: "engine",
			Name:      "runs_aborted_total",
			Help:      "Total number of backtest runs stopped by a cooperative abort",
		},
	)
)

// RecordPerformance publishes a completed run's Performance snapshot.
func RecordPerformance(runID, strategy string, p perf.Performance) {
	mu.Lock()
	defer mu.Unlock()

	RunTotalReturn.WithLabelValues(runID, strategy).Set(p.TotalReturn)
	RunAnnualReturn.WithLabelValues(runID, strategy).Set(p.AnnualReturn)
	RunVolatility.WithLabelValues(runID, strategy).Set(p.Volatility)
	RunSharpe.WithLabelValues(runID, strategy).Set(p.Sharpe)
	RunSortino.WithLabelValues(runID, strategy).Set(p.Sortino)
	RunMaxDrawdown.WithLabelValues(runID, strategy).Set(p.MaxDrawdown)
	RunCalmar.WithLabelValues(runID, strategy).Set(p.Calmar)
	RunOmega.WithLabelValues(runID, strategy).Set(p.Omega)
	RunWinRate.WithLabelValues(runID, strategy).Set(p.WinRate)
	RunTradeCount.WithLabelValues(runID, strategy).Set(float64(p.TradeCount))
	if p.Alpha != nil {
		RunAlpha.WithLabelValues(runID, strategy).Set(*p.Alpha)
	}
	if p.Beta != nil {
		RunBeta.WithLabelValues(runID, strategy).Set(*p.Beta)
	}
	if p.Cancelled {
		RunsAborted.Inc()
	} else {
		RunsCompleted.Inc()
	}
}

// RecordLiveState publishes an in-progress run's portfolio snapshot, called
// once per session by the engine.
func RecordLiveState(runID, strategy string, portfolioValue, leverage float64) {
	RunPortfolioValue.WithLabelValues(runID, strategy).Set(portfolioValue)
	RunLeverage.WithLabelValues(runID, strategy).Set(leverage)
}

// RecordOrderTerminal increments the order-count counter for a terminal
// status ("filled", "cancelled", "rejected").
func RecordOrderTerminal(runID, strategy, status string) {
	RunOrdersTotal.WithLabelValues(runID, strategy, status).Inc()
}

// RecordSessionDuration observes the wall-clock cost of simulating one
// session, for profiling long backtests.
func RecordSessionDuration(runID string, seconds float64) {
	RunSessionDuration.WithLabelValues(runID).Observe(seconds)
}

// Init registers the standard Go runtime/process collectors alongside the
// run-specific metrics above.
func Init() {
	Registry.MustRegister(prometheus.NewGoCollector())
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
