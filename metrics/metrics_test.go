package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"quantrail/perf"
)

func TestRecordPerformanceSetsGauges(t *testing.T) {
	runID, strategy := "run-perf-1", "buy-and-hold"
	alpha, beta := 0.02, 1.1
	p := perf.Performance{
		TotalReturn: 0.15,
		Sharpe:      1.2,
		MaxDrawdown: 0.08,
		TradeCount:  5,
		Alpha:       &alpha,
		Beta:        &beta,
	}

	RecordPerformance(runID, strategy, p)

	assert.Equal(t, 0.15, testutil.ToFloat64(RunTotalReturn.WithLabelValues(runID, strategy)))
	assert.Equal(t, 1.2, testutil.ToFloat64(RunSharpe.WithLabelValues(runID, strategy)))
	assert.Equal(t, 0.08, testutil.ToFloat64(RunMaxDrawdown.WithLabelValues(runID, strategy)))
	assert.Equal(t, 5.0, testutil.ToFloat64(RunTradeCount.WithLabelValues(runID, strategy)))
	assert.Equal(t, 0.02, testutil.ToFloat64(RunAlpha.WithLabelValues(runID, strategy)))
	assert.Equal(t, 1.1, testutil.ToFloat64(RunBeta.WithLabelValues(runID, strategy)))
}

func TestRecordPerformanceCountsCompletedVsAborted(t *testing.T) {
	before := testutil.ToFloat64(RunsCompleted)
	RecordPerformance("run-completed", "s", perf.Performance{})
	assert.Equal(t, before+1, testutil.ToFloat64(RunsCompleted))

	beforeAborted := testutil.ToFloat64(RunsAborted)
	RecordPerformance("run-aborted", "s", perf.Performance{Cancelled: true})
	assert.Equal(t, beforeAborted+1, testutil.ToFloat64(RunsAborted))
}

func TestRecordPerformanceOmitsAlphaBetaWhenNil(t *testing.T) {
	runID := "run-no-benchmark"
	RecordPerformance(runID, "s", perf.Performance{TotalReturn: 0.05})
	assert.Equal(t, 0.0, testutil.ToFloat64(RunAlpha.WithLabelValues(runID, "s")))
	assert.Equal(t, 0.0, testutil.ToFloat64(RunBeta.WithLabelValues(runID, "s")))
}

func TestRecordLiveState(t *testing.T) {
	runID, strategy := "run-live-1", "s"
	RecordLiveState(runID, strategy, 105000, 1.5)
	assert.Equal(t, 105000.0, testutil.ToFloat64(RunPortfolioValue.WithLabelValues(runID, strategy)))
	assert.Equal(t, 1.5, testutil.ToFloat64(RunLeverage.WithLabelValues(runID, strategy)))
}

func TestRecordOrderTerminalIncrementsByStatus(t *testing.T) {
	runID, strategy := "run-orders-1", "s"
	RecordOrderTerminal(runID, strategy, "filled")
	RecordOrderTerminal(runID, strategy, "filled")
	RecordOrderTerminal(runID, strategy, "cancelled")

	assert.Equal(t, 2.0, testutil.ToFloat64(RunOrdersTotal.WithLabelValues(runID, strategy, "filled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(RunOrdersTotal.WithLabelValues(runID, strategy, "cancelled")))
}

func TestRecordSessionDurationObserves(t *testing.T) {
	runID := "run-duration-1"
	RecordSessionDuration(runID, 0.02)
	RecordSessionDuration(runID, 0.05)

	count := testutil.CollectAndCount(RunSessionDuration, "quantrail_run_session_duration_seconds")
	assert.GreaterOrEqual(t, count, 1)
}
