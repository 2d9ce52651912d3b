package perf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(days int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

func TestTotalReturn(t *testing.T) {
	tr := New()
	tr.RecordValue(at(0), 100)
	tr.RecordValue(at(1), 110)
	assert.InDelta(t, 0.10, tr.TotalReturn(), 1e-9)
}

func TestTotalReturnEmptySeriesIsZero(t *testing.T) {
	tr := New()
	assert.Zero(t, tr.TotalReturn())
}

func TestTotalReturnZeroFirstValueIsZero(t *testing.T) {
	tr := New()
	tr.RecordValue(at(0), 0)
	tr.RecordValue(at(1), 50)
	assert.Zero(t, tr.TotalReturn())
}

func TestAnnualReturnRequiresTwoPoints(t *testing.T) {
	tr := New()
	tr.RecordValue(at(0), 100)
	assert.Zero(t, tr.AnnualReturn())
}

func TestVolatilityZeroForConstantSeries(t *testing.T) {
	tr := New()
	for i := 0; i < 5; i++ {
		tr.RecordValue(at(i), 100)
	}
	assert.Zero(t, tr.Volatility())
}

func TestSharpeZeroWhenFlat(t *testing.T) {
	tr := New()
	tr.RecordValue(at(0), 100)
	tr.RecordValue(at(1), 100)
	assert.Zero(t, tr.Sharpe(0))
}

func TestSharpePositiveForSteadyGains(t *testing.T) {
	tr := New()
	values := []float64{100, 102, 101, 104, 103, 106}
	for i, v := range values {
		tr.RecordValue(at(i), v)
	}
	assert.Greater(t, tr.Sharpe(0), 0.0)
}

func TestSortinoIgnoresUpsideVolatility(t *testing.T) {
	tr := New()
	// all gains, no downside returns at all: Sortino's denominator is zero.
	for i, v := range []float64{100, 105, 110, 120} {
		tr.RecordValue(at(i), v)
	}
	assert.Zero(t, tr.Sortino(0))
}

func TestMaxDrawdownTracksPeakToTrough(t *testing.T) {
	tr := New()
	tr.RecordValue(at(0), 100)
	tr.RecordValue(at(1), 120) // new peak
	tr.RecordValue(at(2), 90)  // trough: dd = (120-90)/120 = 0.25
	tr.RecordValue(at(3), 95)

	dd, dur := tr.MaxDrawdown()
	assert.InDelta(t, 0.25, dd, 1e-9)
	assert.Equal(t, 24*time.Hour, dur)
}

func TestMaxDrawdownEmptySeriesIsZero(t *testing.T) {
	tr := New()
	dd, dur := tr.MaxDrawdown()
	assert.Zero(t, dd)
	assert.Zero(t, dur)
}

func TestCalmarZeroWithoutDrawdown(t *testing.T) {
	tr := New()
	tr.RecordValue(at(0), 100)
	tr.RecordValue(at(1), 110)
	tr.RecordValue(at(2), 120)
	assert.Zero(t, tr.Calmar(), "monotonically rising series has no drawdown")
}

func TestOmegaRatioOfGainsToLosses(t *testing.T) {
	tr := New()
	for i, v := range []float64{100, 110, 99, 108} {
		tr.RecordValue(at(i), v)
	}
	assert.Greater(t, tr.Omega(), 0.0)
}

func TestOmegaZeroWithoutLosses(t *testing.T) {
	tr := New()
	for i, v := range []float64{100, 105, 110} {
		tr.RecordValue(at(i), v)
	}
	assert.Zero(t, tr.Omega())
}

func TestAlphaBetaMismatchedLengthReturnsZero(t *testing.T) {
	tr := New()
	tr.RecordValue(at(0), 100)
	tr.RecordValue(at(1), 105)
	alpha, beta := tr.AlphaBeta([]float64{0.01, 0.02})
	assert.Zero(t, alpha)
	assert.Zero(t, beta)
}

func TestAlphaBetaTracksPerfectCorrelation(t *testing.T) {
	tr := New()
	for i, v := range []float64{100, 101, 103.02, 101.9898} {
		tr.RecordValue(at(i), v)
	}
	_, beta := tr.AlphaBeta([]float64{0.01, 0.02, -0.01})
	assert.InDelta(t, 1.0, beta, 1e-6)
}

func TestWinRateAndAvgWinAvgLoss(t *testing.T) {
	tr := New()
	tr.RecordTrade(10)
	tr.RecordTrade(-5)
	tr.RecordTrade(20)
	tr.RecordTrade(-15)

	assert.InDelta(t, 0.5, tr.WinRate(), 1e-9)
	assert.InDelta(t, 15.0, tr.AvgWin(), 1e-9)
	assert.InDelta(t, -10.0, tr.AvgLoss(), 1e-9)
	assert.Equal(t, 4, tr.TradeCount())
}

func TestProfitFactor(t *testing.T) {
	tr := New()
	tr.RecordTrade(30)
	tr.RecordTrade(-10)
	assert.InDelta(t, 3.0, tr.ProfitFactor(), 1e-9)
}

func TestProfitFactorZeroWithoutLosses(t *testing.T) {
	tr := New()
	tr.RecordTrade(30)
	assert.Zero(t, tr.ProfitFactor())
}

func TestSnapshotOmitsAlphaBetaWithoutBenchmark(t *testing.T) {
	tr := New()
	tr.RecordValue(at(0), 100)
	tr.RecordValue(at(1), 105)

	p := tr.Snapshot(0, nil)
	assert.Nil(t, p.Alpha)
	assert.Nil(t, p.Beta)
	assert.InDelta(t, 0.05, p.TotalReturn, 1e-9)
}

func TestSnapshotIncludesAlphaBetaWithBenchmark(t *testing.T) {
	tr := New()
	tr.RecordValue(at(0), 100)
	tr.RecordValue(at(1), 105)

	p := tr.Snapshot(0, []float64{0.03})
	a := assert.New(t)
	a.NotNil(p.Alpha)
	a.NotNil(p.Beta)
}
