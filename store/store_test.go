package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantrail/asset"
	"quantrail/blotter"
	"quantrail/perf"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(id string) RunRecord {
	alpha, beta := 0.01, 0.9
	a := asset.NewEquity(1, "AAPL", "NASDAQ", time.Time{})
	now := time.Date(2024, 3, 4, 21, 0, 0, 0, time.UTC)
	return RunRecord{
		ID:           id,
		Strategy:     "buyAndHold",
		StartedAt:    now.Add(-24 * time.Hour),
		FinishedAt:   now,
		StartingCash: 100000,
		Performance: perf.Performance{
			Series: []perf.ValuePoint{
				{Timestamp: now.Add(-24 * time.Hour), Value: 100000},
				{Timestamp: now, Value: 101000},
			},
			TotalReturn: 0.01,
			Sharpe:      1.1,
			MaxDrawdown: 0.0,
			TradeCount:  1,
			Alpha:       &alpha,
			Beta:        &beta,
		},
		Transactions: []blotter.Transaction{
			{ID: uuid.New(), OrderID: uuid.New(), Asset: a, Amount: 10, Price: 100, Commission: 1, DT: now},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveRun(sampleRecord("run-1")))

	got, err := s.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "buyAndHold", got.Strategy)
	assert.InDelta(t, 0.01, got.TotalReturn, 1e-9)
	assert.False(t, got.Cancelled)
}

func TestGetUnknownRunErrors(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("nonexistent")
	require.Error(t, err)
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	older := sampleRecord("run-older")
	older.StartedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleRecord("run-newer")
	newer.StartedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(older))
	require.NoError(t, s.SaveRun(newer))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-newer", list[0].ID)
	assert.Equal(t, "run-older", list[1].ID)
}

func TestEquityCurvePreservesSequenceOrder(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveRun(sampleRecord("run-curve")))

	curve, err := s.EquityCurve("run-curve")
	require.NoError(t, err)
	require.Len(t, curve, 2)
	assert.Equal(t, 100000.0, curve[0].Value)
	assert.Equal(t, 101000.0, curve[1].Value)
}

func TestTransactionsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	record := sampleRecord("run-txns")
	require.NoError(t, s.SaveRun(record))

	txns, err := s.Transactions("run-txns")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "AAPL", txns[0].AssetSymbol)
	assert.Equal(t, 10.0, txns[0].Amount)
	assert.Equal(t, record.Transactions[0].ID.String(), txns[0].ID)
}

func TestSaveRunPersistsCancelledFlag(t *testing.T) {
	s := openTestStore(t)
	record := sampleRecord("run-cancelled")
	record.Performance.Cancelled = true
	require.NoError(t, s.SaveRun(record))

	got, err := s.Get("run-cancelled")
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
}

func TestPerformanceJSONOmitsNilAlphaBeta(t *testing.T) {
	data, err := PerformanceJSON(perf.Performance{TotalReturn: 0.1})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"alpha"`)
	assert.NotContains(t, string(data), `"beta"`)
}

func TestPerformanceJSONIncludesAlphaBetaWhenSet(t *testing.T) {
	a, b := 0.02, 1.0
	data, err := PerformanceJSON(perf.Performance{Alpha: &a, Beta: &b})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"alpha":0.02`)
	assert.Contains(t, string(data), `"beta":1`)
}
