// Package datasource defines the external, consumed interfaces
// DataSource and BenchmarkReader (the FX reader lives in package fx). Concrete
// ingestion (CSV/HDF5/HTTP, bundle cataloging) is explicitly out of scope;
// this package supplies the interfaces plus small in-memory implementations
// suitable for tests and for composing a backtest programmatically.
package datasource

import (
	"time"

	"quantrail/asset"
	"quantrail/barcache"
)

// DataSource is consumed, never written to, by the engine.
type DataSource interface {
	Assets() []asset.Asset
	Bar(assetID int64, timestamp time.Time) (barcache.Bar, bool)
	DateRange() (start, end time.Time)
}

// InMemory is a DataSource backed by preloaded bars, suitable for tests and
// small programmatic backtests.
type InMemory struct {
	assets []asset.Asset
	bars   map[int64]map[int64]barcache.Bar // assetID -> unix timestamp -> bar
	start  time.Time
	end    time.Time
}

// NewInMemory returns an empty in-memory data source.
func NewInMemory(assets []asset.Asset) *InMemory {
	return &InMemory{assets: assets, bars: make(map[int64]map[int64]barcache.Bar)}
}

// AddBar registers one bar for an asset.
func (d *InMemory) AddBar(assetID int64, bar barcache.Bar) {
	if d.bars[assetID] == nil {
		d.bars[assetID] = make(map[int64]barcache.Bar)
	}
	d.bars[assetID][bar.Timestamp.Unix()] = bar
	if d.start.IsZero() || bar.Timestamp.Before(d.start) {
		d.start = bar.Timestamp
	}
	if bar.Timestamp.After(d.end) {
		d.end = bar.Timestamp
	}
}

func (d *InMemory) Assets() []asset.Asset { return d.assets }

func (d *InMemory) Bar(assetID int64, timestamp time.Time) (barcache.Bar, bool) {
	byTime, ok := d.bars[assetID]
	if !ok {
		return barcache.Bar{}, false
	}
	b, ok := byTime[timestamp.Unix()]
	return b, ok
}

func (d *InMemory) DateRange() (time.Time, time.Time) { return d.start, d.end }

// BenchmarkReader is consumed for alpha/beta computation.
type BenchmarkReader interface {
	Returns(start, end time.Time) []TimedReturn
	CumulativeReturn(start, end time.Time) float64
}

// TimedReturn is one (timestamp, return) sample of a benchmark series.
type TimedReturn struct {
	Timestamp time.Time
	Return    float64
}

// ZeroBenchmark returns no return samples and a cumulative return of 0.
type ZeroBenchmark struct{}

func (ZeroBenchmark) Returns(start, end time.Time) []TimedReturn { return nil }
func (ZeroBenchmark) CumulativeReturn(start, end time.Time) float64 { return 0 }

// ConstantAnnualized returns a benchmark implied by a fixed annual rate:
// Returns emits one sample per calendar day at AnnualRate/252, and
// CumulativeReturn scales AnnualRate by elapsed calendar days over 365.
type ConstantAnnualized struct {
	AnnualRate float64
}

func (b ConstantAnnualized) dailyRate() float64 { return b.AnnualRate / 252.0 }

func (b ConstantAnnualized) Returns(start, end time.Time) []TimedReturn {
	var out []TimedReturn
	d := start
	rate := b.dailyRate()
	for !d.After(end) {
		out = append(out, TimedReturn{Timestamp: d, Return: rate})
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func (b ConstantAnnualized) CumulativeReturn(start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	return b.AnnualRate * (days / 365.0)
}

// AssetBacked derives benchmark returns from a tracked asset's own bar
// series in an underlying DataSource.
type AssetBacked struct {
	Source  DataSource
	AssetID int64
}

func (b AssetBacked) Returns(start, end time.Time) []TimedReturn {
	var out []TimedReturn
	var prev float64
	have := false
	d := start
	for !d.After(end) {
		bar, ok := b.Source.Bar(b.AssetID, d)
		if ok {
			if have && prev != 0 {
				out = append(out, TimedReturn{Timestamp: d, Return: bar.Close/prev - 1})
			}
			prev = bar.Close
			have = true
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func (b AssetBacked) CumulativeReturn(start, end time.Time) float64 {
	first, ok1 := b.Source.Bar(b.AssetID, start)
	last, ok2 := b.Source.Bar(b.AssetID, end)
	if !ok1 || !ok2 || first.Close == 0 {
		return 0
	}
	return last.Close/first.Close - 1
}
