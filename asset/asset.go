// Package asset implements the asset registry: immutable, identified by a
// stable numeric id, carrying instrument class, symbol/exchange label and
// first-trade date.
package asset

import "time"

// Class is the instrument class of an Asset.
type Class string

const (
	Equity Class = "equity"
	Future Class = "future"
	Option Class = "option"
	Forex  Class = "forex"
	Crypto Class = "crypto"
)

// Asset is an immutable record. Equality is by ID; Symbol/Exchange are a
// human label, never a key.
type Asset struct {
	ID             int64
	Symbol         string
	Exchange       string
	Class          Class
	Name           string
	FirstTradeDate time.Time
}

// NewEquity constructs an equity asset with the four-argument form: the
// source this module was distilled from mixed a three- and a four-argument
// spelling of this constructor; this module standardizes on the
// four-argument form. errs defines an AssetNonExistent kind, but no code in
// this module constructs that error, so FirstTradeDate is not reported in one.
func NewEquity(id int64, symbol, exchange string, firstTradeDate time.Time) Asset {
	return Asset{ID: id, Symbol: symbol, Exchange: exchange, Class: Equity, FirstTradeDate: firstTradeDate}
}

// NewFuture constructs a future asset.
func NewFuture(id int64, symbol, exchange string, firstTradeDate time.Time) Asset {
	return Asset{ID: id, Symbol: symbol, Exchange: exchange, Class: Future, FirstTradeDate: firstTradeDate}
}

// NewForex constructs a forex asset.
func NewForex(id int64, symbol, exchange string, firstTradeDate time.Time) Asset {
	return Asset{ID: id, Symbol: symbol, Exchange: exchange, Class: Forex, FirstTradeDate: firstTradeDate}
}

// NewCrypto constructs a crypto asset.
func NewCrypto(id int64, symbol, exchange string, firstTradeDate time.Time) Asset {
	return Asset{ID: id, Symbol: symbol, Exchange: exchange, Class: Crypto, FirstTradeDate: firstTradeDate}
}

// WithName returns a copy of a with Name set.
func (a Asset) WithName(name string) Asset {
	a.Name = name
	return a
}

// Equal reports id equality, the only equality that matters for an Asset.
func (a Asset) Equal(other Asset) bool { return a.ID == other.ID }

// Registry is a lookup table of assets by id, shared immutably across the
// engine once built.
type Registry struct {
	byID map[int64]Asset
}

// NewRegistry builds a Registry from a set of assets.
func NewRegistry(assets ...Asset) *Registry {
	r := &Registry{byID: make(map[int64]Asset, len(assets))}
	for _, a := range assets {
		r.byID[a.ID] = a
	}
	return r
}

// Get looks up an asset by id.
func (r *Registry) Get(id int64) (Asset, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// All returns every registered asset; order is unspecified.
func (r *Registry) All() []Asset {
	out := make([]Asset, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out
}
