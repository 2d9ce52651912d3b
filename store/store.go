// Package store persists completed backtest runs to sqlite: run metadata,
// the daily equity curve, and the transaction log. Schema setup and the
// CRUD shape are grounded on SynapseStrike/store/strategy.go's
// idempotent-migration idiom (CREATE TABLE IF NOT EXISTS, best-effort
// CREATE INDEX IF NOT EXISTS, a single *sql.DB-owning struct with one
// method per operation).
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"quantrail/blotter"
	"quantrail/perf"
)

// Store owns the sqlite connection backing run persistence.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and applies
// schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one writer at a time

	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			strategy TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			starting_cash REAL NOT NULL,
			cancelled BOOLEAN DEFAULT 0,
			error TEXT DEFAULT '',
			total_return REAL DEFAULT 0,
			annual_return REAL DEFAULT 0,
			volatility REAL DEFAULT 0,
			sharpe REAL DEFAULT 0,
			sortino REAL DEFAULT 0,
			max_drawdown REAL DEFAULT 0,
			calmar REAL DEFAULT 0,
			omega REAL DEFAULT 0,
			win_rate REAL DEFAULT 0,
			trade_count INTEGER DEFAULT 0,
			alpha REAL,
			beta REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_equity_points (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts DATETIME NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (run_id, seq)
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_transactions (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			asset_symbol TEXT NOT NULL,
			amount REAL NOT NULL,
			price REAL NOT NULL,
			commission REAL NOT NULL,
			dt DATETIME NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_run_equity_points_run_id ON run_equity_points(run_id)`)
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_run_transactions_run_id ON run_transactions(run_id)`)
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy)`)
	return nil
}

// RunRecord is one persisted backtest run, joining its identity, its final
// Performance snapshot, and its transaction log.
type RunRecord struct {
	ID           string
	Strategy     string
	StartedAt    time.Time
	FinishedAt   time.Time
	StartingCash float64
	Err          string
	Performance  perf.Performance
	Transactions []blotter.Transaction
}

// SaveRun inserts a completed run's metadata, equity curve, and transaction
// log inside a single transaction.
func (s *Store) SaveRun(r RunRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p := r.Performance
	_, err = tx.Exec(`
		INSERT INTO runs (
			id, strategy, started_at, finished_at, starting_cash, cancelled, error,
			total_return, annual_return, volatility, sharpe, sortino, max_drawdown,
			calmar, omega, win_rate, trade_count, alpha, beta
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.Strategy, r.StartedAt, r.FinishedAt, r.StartingCash, p.Cancelled, r.Err,
		p.TotalReturn, p.AnnualReturn, p.Volatility, p.Sharpe, p.Sortino, p.MaxDrawdown,
		p.Calmar, p.Omega, p.WinRate, p.TradeCount, nullableFloat(p.Alpha), nullableFloat(p.Beta),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, point := range p.Series {
		if _, err := tx.Exec(`
			INSERT INTO run_equity_points (run_id, seq, ts, value) VALUES (?, ?, ?, ?)
		`, r.ID, i, point.Timestamp, point.Value); err != nil {
			return fmt.Errorf("insert equity point %d: %w", i, err)
		}
	}

	for _, txn := range r.Transactions {
		if _, err := tx.Exec(`
			INSERT INTO run_transactions (id, run_id, order_id, asset_symbol, amount, price, commission, dt)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, txn.ID.String(), r.ID, txn.OrderID.String(), txn.Asset.Symbol, txn.Amount, txn.Price, txn.Commission, txn.DT); err != nil {
			return fmt.Errorf("insert transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// RunSummary is the row shape returned by List, omitting the equity curve
// and transaction log.
type RunSummary struct {
	ID          string    `json:"id"`
	Strategy    string    `json:"strategy"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Cancelled   bool      `json:"cancelled"`
	TotalReturn float64   `json:"total_return"`
	Sharpe      float64   `json:"sharpe"`
	MaxDrawdown float64   `json:"max_drawdown"`
	TradeCount  int       `json:"trade_count"`
}

// List returns every persisted run, most recent first.
func (s *Store) List() ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, strategy, started_at, finished_at, cancelled, total_return, sharpe, max_drawdown, trade_count
		FROM runs ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Strategy, &r.StartedAt, &finished, &r.Cancelled, &r.TotalReturn, &r.Sharpe, &r.MaxDrawdown, &r.TradeCount); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one run's summary row, the same fields List returns (without
// the equity curve or transaction log — use EquityCurve/Transactions for those).
func (s *Store) Get(id string) (*RunSummary, error) {
	var r RunSummary
	var finished sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, strategy, started_at, finished_at, cancelled, total_return, sharpe, max_drawdown, trade_count
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Strategy, &r.StartedAt, &finished, &r.Cancelled, &r.TotalReturn, &r.Sharpe, &r.MaxDrawdown, &r.TradeCount)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}

// EquityPoint is one sample of a run's persisted equity curve.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// EquityCurve returns a run's full daily equity curve in sequence order.
func (s *Store) EquityCurve(runID string) ([]EquityPoint, error) {
	rows, err := s.db.Query(`
		SELECT ts, value FROM run_equity_points WHERE run_id = ? ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityPoint
	for rows.Next() {
		var p EquityPoint
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RunTransaction is one persisted fill row.
type RunTransaction struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	AssetSymbol string    `json:"asset_symbol"`
	Amount      float64   `json:"amount"`
	Price       float64   `json:"price"`
	Commission  float64   `json:"commission"`
	DT          time.Time `json:"dt"`
}

// Transactions returns a run's full transaction log in fill order.
func (s *Store) Transactions(runID string) ([]RunTransaction, error) {
	rows, err := s.db.Query(`
		SELECT id, order_id, asset_symbol, amount, price, commission, dt
		FROM run_transactions WHERE run_id = ? ORDER BY dt ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunTransaction
	for rows.Next() {
		var t RunTransaction
		if err := rows.Scan(&t.ID, &t.OrderID, &t.AssetSymbol, &t.Amount, &t.Price, &t.Commission, &t.DT); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PerformanceJSON marshals a Performance snapshot for API responses,
// omitting the raw daily-return series.
func PerformanceJSON(p perf.Performance) ([]byte, error) {
	return json.Marshal(struct {
		TotalReturn  float64  `json:"total_return"`
		AnnualReturn float64  `json:"annual_return"`
		Volatility   float64  `json:"volatility"`
		Sharpe       float64  `json:"sharpe"`
		Sortino      float64  `json:"sortino"`
		MaxDrawdown  float64  `json:"max_drawdown"`
		Calmar       float64  `json:"calmar"`
		Omega        float64  `json:"omega"`
		WinRate      float64  `json:"win_rate"`
		TradeCount   int      `json:"trade_count"`
		Alpha        *float64 `json:"alpha,omitempty"`
		Beta         *float64 `json:"beta,omitempty"`
		Cancelled    bool     `json:"cancelled"`
	}{
		TotalReturn: p.TotalReturn, AnnualReturn: p.AnnualReturn, Volatility: p.Volatility,
		Sharpe: p.Sharpe, Sortino: p.Sortino, MaxDrawdown: p.MaxDrawdown, Calmar: p.Calmar,
		Omega: p.Omega, WinRate: p.WinRate, TradeCount: p.TradeCount, Alpha: p.Alpha, Beta: p.Beta,
		Cancelled: p.Cancelled,
	})
}
