// Package config loads and validates the EngineConfig. Local overrides are
// read from a .env file via github.com/joho/godotenv, grounded on the
// teacher's config-loading idiom.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"quantrail/errs"
)

const (
	minHistoryLen = 1
	maxHistoryLen = 1_000_000
)

// EngineConfig is the configuration surface
type EngineConfig struct {
	StartingCash   float64
	MaxHistoryLen  int
	CalendarName   string
	RiskFreeAnnual float64
	// Frequency selects the bar frequency: "" or "daily" (one bar timestamp
	// per session, at the close) or "minute" (one bar timestamp per minute
	// across the session's half-open [open, close) window). Anything else
	// fails at construction with UnsupportedFrequency.
	Frequency string
}

// SupportedFrequencies lists the bar frequencies this engine can drive.
var SupportedFrequencies = map[string]bool{"": true, "daily": true, "minute": true}

// Validate enforces StartingCash > 0 and MaxHistoryLen in [1, 10^6],
// returning an InvalidEngineConfig error (fatal at construction) otherwise,
// and returns an UnsupportedFrequency error for a Frequency outside
// SupportedFrequencies.
func (c EngineConfig) Validate() error {
	if c.StartingCash <= 0 {
		return errs.New(errs.InvalidEngineConfig, "starting cash must be positive", "starting_cash", c.StartingCash)
	}
	if c.MaxHistoryLen < minHistoryLen || c.MaxHistoryLen > maxHistoryLen {
		return errs.New(errs.InvalidEngineConfig, "max_history_len out of range",
			"max_history_len", c.MaxHistoryLen, "min", minHistoryLen, "max", maxHistoryLen)
	}
	if !SupportedFrequencies[c.Frequency] {
		return errs.New(errs.UnsupportedFrequency, "unsupported bar frequency", "frequency", c.Frequency)
	}
	return nil
}

// Default returns a config matching original_source's trading-constant
// defaults (finance/constants.rs): $10,000,000 starting cash, 1000-bar
// history.
func Default() EngineConfig {
	return EngineConfig{
		StartingCash:  10_000_000.0,
		MaxHistoryLen: 1000,
		CalendarName:  "NYSE",
	}
}

// LoadEnv applies .env overrides (if present) on top of a base config; a
// missing .env file is not an error.
func LoadEnv(base EngineConfig) EngineConfig {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv("QUANTRAIL_STARTING_CASH"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			base.StartingCash = f
		}
	}
	if v, ok := os.LookupEnv("QUANTRAIL_MAX_HISTORY_LEN"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			base.MaxHistoryLen = n
		}
	}
	if v, ok := os.LookupEnv("QUANTRAIL_CALENDAR"); ok {
		base.CalendarName = v
	}
	if v, ok := os.LookupEnv("QUANTRAIL_RISK_FREE_ANNUAL"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			base.RiskFreeAnnual = f
		}
	}
	return base
}

// APIConfig configures the reporting HTTP server: its listen address, the
// sqlite file backing run persistence, and the JWT signing secret for bearer
// auth on the read-only run report endpoints.
type APIConfig struct {
	ListenAddr string
	DBPath     string
	JWTSecret  string
}

// DefaultAPI returns a development-friendly APIConfig.
func DefaultAPI() APIConfig {
	return APIConfig{
		ListenAddr: ":8080",
		DBPath:     "quantrail.db",
		JWTSecret:  "dev-secret-change-me",
	}
}

// LoadAPIEnv applies .env overrides on top of a base APIConfig.
func LoadAPIEnv(base APIConfig) APIConfig {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv("QUANTRAIL_API_ADDR"); ok {
		base.ListenAddr = v
	}
	if v, ok := os.LookupEnv("QUANTRAIL_DB_PATH"); ok {
		base.DBPath = v
	}
	if v, ok := os.LookupEnv("QUANTRAIL_JWT_SECRET"); ok {
		base.JWTSecret = v
	}
	return base
}
