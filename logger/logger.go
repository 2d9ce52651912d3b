// Package logger provides the zerolog wrapper shared by every component of
// the backtester, binding a "component" field so log lines are attributable
// to the subsystem that emitted them.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	base zerolog.Logger
)

func root() zerolog.Logger {
	once.Do(func() {
		level := zerolog.InfoLevel
		if lvl, err := zerolog.ParseLevel(os.Getenv("QUANTRAIL_LOG_LEVEL")); err == nil {
			level = lvl
		}
		zerolog.SetGlobalLevel(level)
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		base = zerolog.New(writer).With().Timestamp().Logger()
	})
	return base
}

// New returns a logger with a bound "component" field, e.g. "engine",
// "broker", "scheduler".
func New(component string) zerolog.Logger {
	return root().With().Str("component", component).Logger()
}

// WithRun returns a logger additionally bound to a run id, used by the
// engine package to correlate log lines with a single backtest.
func WithRun(l zerolog.Logger, runID string) zerolog.Logger {
	return l.With().Str("run_id", runID).Logger()
}
