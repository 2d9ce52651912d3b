// Command backtest wires a calendar, an in-memory data source loaded from a
// CSV bar file, and a sample buy-and-hold strategy into the engine, runs one
// full backtest, persists the result to sqlite, and prints a performance
// summary. Pass -serve to keep the reporting API up afterwards so the run's
// equity curve and transaction log can be inspected over HTTP.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"quantrail/api"
	"quantrail/asset"
	"quantrail/barcache"
	"quantrail/calendar"
	"quantrail/config"
	"quantrail/datasource"
	"quantrail/engine"
	"quantrail/logger"
	"quantrail/metrics"
	"quantrail/store"
	"quantrail/strategy"
)

func main() {
	csvPath := flag.String("csv", "", "path to a CSV bar file: date,open,high,low,close,volume")
	symbol := flag.String("symbol", "DEMO", "ticker symbol the CSV file represents")
	calendarName := flag.String("calendar", "NYSE", "trading calendar name")
	serve := flag.Bool("serve", false, "start the reporting API after the run and block")
	addr := flag.String("addr", "", "reporting API listen address (overrides QUANTRAIL_API_ADDR)")
	username := flag.String("username", "admin", "reporting API login username")
	password := flag.String("password", "", "reporting API login password (required with -serve)")
	flag.Parse()

	log := logger.New("cmd")

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: backtest -csv path/to/bars.csv [-symbol SYM] [-serve]")
		os.Exit(2)
	}

	metrics.Init()

	bars, firstTradeDate, err := loadCSV(*csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *csvPath).Msg("failed to load bar file")
	}

	a := asset.NewEquity(1, *symbol, "NYSE", firstTradeDate)
	registry := asset.NewRegistry(a)

	ds := datasource.NewInMemory([]asset.Asset{a})
	for _, bar := range bars {
		ds.AddBar(a.ID, bar)
	}

	cal, err := calendar.ByName(*calendarName)
	if err != nil {
		log.Fatal().Err(err).Msg("unknown calendar")
	}

	cfg := config.LoadEnv(config.Default())
	cfg.CalendarName = *calendarName

	strat := &buyAndHold{asset: a}

	eng, err := engine.New(cfg, cal, registry, ds, strat)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	perfResult, runErr := eng.Run(ctx)
	if runErr != nil {
		log.Error().Err(runErr).Msg("backtest halted")
	}

	log.Info().
		Str("run_id", eng.RunID()).
		Float64("total_return", perfResult.TotalReturn).
		Float64("sharpe", perfResult.Sharpe).
		Float64("max_drawdown", perfResult.MaxDrawdown).
		Int("trade_count", perfResult.TradeCount).
		Msg("backtest complete")

	apiCfg := config.LoadAPIEnv(config.DefaultAPI())
	if *addr != "" {
		apiCfg.ListenAddr = *addr
	}

	st, err := store.Open(apiCfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", apiCfg.DBPath).Msg("failed to open run store")
	}
	defer st.Close()

	record := store.RunRecord{
		ID:           eng.RunID(),
		Strategy:     eng.StrategyName(),
		StartedAt:    eng.StartedAt(),
		FinishedAt:   time.Now().UTC(),
		StartingCash: cfg.StartingCash,
		Performance:  perfResult,
		Transactions: eng.Blotter().Transactions(),
	}
	if runErr != nil {
		record.Err = runErr.Error()
	}
	if err := st.SaveRun(record); err != nil {
		log.Error().Err(err).Msg("failed to persist run")
	}

	if !*serve {
		return
	}

	if *password == "" {
		log.Fatal().Msg("-password is required with -serve")
	}
	hash, err := api.HashPassword(*password)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash password")
	}

	srv := api.NewServer(st, apiCfg.JWTSecret)
	srv.SetCredentials(*username, hash)

	log.Info().Str("addr", apiCfg.ListenAddr).Msg("serving run reports")
	if err := srv.ListenAndServe(apiCfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("reporting API exited")
	}
}

// loadCSV parses a date,open,high,low,close,volume bar file with a header
// row, returning the bars in file order and the earliest date seen.
func loadCSV(path string) ([]barcache.Bar, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, time.Time{}, fmt.Errorf("reading header: %w", err)
	}

	var out []barcache.Bar
	var first time.Time
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, time.Time{}, err
		}
		bar, err := parseRow(row)
		if err != nil {
			return nil, time.Time{}, err
		}
		if first.IsZero() || bar.Timestamp.Before(first) {
			first = bar.Timestamp
		}
		out = append(out, bar)
	}
	return out, first, nil
}

func parseRow(row []string) (barcache.Bar, error) {
	if len(row) < 6 {
		return barcache.Bar{}, fmt.Errorf("expected 6 columns, got %d", len(row))
	}
	ts, err := time.Parse("2006-01-02", row[0])
	if err != nil {
		return barcache.Bar{}, fmt.Errorf("parsing date %q: %w", row[0], err)
	}
	open, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return barcache.Bar{}, err
	}
	high, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return barcache.Bar{}, err
	}
	low, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return barcache.Bar{}, err
	}
	closePrice, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return barcache.Bar{}, err
	}
	volume, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return barcache.Bar{}, err
	}
	return barcache.Bar{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

// buyAndHold spends 95% of available cash on the first bar it sees a price
// for and holds for the remainder of the run; it demonstrates wiring a
// Strategy against the engine, not a recommended trading rule.
type buyAndHold struct {
	strategy.NoopStrategy
	asset  asset.Asset
	bought bool
}

func (b *buyAndHold) HandleData(ctx *strategy.Context, bars strategy.BarView) {
	if b.bought {
		return
	}
	price, ok := bars.CurrentPrice(b.asset)
	if !ok || price <= 0 {
		return
	}
	cash, _ := ctx.Portfolio.Cash.Float64()
	shares := (cash * 0.95) / price
	if shares <= 0 {
		return
	}
	ctx.Order(b.asset, shares)
	b.bought = true
}
