// Package main runs one full analysis cycle over a bar series and
// prints the resulting trade decision.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/your-org/flowdesk/internal/agent"
	"github.com/your-org/flowdesk/internal/barsource"
	"github.com/your-org/flowdesk/internal/config"
	"github.com/your-org/flowdesk/internal/crew"
	"github.com/your-org/flowdesk/internal/decision"
	"github.com/your-org/flowdesk/internal/resultstore"
	"github.com/your-org/flowdesk/pkg/logger"
	"github.com/your-org/flowdesk/pkg/market"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	csvPath := flag.String("csv", "", "Path to a CSV file of OHLCV bars")
	wsURL := flag.String("ws", "", "Websocket bar feed URL (alternative to -csv)")
	barCount := flag.Int("bars", 0, "Bars to collect from the feed (defaults to four windows)")
	symbol := flag.String("symbol", "", "Symbol to analyze (defaults to the configured symbol)")
	migrationsDir := flag.String("migrations", "db/migrations", "Path to the database migrations")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *symbol == "" {
		*symbol = cfg.Symbol
	}
	if *csvPath == "" && *wsURL == "" {
		fmt.Fprintln(os.Stderr, "One of -csv or -ws is required")
		os.Exit(1)
	}

	logger.SetGlobalLogLevel(cfg.LogLevel)
	log := logger.NewLogger(cfg.LogLevel)

	bars, err := loadBars(ctx, cfg, *csvPath, *wsURL, *symbol, *barCount, log)
	if err != nil {
		log.Fatalf("failed to load bars: %v", err)
	}
	log.Infof("loaded %d bars", len(bars))

	engine := decision.NewEngine(cfg.Risk, log)
	c, err := crew.New(buildSources(cfg, log), engine,
		time.Duration(cfg.Crew.AnalysisTimeoutMs)*time.Millisecond, log)
	if err != nil {
		log.Fatalf("failed to assemble crew: %v", err)
	}

	store := openStore(ctx, cfg, *migrationsDir, log)
	defer store.Close()

	snap := buildSnapshot(*symbol, bars, cfg.Backtest.WindowSize)
	d := c.Run(ctx, snap, nil)

	if err := store.SaveDecision(ctx, d); err != nil {
		log.Errorf("failed to persist decision: %v", err)
	}
	printDecision(d)
}

// loadBars reads the bar series from the CSV file, or collects it from
// the websocket feed when -ws is given.
func loadBars(ctx context.Context, cfg *config.Config, csvPath, wsURL, symbol string, barCount int, log logger.Logger) ([]market.Bar, error) {
	if wsURL != "" {
		if barCount <= 0 {
			barCount = cfg.Backtest.WindowSize * 4
		}
		log.Infof("collecting %d bars for %s from %s", barCount, symbol, wsURL)
		bars, err := barsource.NewStream(wsURL, log).Collect(ctx, symbol, barCount)
		if err != nil {
			return nil, err
		}
		if err := market.ValidateSeries(bars); err != nil {
			return nil, err
		}
		return bars, nil
	}
	log.Infof("loading bars for %s from %s", symbol, csvPath)
	source := &barsource.CSVSource{Path: csvPath}
	return source.Bars(ctx, symbol)
}

// buildSources assembles the three analysis sources from config.
func buildSources(cfg *config.Config, log logger.Logger) []agent.Source {
	return []agent.Source{
		agent.NewTapeReader(cfg.OrderFlow.Analyzer(), log),
		agent.NewChartist(cfg.Profile.Builder(), log),
		agent.NewMacroEconomist(nil, cfg.Macro.EventBufferMinutes, log),
	}
}

// buildSnapshot slices one bar series into the three analysis
// timeframes: the full series is the high timeframe, the last four
// windows the medium, and the last window the entry timeframe.
func buildSnapshot(symbol string, bars []market.Bar, window int) agent.Snapshot {
	snap := agent.Snapshot{
		Symbol:  symbol,
		HTFBars: bars,
		Now:     time.Now(),
	}
	snap.MTFBars = market.Tail(bars, window*4)
	snap.Bars = market.Tail(bars, window)
	return snap
}

func openStore(ctx context.Context, cfg *config.Config, migrationsDir string, log logger.Logger) resultstore.Store {
	if cfg.DatabaseURL == "" {
		return resultstore.NoopStore{}
	}
	if err := resultstore.RunMigrations(cfg.DatabaseURL, migrationsDir, log); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	store, err := resultstore.NewPostgresStore(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return store
}

func printDecision(d decision.Decision) {
	fmt.Printf("Decision for %s\n", d.Symbol)
	fmt.Printf("  Action:     %s\n", d.Action)
	fmt.Printf("  Direction:  %s\n", d.Direction)
	fmt.Printf("  Confidence: %.0f%%\n", d.Confidence*100)
	fmt.Printf("  Agreement:  %s\n", d.Agreement)
	if d.Action == decision.ActionNoTrade {
		fmt.Printf("  Reason:     %s\n", d.Reason)
		return
	}
	fmt.Printf("  Entry:      %.2f\n", d.EntryPrice)
	fmt.Printf("  Stop Loss:  %.2f\n", d.StopLoss)
	fmt.Printf("  Size:       %.1f%% of equity (%.0f units)\n", d.Position.Pct*100, d.Position.Units)
	fmt.Printf("  Risk:       %.2f\n", d.Position.RiskAmount)
}
