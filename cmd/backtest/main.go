// Package main replays the full analysis pipeline over a CSV bar
// series and prints the backtest report.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/your-org/flowdesk/internal/agent"
	"github.com/your-org/flowdesk/internal/backtest"
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
	symbol := flag.String("symbol", "", "Symbol to backtest (defaults to the configured symbol)")
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
	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "Missing required -csv flag")
		os.Exit(1)
	}

	logger.SetGlobalLogLevel(cfg.LogLevel)
	log := logger.NewLogger(cfg.LogLevel)

	source := &barsource.CSVSource{Path: *csvPath}
	bars, err := source.Bars(ctx, *symbol)
	if err != nil {
		log.Fatalf("failed to load bars: %v", err)
	}

	engine := decision.NewEngine(cfg.Risk, log)
	sources := []agent.Source{
		agent.NewTapeReader(cfg.OrderFlow.Analyzer(), log),
		agent.NewChartist(cfg.Profile.Builder(), log),
		agent.NewMacroEconomist(nil, cfg.Macro.EventBufferMinutes, log),
	}
	c, err := crew.New(sources, engine,
		time.Duration(cfg.Crew.AnalysisTimeoutMs)*time.Millisecond, log)
	if err != nil {
		log.Fatalf("failed to assemble crew: %v", err)
	}

	bt := backtest.NewEngine(cfg.Backtest, log)
	result, err := bt.Run(*symbol, bars, crewStrategy(ctx, c, *symbol))
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
	comparison := bt.CompareBuyAndHold(market.Closes(bars), result)

	if cfg.DatabaseURL != "" {
		if err := resultstore.RunMigrations(cfg.DatabaseURL, *migrationsDir, log); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		store, err := resultstore.NewPostgresStore(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer store.Close()
		if err := store.SaveBacktest(ctx, result); err != nil {
			log.Errorf("failed to persist backtest result: %v", err)
		}
	}

	printResult(result, comparison)
}

// crewStrategy adapts the crew's decision output to the backtest
// engine's strategy contract. Each window is treated as the high
// timeframe with the trailing quarter as entry context.
func crewStrategy(ctx context.Context, c *crew.Crew, symbol string) backtest.Strategy {
	return func(window []market.Bar) backtest.Signal {
		snap := agent.Snapshot{
			Symbol:  symbol,
			HTFBars: window,
			MTFBars: window,
			Bars:    market.Tail(window, len(window)/4),
		}
		d := c.Run(ctx, snap, nil)
		switch d.Action {
		case decision.ActionBuy:
			return backtest.Signal{Action: backtest.Buy, StopLoss: d.StopLoss}
		case decision.ActionSell:
			return backtest.Signal{Action: backtest.Sell, StopLoss: d.StopLoss}
		}
		return backtest.Signal{Action: backtest.NoTrade}
	}
}

func printResult(r backtest.Result, c backtest.Comparison) {
	fmt.Printf("Backtest results for %s (%s to %s)\n",
		r.Symbol, r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	fmt.Printf("  Initial Capital: %s\n", r.InitialCapital.StringFixed(2))
	fmt.Printf("  Final Capital:   %s\n", r.FinalCapital.StringFixed(2))
	fmt.Printf("  Total Return:    %s (%.2f%%)\n", r.TotalReturn.StringFixed(2), r.TotalReturnPct)
	fmt.Printf("  Trades:          %d (%d wins, %d losses)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	fmt.Printf("  Win Rate:        %.1f%%\n", r.WinRate)
	fmt.Printf("  Avg Win/Loss:    %.2f / %.2f\n", r.AvgWin, r.AvgLoss)
	if math.IsInf(r.ProfitFactor, 1) {
		fmt.Printf("  Profit Factor:   inf\n")
	} else {
		fmt.Printf("  Profit Factor:   %.2f\n", r.ProfitFactor)
	}
	fmt.Printf("  Max Drawdown:    %.2f (%.1f%%)\n", r.MaxDrawdown, r.MaxDrawdownPct)
	fmt.Printf("  Sharpe:          %.2f\n", r.SharpeRatio)
	fmt.Printf("  Sortino:         %.2f\n", r.SortinoRatio)
	fmt.Printf("  Calmar:          %.2f\n", r.CalmarRatio)
	fmt.Printf("vs Buy & Hold\n")
	fmt.Printf("  B&H Return:      %.2f%%\n", c.BuyAndHold.ReturnPct)
	fmt.Printf("  B&H Max DD:      %.1f%%\n", c.BuyAndHold.MaxDrawdownPct)
	fmt.Printf("  B&H Sharpe:      %.2f\n", c.BuyAndHold.SharpeRatio)
	fmt.Printf("  Outperformance:  %+.2f%%\n", c.ReturnDiff)
}
