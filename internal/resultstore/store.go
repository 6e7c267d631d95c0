// Package resultstore persists decisions and backtest runs to
// PostgreSQL. Persistence is optional; callers without a database use
// the no-op store.
package resultstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/flowdesk/internal/backtest"
	"github.com/your-org/flowdesk/internal/decision"
	"github.com/your-org/flowdesk/pkg/logger"
)

// Pool abstracts pgxpool.Pool for testability.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store records analysis decisions and backtest results.
type Store interface {
	SaveDecision(ctx context.Context, d decision.Decision) error
	SaveBacktest(ctx context.Context, r backtest.Result) error
	Close()
}

// PostgresStore writes to PostgreSQL through a connection pool.
type PostgresStore struct {
	pool Pool
	log  logger.Logger
}

// NewPostgresStore connects to the database at the given URL.
func NewPostgresStore(ctx context.Context, databaseURL string, log logger.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool, log: log}, nil
}

// NewPostgresStoreWithPool wraps an existing pool, mainly for tests.
func NewPostgresStoreWithPool(pool Pool, log logger.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, log: log}
}

const insertDecisionSQL = `
INSERT INTO decisions (id, symbol, time, action, direction, confidence, signal_strength, entry_price, stop_loss, position_pct, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// SaveDecision implements Store.
func (s *PostgresStore) SaveDecision(ctx context.Context, d decision.Decision) error {
	_, err := s.pool.Exec(ctx, insertDecisionSQL,
		d.ID, d.Symbol, d.Timestamp, string(d.Action), string(d.Direction),
		d.Confidence, d.SignalStrength, d.EntryPrice, d.StopLoss, d.Position.Pct, d.Reason)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

const insertBacktestSQL = `
INSERT INTO backtest_runs (symbol, start_time, end_time, initial_capital, final_capital, total_return_pct,
	total_trades, win_rate, profit_factor, max_drawdown_pct, sharpe_ratio, sortino_ratio, calmar_ratio)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// SaveBacktest implements Store.
func (s *PostgresStore) SaveBacktest(ctx context.Context, r backtest.Result) error {
	_, err := s.pool.Exec(ctx, insertBacktestSQL,
		r.Symbol, r.Start, r.End, r.InitialCapital.InexactFloat64(), r.FinalCapital.InexactFloat64(), r.TotalReturnPct,
		r.TotalTrades, r.WinRate, r.ProfitFactor, r.MaxDrawdownPct,
		r.SharpeRatio, r.SortinoRatio, r.CalmarRatio)
	if err != nil {
		return fmt.Errorf("failed to save backtest result: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// NoopStore discards everything. Used when no database is configured.
type NoopStore struct{}

func (NoopStore) SaveDecision(context.Context, decision.Decision) error { return nil }
func (NoopStore) SaveBacktest(context.Context, backtest.Result) error { return nil }
func (NoopStore) Close() {}
