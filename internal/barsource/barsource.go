// Package barsource provides the OHLCV bar inputs for analysis and
// backtesting: CSV files, in-memory slices, and a streaming websocket
// feed.
package barsource

import (
	"context"

	"github.com/your-org/flowdesk/pkg/market"
)

// BarSource yields a bar series for a symbol. Implementations validate
// the series before returning it.
type BarSource interface {
	Bars(ctx context.Context, symbol string) ([]market.Bar, error)
}

// Memory is a fixed in-memory bar source, mainly for tests and demos.
type Memory struct {
	Series map[string][]market.Bar
}

// Bars implements BarSource.
func (m *Memory) Bars(_ context.Context, symbol string) ([]market.Bar, error) {
	bars := m.Series[symbol]
	if err := market.ValidateSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}
