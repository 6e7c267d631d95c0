package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/flowdesk/pkg/logger"
	"github.com/your-org/flowdesk/pkg/market"
	"github.com/your-org/flowdesk/pkg/orderflow"
)

func testLog() logger.Logger { return logger.NewLogger("error") }

func obar(open, high, low, close, volume float64) market.Bar {
	return market.Bar{
		Timestamp: time.Now(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

func TestTapeReaderNoData(t *testing.T) {
	tr := NewTapeReader(orderflow.DefaultConfig(), testLog())

	sig := tr.Analyze(context.Background(), Snapshot{})
	assert.Equal(t, StatusError, sig.Status)
	assert.Equal(t, "no bar data available", sig.Reason)
	assert.Equal(t, DirectionNeutral, sig.Direction)
	assert.True(t, sig.TradingAllowed)
}

func TestTapeReaderInsufficientHistory(t *testing.T) {
	tr := NewTapeReader(orderflow.DefaultConfig(), testLog())

	sig := tr.Analyze(context.Background(), Snapshot{
		Bars: []market.Bar{obar(100, 101, 99, 100.5, 100)},
	})
	assert.Equal(t, StatusDegraded, sig.Status)
	assert.Zero(t, sig.Confidence)
	assert.True(t, sig.TradingAllowed)
}

func TestTapeReaderContinuation(t *testing.T) {
	tr := NewTapeReader(orderflow.DefaultConfig(), testLog())

	// Rising bullish bars with the last doing the most volume.
	sig := tr.Analyze(context.Background(), Snapshot{
		Bars: []market.Bar{
			obar(100, 101, 99, 100.5, 100),
			obar(100.5, 102, 100, 101.5, 120),
			obar(101.5, 104, 101, 103.5, 400),
		},
	})
	require.Equal(t, StatusOK, sig.Status)
	assert.Equal(t, DirectionBullish, sig.Direction)
	assert.Equal(t, "medium", sig.Priority)
	assert.Equal(t, "consider_long", sig.Action)
}

func TestTapeReaderExhaustionOverrides(t *testing.T) {
	tr := NewTapeReader(orderflow.DefaultConfig(), testLog())

	// Closes grind up on persistently bearish candles, so cumulative
	// delta diverges from price. Exhaustion must outrank the bar-level
	// reading.
	bars := make([]market.Bar, 12)
	for i := range bars {
		open := 102 + float64(i)*2
		close := open - 1
		bars[i] = obar(open, open+0.5, close-0.5, close, 100)
	}
	sig := tr.Analyze(context.Background(), Snapshot{Bars: bars})
	require.Equal(t, StatusOK, sig.Status)
	assert.Equal(t, DirectionBearish, sig.Direction)
	assert.Equal(t, "high", sig.Priority)
	assert.Equal(t, "strong_short", sig.Action)
	assert.GreaterOrEqual(t, sig.Confidence, 0.75)
}

func TestTapeAction(t *testing.T) {
	cases := []struct {
		direction  Direction
		confidence float64
		want       string
	}{
		{DirectionBullish, 0.4, "wait"},
		{DirectionBullish, 0.6, "consider_long"},
		{DirectionBullish, 0.8, "strong_long"},
		{DirectionBearish, 0.6, "consider_short"},
		{DirectionBearish, 0.9, "strong_short"},
		{DirectionNeutral, 0.9, "wait"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tapeAction(c.direction, c.confidence),
			"direction=%s confidence=%.2f", c.direction, c.confidence)
	}
}
