package barsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/flowdesk/pkg/market"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSourceBars(t *testing.T) {
	src := &CSVSource{Path: writeCSV(t, `time,open,high,low,close,volume
2026-01-02T09:30:00Z,100,101,99,100.5,1500
2026-01-02T09:31:00Z,100.5,102,100,101.5,1800
`)}

	bars, err := src.Bars(context.Background(), "SPY")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC), bars[0].Timestamp.UTC())
	assert.InDelta(t, 100.0, bars[0].Open, 1e-9)
	assert.InDelta(t, 101.5, bars[1].Close, 1e-9)
	assert.InDelta(t, 1800.0, bars[1].Volume, 1e-9)
}

func TestCSVSourceEpochMillis(t *testing.T) {
	src := &CSVSource{Path: writeCSV(t, `time,open,high,low,close,volume
1767346200000,100,101,99,100.5,1500
`)}

	bars, err := src.Bars(context.Background(), "SPY")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.UnixMilli(1767346200000).UTC(), bars[0].Timestamp)
}

func TestCSVSourceEmptyFile(t *testing.T) {
	src := &CSVSource{Path: writeCSV(t, "")}
	_, err := src.Bars(context.Background(), "SPY")
	assert.ErrorIs(t, err, market.ErrNoData)
}

func TestCSVSourceHeaderOnly(t *testing.T) {
	src := &CSVSource{Path: writeCSV(t, "time,open,high,low,close,volume\n")}
	_, err := src.Bars(context.Background(), "SPY")
	assert.ErrorIs(t, err, market.ErrNoData)
}

func TestCSVSourceBadRecord(t *testing.T) {
	src := &CSVSource{Path: writeCSV(t, `time,open,high,low,close,volume
2026-01-02T09:30:00Z,100,not-a-number,99,100.5,1500
`)}

	_, err := src.Bars(context.Background(), "SPY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestCSVSourceBadTime(t *testing.T) {
	src := &CSVSource{Path: writeCSV(t, `time,open,high,low,close,volume
yesterday,100,101,99,100.5,1500
`)}

	_, err := src.Bars(context.Background(), "SPY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized time format")
}

func TestCSVSourceMissingFile(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "missing.csv")}
	_, err := src.Bars(context.Background(), "SPY")
	assert.Error(t, err)
}

func TestCSVSourceNonMonotonic(t *testing.T) {
	src := &CSVSource{Path: writeCSV(t, `time,open,high,low,close,volume
2026-01-02T09:31:00Z,100,101,99,100.5,1500
2026-01-02T09:30:00Z,100.5,102,100,101.5,1800
`)}

	_, err := src.Bars(context.Background(), "SPY")
	assert.Error(t, err)
}

func TestMemorySource(t *testing.T) {
	mem := &Memory{Series: map[string][]market.Bar{
		"SPY": {{
			Timestamp: time.Now(),
			Open:      100, High: 101, Low: 99, Close: 100.5, Volume: 1000,
		}},
	}}

	bars, err := mem.Bars(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	_, err = mem.Bars(context.Background(), "QQQ")
	assert.ErrorIs(t, err, market.ErrNoData)
}
