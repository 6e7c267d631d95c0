package barsource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/your-org/flowdesk/pkg/market"
)

// csvTimeLayouts are tried in order when parsing the time column.
var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CSVSource reads bars from a CSV file with a header and the columns:
// time, open, high, low, close, volume. The symbol argument to Bars is
// ignored; one file holds one series.
type CSVSource struct {
	Path string
}

// Bars implements BarSource.
func (s *CSVSource) Bars(ctx context.Context, _ string) ([]market.Bar, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, market.ErrNoData
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var bars []market.Bar
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record at line %d: %w", line+1, err)
		}
		line++

		bar, err := parseBarRecord(record)
		if err != nil {
			return nil, fmt.Errorf("invalid csv record at line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	if err := market.ValidateSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func parseBarRecord(record []string) (market.Bar, error) {
	if len(record) < 6 {
		return market.Bar{}, fmt.Errorf("expected 6 columns, got %d", len(record))
	}

	ts, err := parseCSVTime(record[0])
	if err != nil {
		return market.Bar{}, err
	}

	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("failed to parse column %d: %w", i+2, err)
		}
		fields[i] = v
	}

	return market.Bar{
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

func parseCSVTime(s string) (time.Time, error) {
	// Epoch milliseconds are common in exported bar data.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
