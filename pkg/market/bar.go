// Package market defines the OHLCV bar type shared by all analyzers.
package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoData indicates an empty bar series where at least one bar was required.
var ErrNoData = errors.New("market: no bar data")

// Bar represents a single OHLCV bar. Bars are immutable once produced
// by a bar source.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// IsBullish reports whether the bar closed above its open.
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

// Body returns the signed candle body (close - open).
func (b Bar) Body() float64 {
	return b.Close - b.Open
}

// Range returns the high-low price range of the bar.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Validate checks the OHLC invariant of a single bar:
// high >= max(open, close) >= min(open, close) >= low >= 0, volume >= 0.
func (b Bar) Validate() error {
	hi, lo := b.Open, b.Close
	if lo > hi {
		hi, lo = lo, hi
	}
	switch {
	case b.Low < 0:
		return fmt.Errorf("bar at %s: negative low %f", b.Timestamp.Format(time.RFC3339), b.Low)
	case b.Volume < 0:
		return fmt.Errorf("bar at %s: negative volume %f", b.Timestamp.Format(time.RFC3339), b.Volume)
	case b.High < hi:
		return fmt.Errorf("bar at %s: high %f below body top %f", b.Timestamp.Format(time.RFC3339), b.High, hi)
	case b.Low > lo:
		return fmt.Errorf("bar at %s: low %f above body bottom %f", b.Timestamp.Format(time.RFC3339), b.Low, lo)
	}
	return nil
}

// ValidateSeries checks every bar of the series and that timestamps are
// non-decreasing. It returns ErrNoData for an empty series.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return ErrNoData
	}
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && b.Timestamp.Before(bars[i-1].Timestamp) {
			return fmt.Errorf("non-monotonic timestamps: bar %d at %s precedes bar %d at %s",
				i, b.Timestamp.Format(time.RFC3339), i-1, bars[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes extracts the close prices of a bar series.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Tail returns the trailing n bars, or the whole series if it is shorter.
func Tail(bars []Bar, n int) []Bar {
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}
