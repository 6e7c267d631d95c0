// Package agent contains the three analysis sources that feed the
// decision engine: tape reader, chartist, and macro economist. Each
// source reports a status-tagged signal rather than failing the whole
// analysis cycle.
package agent

import (
	"context"
	"time"

	"github.com/your-org/flowdesk/pkg/market"
)

// Status tags the outcome of a single source's analysis.
type Status string

const (
	StatusOK Status = "ok"
	// StatusDegraded means the source produced a fallback signal, e.g.
	// because its input window was too short or it timed out.
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// Direction is a source's view of where price is headed.
type Direction string

const (
	DirectionBullish         Direction = "bullish"
	DirectionBearish         Direction = "bearish"
	DirectionNeutral         Direction = "neutral"
	DirectionBullishBreakout Direction = "bullish_breakout"
	DirectionBearishBreakout Direction = "bearish_breakout"
	DirectionAvoid           Direction = "avoid"
)

// Level is a structural price level published by the chartist.
type Level struct {
	Price      float64
	Kind       string // "poc", "vah", "val", "hvn"
	Timeframe  string
	Importance string // "high" or "medium"
}

// Signal is the unified output of every source. Only the chartist
// populates KeyLevels and CurrentPrice; only the macro economist may
// clear TradingAllowed.
type Signal struct {
	Source         string
	Status         Status
	Reason         string
	Direction      Direction
	Confidence     float64
	Priority       string // "high", "medium", "low"
	Action         string
	TradingAllowed bool
	CurrentPrice   float64
	KeyLevels      []Level
	Description    string
}

// Neutral returns the degraded placeholder used when a source fails or
// times out. The decision engine weighs it as a zero-confidence vote.
func Neutral(source, reason string) Signal {
	return Signal{
		Source:         source,
		Status:         StatusDegraded,
		Reason:         reason,
		Direction:      DirectionNeutral,
		Confidence:     0,
		TradingAllowed: true,
	}
}

// Snapshot is the market state handed to every source for one analysis
// cycle. HTFBars and MTFBars provide higher-timeframe context for the
// chartist; Bars is the entry timeframe shared by all sources.
type Snapshot struct {
	Symbol    string
	Bars      []market.Bar
	MTFBars   []market.Bar
	HTFBars   []market.Bar
	Headlines []string
	Events    []Event
	Now       time.Time
}

// Event is a scheduled economic release the macro economist filters
// around.
type Event struct {
	Name string
	Time time.Time
}

// Source is an analysis source the crew fans out to. Analyze must not
// panic; failures are reported in-band via Signal.Status.
type Source interface {
	Name() string
	Analyze(ctx context.Context, snap Snapshot) Signal
}
