// Package orderflow derives buy/sell pressure ("delta") from OHLCV bar
// shape and classifies effort-vs-result patterns such as absorption,
// continuation and delta exhaustion.
package orderflow

import (
	"github.com/your-org/flowdesk/pkg/market"
)

// SignalType represents the directional reading of an order flow signal.
type SignalType string

const (
	SignalBullish SignalType = "bullish"
	SignalBearish SignalType = "bearish"
	SignalNeutral SignalType = "neutral"
)

// PatternType classifies the order flow pattern behind a signal.
type PatternType string

const (
	PatternAbsorption   PatternType = "absorption"
	PatternExhaustion   PatternType = "exhaustion"
	PatternContinuation PatternType = "continuation"
	PatternImbalance    PatternType = "imbalance"
)

// Status tags the outcome of an analysis so callers can pattern-match
// instead of catching errors.
type Status string

const (
	// StatusOK means the analysis produced a usable signal.
	StatusOK Status = "ok"
	// StatusNoData means the bar window was empty.
	StatusNoData Status = "no_data"
	// StatusInsufficientHistory means the window was too short for the
	// delta statistics to be meaningful.
	StatusInsufficientHistory Status = "insufficient_history"
)

// Signal is a single order flow reading for a bar window.
type Signal struct {
	Type            SignalType
	Pattern         PatternType
	Confidence      float64
	Delta           float64
	CumulativeDelta float64
	Description     string
}

// Analysis is the full result of analyzing a bar window.
type Analysis struct {
	Status          Status
	Reason          string
	Delta           float64
	CumulativeDelta float64
	Strength        DeltaStrength
	Signal          Signal
	Exhaustion      *Signal // nil when no divergence was detected
	DeltaHistory    []float64
	CumulativeHist  []float64
}

// Config holds the tunable thresholds of the analyzer. The defaults come
// from the Delta X Price methodology and are empirical, not derived.
type Config struct {
	// WeakSigma and StrongSigma bound the moderate band of the delta
	// strength classification, in standard deviations.
	WeakSigma   float64
	StrongSigma float64
	// ExhaustionLookback is the number of trailing bars examined for
	// price/delta divergence.
	ExhaustionLookback int
	// DivergenceThreshold is the minimum |delta trend| / |price trend|
	// ratio before an exhaustion signal fires.
	DivergenceThreshold float64
	// HistoryLen caps the delta history slices returned by Analyze.
	HistoryLen int
}

// DefaultConfig returns the standard analyzer thresholds.
func DefaultConfig() Config {
	return Config{
		WeakSigma:           0.5,
		StrongSigma:         1.5,
		ExhaustionLookback:  10,
		DivergenceThreshold: 0.5,
		HistoryLen:          20,
	}
}

// Analyzer computes order flow signals from OHLCV bars.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an Analyzer. Zero-valued config fields fall back
// to the defaults.
func NewAnalyzer(cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.WeakSigma <= 0 {
		cfg.WeakSigma = def.WeakSigma
	}
	if cfg.StrongSigma <= 0 {
		cfg.StrongSigma = def.StrongSigma
	}
	if cfg.ExhaustionLookback <= 0 {
		cfg.ExhaustionLookback = def.ExhaustionLookback
	}
	if cfg.DivergenceThreshold <= 0 {
		cfg.DivergenceThreshold = def.DivergenceThreshold
	}
	if cfg.HistoryLen <= 0 {
		cfg.HistoryLen = def.HistoryLen
	}
	return &Analyzer{cfg: cfg}
}

// Analyze produces one order flow signal for the most recent bar of the
// window plus an optional exhaustion signal for the window as a whole.
// An empty or too-short window yields a structured non-OK Analysis, never
// an error.
func (a *Analyzer) Analyze(bars []market.Bar) Analysis {
	if len(bars) == 0 {
		return Analysis{Status: StatusNoData, Reason: "empty bar window", Signal: neutralSignal(0, 0)}
	}
	if len(bars) < 2 {
		return Analysis{
			Status: StatusInsufficientHistory,
			Reason: "need at least 2 bars to classify delta strength",
			Signal: neutralSignal(0, 0),
		}
	}

	estimates := a.EstimateDelta(bars)
	latest := estimates[len(estimates)-1]

	sig := a.EffortVsResult(latest.Delta, bars[len(bars)-1].IsBullish(), latest.Strength)
	sig.CumulativeDelta = latest.Cumulative

	exhaustion := a.DetectExhaustion(cumulativeOf(estimates), market.Closes(bars))

	return Analysis{
		Status:          StatusOK,
		Delta:           latest.Delta,
		CumulativeDelta: latest.Cumulative,
		Strength:        latest.Strength,
		Signal:          sig,
		Exhaustion:      exhaustion,
		DeltaHistory:    tailFloats(deltasOf(estimates), a.cfg.HistoryLen),
		CumulativeHist:  tailFloats(cumulativeOf(estimates), a.cfg.HistoryLen),
	}
}

func neutralSignal(delta, cumulative float64) Signal {
	return Signal{
		Type:            SignalNeutral,
		Pattern:         PatternContinuation,
		Confidence:      0.3,
		Delta:           delta,
		CumulativeDelta: cumulative,
		Description:     "NEUTRAL: Weak or mixed signals",
	}
}

func deltasOf(estimates []DeltaEstimate) []float64 {
	out := make([]float64, len(estimates))
	for i, e := range estimates {
		out[i] = e.Delta
	}
	return out
}

func cumulativeOf(estimates []DeltaEstimate) []float64 {
	out := make([]float64, len(estimates))
	for i, e := range estimates {
		out[i] = e.Cumulative
	}
	return out
}

func tailFloats(vals []float64, n int) []float64 {
	if len(vals) <= n {
		return vals
	}
	return vals[len(vals)-n:]
}
