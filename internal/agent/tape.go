package agent

import (
	"context"

	"github.com/your-org/flowdesk/pkg/logger"
	"github.com/your-org/flowdesk/pkg/orderflow"
)

const tapeReaderName = "tape_reader"

// TapeReader reads buying and selling pressure off the bar stream. It
// wraps the order flow analyzer and prioritizes its findings:
// exhaustion outranks absorption, absorption outranks continuation.
type TapeReader struct {
	analyzer *orderflow.Analyzer
	log      logger.Logger
}

// NewTapeReader creates a tape reader with the given analyzer config.
func NewTapeReader(cfg orderflow.Config, log logger.Logger) *TapeReader {
	return &TapeReader{
		analyzer: orderflow.NewAnalyzer(cfg),
		log:      log,
	}
}

func (t *TapeReader) Name() string { return tapeReaderName }

// Analyze runs order flow analysis on the entry timeframe bars.
func (t *TapeReader) Analyze(_ context.Context, snap Snapshot) Signal {
	analysis := t.analyzer.Analyze(snap.Bars)

	switch analysis.Status {
	case orderflow.StatusNoData:
		return Signal{
			Source:         tapeReaderName,
			Status:         StatusError,
			Reason:         "no bar data available",
			Direction:      DirectionNeutral,
			TradingAllowed: true,
		}
	case orderflow.StatusInsufficientHistory:
		return Neutral(tapeReaderName, "insufficient history for order flow analysis")
	}

	direction := Direction(analysis.Signal.Type)
	confidence := analysis.Signal.Confidence
	priority := "low"
	description := analysis.Signal.Description

	switch {
	case analysis.Exhaustion != nil:
		// Exhaustion is a strong reversal indicator and overrides the
		// bar-level pattern.
		direction = Direction(analysis.Exhaustion.Type)
		if analysis.Exhaustion.Confidence > confidence {
			confidence = analysis.Exhaustion.Confidence
		}
		priority = "high"
		description = analysis.Exhaustion.Description
	case analysis.Signal.Pattern == orderflow.PatternAbsorption:
		priority = "high"
	default:
		if confidence > 0.6 {
			priority = "medium"
		}
	}

	t.log.Debugf("tape reader: direction=%s confidence=%.2f priority=%s delta=%.2f",
		direction, confidence, priority, analysis.Delta)

	return Signal{
		Source:         tapeReaderName,
		Status:         StatusOK,
		Direction:      direction,
		Confidence:     confidence,
		Priority:       priority,
		Action:         tapeAction(direction, confidence),
		TradingAllowed: true,
		Description:    description,
	}
}

func tapeAction(direction Direction, confidence float64) string {
	if confidence < 0.5 {
		return "wait"
	}
	switch direction {
	case DirectionBullish:
		if confidence < 0.75 {
			return "consider_long"
		}
		return "strong_long"
	case DirectionBearish:
		if confidence < 0.75 {
			return "consider_short"
		}
		return "strong_short"
	}
	return "wait"
}
