// Package decision implements the portfolio manager: it aggregates the
// three source signals into a final trade decision with sizing and risk
// gates applied.
package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/flowdesk/internal/agent"
	"github.com/your-org/flowdesk/internal/config"
	"github.com/your-org/flowdesk/pkg/logger"
)

// Action is the final call for one analysis cycle.
type Action string

const (
	ActionBuy     Action = "buy"
	ActionSell    Action = "sell"
	ActionNoTrade Action = "no_trade"
)

// agreementThreshold is the minimum confidence for a source to count
// toward directional agreement. Strictly greater than.
const agreementThreshold = 0.5

// Vote records how one source contributed to the decision.
type Vote struct {
	Direction  agent.Direction
	Confidence float64
	Status     agent.Status
}

// Decision is the complete output of one cycle.
type Decision struct {
	ID             uuid.UUID
	Symbol         string
	Timestamp      time.Time
	Action         Action
	Direction      agent.Direction
	Confidence     float64
	SignalStrength float64
	Reason         string
	EntryPrice     float64
	StopLoss       float64
	Position       PositionSize
	Agreement      string
	Votes          map[string]Vote
}

// Engine aggregates source signals into decisions. It is stateless
// apart from its configuration; equity updates come in per call.
type Engine struct {
	cfg config.RiskConfig
	log logger.Logger
}

// NewEngine creates a decision engine.
func NewEngine(cfg config.RiskConfig, log logger.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// directionValue maps a direction to its numeric vote. Breakouts carry
// extra weight.
func directionValue(d agent.Direction) float64 {
	switch d {
	case agent.DirectionBullish:
		return 1
	case agent.DirectionBullishBreakout:
		return 1.2
	case agent.DirectionBearish:
		return -1
	case agent.DirectionBearishBreakout:
		return -1.2
	}
	return 0
}

// aggregate combines the three signals into a direction and confidence.
type aggregate struct {
	action       Action
	direction    agent.Direction
	confidence   float64
	strength     float64
	reason       string
	bullishVotes int
	bearishVotes int
}

func (e *Engine) aggregate(tape, chart, macro agent.Signal) aggregate {
	// The macro veto is absolute. No weighting can override it.
	if !macro.TradingAllowed {
		return aggregate{
			action:    ActionNoTrade,
			direction: agent.DirectionNeutral,
			reason:    "volatility filter active near high-impact event",
		}
	}

	total := directionValue(tape.Direction)*tape.Confidence*e.cfg.OrderFlowWeight +
		directionValue(chart.Direction)*chart.Confidence*e.cfg.StructureWeight +
		directionValue(macro.Direction)*macro.Confidence*e.cfg.MacroWeight

	var bullish, bearish int
	for _, s := range []agent.Signal{tape, chart, macro} {
		if s.Confidence <= agreementThreshold {
			continue
		}
		switch s.Direction {
		case agent.DirectionBullish, agent.DirectionBullishBreakout:
			bullish++
		case agent.DirectionBearish, agent.DirectionBearishBreakout:
			bearish++
		}
	}
	if bullish >= 2 {
		total += 0.2
	} else if bearish >= 2 {
		total -= 0.2
	}

	avgConfidence := (tape.Confidence + chart.Confidence + macro.Confidence) / 3

	agg := aggregate{
		strength:     math.Abs(total),
		bullishVotes: bullish,
		bearishVotes: bearish,
	}
	switch {
	case math.Abs(total) < 0.3 || avgConfidence < e.cfg.MinConfidence:
		agg.action = ActionNoTrade
		agg.direction = agent.DirectionNeutral
		agg.confidence = avgConfidence
		agg.reason = "signals not aligned"
	case total > 0:
		agg.action = ActionBuy
		agg.direction = agent.DirectionBullish
		agg.confidence = math.Min(0.95, avgConfidence+float64(bullish-1)*0.1)
	default:
		agg.action = ActionSell
		agg.direction = agent.DirectionBearish
		agg.confidence = math.Min(0.95, avgConfidence+float64(bearish-1)*0.1)
	}
	return agg
}

// Decide makes the final call for one cycle. correlations maps held
// symbols to their correlation with the candidate; a nil map skips the
// correlation gate.
func (e *Engine) Decide(symbol string, tape, chart, macro agent.Signal, correlations map[string]float64) Decision {
	agg := e.aggregate(tape, chart, macro)

	d := Decision{
		ID:             uuid.New(),
		Symbol:         symbol,
		Timestamp:      time.Now().UTC(),
		Action:         agg.action,
		Direction:      agg.direction,
		Confidence:     agg.confidence,
		SignalStrength: agg.strength,
		Reason:         agg.reason,
		Agreement:      fmt.Sprintf("%d bullish, %d bearish signals", agg.bullishVotes, agg.bearishVotes),
		Votes: map[string]Vote{
			tape.Source:  {Direction: tape.Direction, Confidence: tape.Confidence, Status: tape.Status},
			chart.Source: {Direction: chart.Direction, Confidence: chart.Confidence, Status: chart.Status},
			macro.Source: {Direction: macro.Direction, Confidence: macro.Confidence, Status: macro.Status},
		},
	}
	if d.Action == ActionNoTrade {
		return d
	}

	if symbol, corr, blocked := e.correlationGate(correlations); blocked {
		d.Action = ActionNoTrade
		d.Reason = fmt.Sprintf("high correlation (%.0f%%) with existing position %s", corr*100, symbol)
		return d
	}

	entry := chart.CurrentPrice
	if entry <= 0 {
		d.Action = ActionNoTrade
		d.Reason = "no current price available"
		return d
	}
	d.EntryPrice = entry
	d.StopLoss = stopFromLevels(d.Direction, entry, chart.KeyLevels)
	d.Position = e.positionSize(entry, d.StopLoss, d.Confidence)

	e.log.Infof("decision: %s %s entry=%.2f stop=%.2f size=%.2f%% confidence=%.2f",
		d.Action, symbol, d.EntryPrice, d.StopLoss, d.Position.Pct*100, d.Confidence)
	return d
}

// correlationGate rejects the trade if any held position correlates
// above the configured limit.
func (e *Engine) correlationGate(correlations map[string]float64) (string, float64, bool) {
	var worstSymbol string
	var worst float64
	for symbol, corr := range correlations {
		if math.Abs(corr) > worst {
			worst = math.Abs(corr)
			worstSymbol = symbol
		}
	}
	if worst > e.cfg.MaxCorrelation {
		return worstSymbol, worst, true
	}
	return "", 0, false
}

// stopFromLevels places the stop at the nearest structural level on the
// protective side, falling back to 2% of entry when none exists.
func stopFromLevels(direction agent.Direction, entry float64, levels []agent.Level) float64 {
	if direction == agent.DirectionBullish {
		stop := entry * 0.98
		found := false
		for _, l := range levels {
			if l.Price < entry && (!found || l.Price > stop) {
				stop = l.Price
				found = true
			}
		}
		return stop
	}
	stop := entry * 1.02
	found := false
	for _, l := range levels {
		if l.Price > entry && (!found || l.Price < stop) {
			stop = l.Price
			found = true
		}
	}
	return stop
}
