package decision

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/flowdesk/internal/agent"
	"github.com/your-org/flowdesk/internal/config"
	"github.com/your-org/flowdesk/pkg/logger"
)

func testEngine() *Engine {
	cfg := config.DefaultConfig()
	return NewEngine(cfg.Risk, logger.NewLogger("error"))
}

func sig(source string, dir agent.Direction, conf float64) agent.Signal {
	return agent.Signal{
		Source:         source,
		Status:         agent.StatusOK,
		Direction:      dir,
		Confidence:     conf,
		TradingAllowed: true,
	}
}

func chartSig(dir agent.Direction, conf, price float64, levels []agent.Level) agent.Signal {
	s := sig("chartist", dir, conf)
	s.CurrentPrice = price
	s.KeyLevels = levels
	return s
}

var spyLevels = []agent.Level{
	{Price: 445, Kind: "val"},
	{Price: 448, Kind: "poc"},
	{Price: 455, Kind: "vah"},
}

func TestDecideMacroVeto(t *testing.T) {
	e := testEngine()

	macro := sig("macro", agent.DirectionAvoid, 0.9)
	macro.TradingAllowed = false

	d := e.Decide("SPY",
		sig("tape_reader", agent.DirectionBullish, 0.9),
		chartSig(agent.DirectionBullish, 0.9, 450, spyLevels),
		macro, nil)

	assert.Equal(t, ActionNoTrade, d.Action)
	assert.Contains(t, d.Reason, "volatility filter")
	assert.Zero(t, d.Position.Units)
}

func TestDecideBullishAgreement(t *testing.T) {
	e := testEngine()

	d := e.Decide("SPY",
		sig("tape_reader", agent.DirectionBullish, 0.75),
		chartSig(agent.DirectionBullish, 0.7, 450, spyLevels),
		sig("macro", agent.DirectionNeutral, 0.6), nil)

	require.Equal(t, ActionBuy, d.Action)
	assert.Equal(t, agent.DirectionBullish, d.Direction)
	// Weighted sum 0.545 plus the 0.2 agreement bonus.
	assert.InDelta(t, 0.745, d.SignalStrength, 1e-9)
	// Average confidence 0.6833 plus 0.1 for the second agreeing source.
	assert.InDelta(t, 0.7833, d.Confidence, 1e-3)
	// Stop at the nearest support below entry.
	assert.InDelta(t, 448.0, d.StopLoss, 1e-9)
	assert.InDelta(t, 450.0, d.EntryPrice, 1e-9)

	wantVotes := map[string]Vote{
		"tape_reader": {Direction: agent.DirectionBullish, Confidence: 0.75, Status: agent.StatusOK},
		"chartist":    {Direction: agent.DirectionBullish, Confidence: 0.7, Status: agent.StatusOK},
		"macro":       {Direction: agent.DirectionNeutral, Confidence: 0.6, Status: agent.StatusOK},
	}
	if diff := cmp.Diff(wantVotes, d.Votes); diff != "" {
		t.Errorf("votes mismatch (-want +got):\n%s", diff)
	}
}

func TestDecideBearishBreakout(t *testing.T) {
	e := testEngine()

	d := e.Decide("SPY",
		sig("tape_reader", agent.DirectionBearish, 0.8),
		chartSig(agent.DirectionBearishBreakout, 0.85, 450, spyLevels),
		sig("macro", agent.DirectionNeutral, 0.5), nil)

	require.Equal(t, ActionSell, d.Action)
	assert.Equal(t, agent.DirectionBearish, d.Direction)
	// Stop at the nearest resistance above entry.
	assert.InDelta(t, 455.0, d.StopLoss, 1e-9)
}

func TestDecideWeakSignalsNoTrade(t *testing.T) {
	e := testEngine()

	d := e.Decide("SPY",
		sig("tape_reader", agent.DirectionNeutral, 0.3),
		chartSig(agent.DirectionNeutral, 0.5, 450, spyLevels),
		sig("macro", agent.DirectionNeutral, 0.5), nil)

	assert.Equal(t, ActionNoTrade, d.Action)
	assert.Equal(t, "signals not aligned", d.Reason)
}

func TestDecideLowConfidenceNoTrade(t *testing.T) {
	e := testEngine()

	// Strong directional sum but the average confidence misses the
	// minimum.
	d := e.Decide("SPY",
		sig("tape_reader", agent.DirectionBullish, 0.9),
		chartSig(agent.DirectionNeutral, 0.2, 450, spyLevels),
		sig("macro", agent.DirectionNeutral, 0.2), nil)

	assert.Equal(t, ActionNoTrade, d.Action)
	assert.InDelta(t, 0.4333, d.Confidence, 1e-3)
}

func TestAgreementRequiresStrictMajorityConfidence(t *testing.T) {
	e := testEngine()

	// Two sources at exactly 0.5 confidence do not count toward the
	// agreement bonus.
	d := e.Decide("SPY",
		sig("tape_reader", agent.DirectionBullish, 0.5),
		chartSig(agent.DirectionBullish, 0.5, 450, spyLevels),
		sig("macro", agent.DirectionBullish, 0.9), nil)

	require.Equal(t, ActionBuy, d.Action)
	assert.InDelta(t, 0.6, d.SignalStrength, 1e-9)
}

func TestDecideCorrelationGate(t *testing.T) {
	e := testEngine()

	tape := sig("tape_reader", agent.DirectionBullish, 0.75)
	chart := chartSig(agent.DirectionBullish, 0.7, 450, spyLevels)
	macro := sig("macro", agent.DirectionNeutral, 0.6)

	d := e.Decide("SPY", tape, chart, macro, map[string]float64{"QQQ": 0.9})
	assert.Equal(t, ActionNoTrade, d.Action)
	assert.Contains(t, d.Reason, "correlation")
	assert.Contains(t, d.Reason, "QQQ")

	d = e.Decide("SPY", tape, chart, macro, map[string]float64{"QQQ": 0.8})
	assert.Equal(t, ActionBuy, d.Action)
}

func TestDecideStopFallback(t *testing.T) {
	e := testEngine()

	// No structural levels below entry: default to 2% stop.
	d := e.Decide("SPY",
		sig("tape_reader", agent.DirectionBullish, 0.75),
		chartSig(agent.DirectionBullish, 0.7, 450, nil),
		sig("macro", agent.DirectionNeutral, 0.6), nil)

	require.Equal(t, ActionBuy, d.Action)
	assert.InDelta(t, 441.0, d.StopLoss, 1e-9)
}

func TestPositionSizeCap(t *testing.T) {
	e := testEngine()

	// A tight stop would imply an oversized position; the cap wins.
	pos := e.positionSize(450, 448, 0.7833)
	assert.InDelta(t, 0.10, pos.Pct, 1e-9)
	assert.InDelta(t, 10000, pos.Value, 1e-6)
	assert.InDelta(t, 10000.0/450.0, pos.Units, 1e-6)
	assert.InDelta(t, 100000*0.02*0.7833, pos.RiskAmount, 1e-6)
}

func TestPositionSizeStopFloor(t *testing.T) {
	e := testEngine()

	// A zero stop distance falls back to 1% of entry.
	pos := e.positionSize(100, 100, 0.6)
	assert.InDelta(t, 1.0, pos.StopDistancePct, 1e-9)
	assert.Greater(t, pos.Units, 0.0)
}

func TestPositionSizeUncapped(t *testing.T) {
	e := testEngine()

	// A wide stop keeps the position under the cap.
	pos := e.positionSize(100, 80, 0.5)
	riskAmount := 100000 * 0.02 * 0.5
	units := riskAmount / 20
	assert.InDelta(t, units, pos.Units, 1e-9)
	assert.InDelta(t, units*100/100000, pos.Pct, 1e-9)
}

func TestKellySize(t *testing.T) {
	e := testEngine()

	// w=0.6, r=1.5: kelly 1/3, quarter kelly 1/12.
	assert.InDelta(t, (0.6-0.4/1.5)*0.25, e.KellySize(0.6, 300, 200), 1e-9)

	// Degenerate inputs.
	assert.Zero(t, e.KellySize(0.6, 300, 0))
	assert.Zero(t, e.KellySize(0, 300, 200))
	assert.Zero(t, e.KellySize(1, 300, 200))

	// Negative edge clamps to zero.
	assert.Zero(t, e.KellySize(0.3, 100, 200))

	// Large edge caps at the max position size.
	assert.InDelta(t, 0.10, e.KellySize(0.9, 1000, 100), 1e-9)
}

func TestConfidenceCap(t *testing.T) {
	e := testEngine()

	d := e.Decide("SPY",
		sig("tape_reader", agent.DirectionBullish, 0.95),
		chartSig(agent.DirectionBullishBreakout, 0.95, 450, spyLevels),
		sig("macro", agent.DirectionBullish, 0.95), nil)

	require.Equal(t, ActionBuy, d.Action)
	assert.LessOrEqual(t, d.Confidence, 0.95)
	assert.False(t, math.IsNaN(d.Confidence))
}
