package crew

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/flowdesk/internal/agent"
	"github.com/your-org/flowdesk/internal/config"
	"github.com/your-org/flowdesk/internal/decision"
	"github.com/your-org/flowdesk/pkg/logger"
)

type stubSource struct {
	name   string
	signal agent.Signal
	delay  time.Duration
	panics bool
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Analyze(ctx context.Context, _ agent.Snapshot) agent.Signal {
	if s.panics {
		panic("stub failure")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	return s.signal
}

func stub(name string, dir agent.Direction, conf float64) *stubSource {
	return &stubSource{name: name, signal: agent.Signal{
		Source:         name,
		Status:         agent.StatusOK,
		Direction:      dir,
		Confidence:     conf,
		CurrentPrice:   450,
		TradingAllowed: true,
	}}
}

func testEngine() *decision.Engine {
	return decision.NewEngine(config.DefaultConfig().Risk, logger.NewLogger("error"))
}

func TestNewRequiresAllSources(t *testing.T) {
	_, err := New([]agent.Source{
		stub("tape_reader", agent.DirectionNeutral, 0.5),
		stub("chartist", agent.DirectionNeutral, 0.5),
	}, testEngine(), time.Second, logger.NewLogger("error"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required source "macro"`)
}

func TestRunAllSourcesReport(t *testing.T) {
	c, err := New([]agent.Source{
		stub("tape_reader", agent.DirectionBullish, 0.75),
		stub("chartist", agent.DirectionBullish, 0.7),
		stub("macro", agent.DirectionNeutral, 0.6),
	}, testEngine(), time.Second, logger.NewLogger("error"))
	require.NoError(t, err)

	d := c.Run(context.Background(), agent.Snapshot{Symbol: "SPY"}, nil)
	assert.Equal(t, decision.ActionBuy, d.Action)
	assert.Len(t, d.Votes, 3)
}

func TestRunSlowSourceDegrades(t *testing.T) {
	slow := stub("macro", agent.DirectionBullish, 0.9)
	slow.delay = 500 * time.Millisecond

	c, err := New([]agent.Source{
		stub("tape_reader", agent.DirectionBullish, 0.75),
		stub("chartist", agent.DirectionBullish, 0.7),
		slow,
	}, testEngine(), 50*time.Millisecond, logger.NewLogger("error"))
	require.NoError(t, err)

	d := c.Run(context.Background(), agent.Snapshot{Symbol: "SPY"}, nil)

	// The slow source is replaced with a degraded neutral vote; the
	// cycle still completes.
	vote, ok := d.Votes["macro"]
	require.True(t, ok)
	assert.Equal(t, agent.StatusDegraded, vote.Status)
	assert.Equal(t, agent.DirectionNeutral, vote.Direction)
	assert.Zero(t, vote.Confidence)
}

func TestRunPanickingSourceDegrades(t *testing.T) {
	broken := stub("tape_reader", agent.DirectionBullish, 0.9)
	broken.panics = true

	c, err := New([]agent.Source{
		broken,
		stub("chartist", agent.DirectionBullish, 0.7),
		stub("macro", agent.DirectionNeutral, 0.6),
	}, testEngine(), time.Second, logger.NewLogger("error"))
	require.NoError(t, err)

	d := c.Run(context.Background(), agent.Snapshot{Symbol: "SPY"}, nil)

	vote, ok := d.Votes["tape_reader"]
	require.True(t, ok)
	assert.Equal(t, agent.StatusDegraded, vote.Status)
	assert.Equal(t, agent.DirectionNeutral, vote.Direction)
}
