// Package crew orchestrates one analysis cycle: it fans the market
// snapshot out to every source in parallel, collects their signals, and
// hands them to the decision engine.
package crew

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/your-org/flowdesk/internal/agent"
	"github.com/your-org/flowdesk/internal/decision"
	"github.com/your-org/flowdesk/pkg/logger"
)

// sourceTape etc. are the well-known source names the decision engine
// expects. The crew requires exactly these three sources.
const (
	sourceTape  = "tape_reader"
	sourceChart = "chartist"
	sourceMacro = "macro"
)

// Crew wires the three sources to the decision engine.
type Crew struct {
	sources []agent.Source
	engine  *decision.Engine
	timeout time.Duration
	log     logger.Logger
}

// New creates a crew. The sources must include tape_reader, chartist,
// and macro.
func New(sources []agent.Source, engine *decision.Engine, timeout time.Duration, log logger.Logger) (*Crew, error) {
	names := make(map[string]bool, len(sources))
	for _, s := range sources {
		names[s.Name()] = true
	}
	for _, required := range []string{sourceTape, sourceChart, sourceMacro} {
		if !names[required] {
			return nil, fmt.Errorf("crew: missing required source %q", required)
		}
	}
	return &Crew{
		sources: sources,
		engine:  engine,
		timeout: timeout,
		log:     log,
	}, nil
}

// Run executes one full analysis cycle and returns the decision.
// Sources run concurrently; a source that panics, errors, or misses
// the deadline contributes a degraded neutral signal instead of
// aborting the cycle.
func (c *Crew) Run(ctx context.Context, snap agent.Snapshot, correlations map[string]float64) decision.Decision {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	signals := c.collect(ctx, snap)

	tape := signalOrNeutral(signals, sourceTape)
	chart := signalOrNeutral(signals, sourceChart)
	macro := signalOrNeutral(signals, sourceMacro)

	return c.engine.Decide(snap.Symbol, tape, chart, macro, correlations)
}

// collect fans out to all sources and gathers whatever finished before
// the context deadline.
func (c *Crew) collect(ctx context.Context, snap agent.Snapshot) map[string]agent.Signal {
	type result struct {
		name   string
		signal agent.Signal
	}

	results := make(chan result, len(c.sources))
	var wg sync.WaitGroup
	for _, src := range c.sources {
		wg.Add(1)
		go func(src agent.Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.log.Errorf("crew: source %s panicked: %v", src.Name(), r)
					results <- result{src.Name(), agent.Neutral(src.Name(), "source panicked")}
				}
			}()
			results <- result{src.Name(), src.Analyze(ctx, snap)}
		}(src)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	signals := make(map[string]agent.Signal, len(c.sources))
	for {
		select {
		case r := <-results:
			signals[r.name] = r.signal
			if len(signals) == len(c.sources) {
				return signals
			}
		case <-done:
			// Drain anything that raced with done.
			for {
				select {
				case r := <-results:
					signals[r.name] = r.signal
				default:
					return signals
				}
			}
		case <-ctx.Done():
			c.log.Warnf("crew: analysis deadline exceeded, %d/%d sources reported",
				len(signals), len(c.sources))
			return signals
		}
	}
}

func signalOrNeutral(signals map[string]agent.Signal, name string) agent.Signal {
	if sig, ok := signals[name]; ok {
		return sig
	}
	return agent.Neutral(name, "source timed out")
}
