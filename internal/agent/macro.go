package agent

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/your-org/flowdesk/pkg/logger"
)

const macroName = "macro"

// SentimentProvider scores news headlines for a symbol. Implementations
// may call external services; the default keyword provider works
// offline.
type SentimentProvider interface {
	// Score returns a sentiment in [-1, 1] and a magnitude in [0, 1].
	Score(ctx context.Context, symbol string, headlines []string) (sentiment, magnitude float64, err error)
}

// KeywordSentiment is the built-in provider. It counts bullish and
// bearish keywords across headlines.
type KeywordSentiment struct{}

var bullishKeywords = []string{
	"surge", "rally", "bullish", "growth", "beat", "exceeds",
	"strong", "gains", "rises", "jumps", "soars", "upgrade",
	"outperform", "breakout", "record", "positive",
}

var bearishKeywords = []string{
	"drop", "fall", "bearish", "decline", "miss", "weak",
	"losses", "tumbles", "plunges", "downgrade", "crash",
	"concern", "fear", "negative", "slump", "cuts",
}

// Score implements SentimentProvider.
func (KeywordSentiment) Score(_ context.Context, _ string, headlines []string) (float64, float64, error) {
	if len(headlines) == 0 {
		return 0, 0, nil
	}
	var bullish, bearish int
	for _, h := range headlines {
		lower := strings.ToLower(h)
		for _, w := range bullishKeywords {
			if strings.Contains(lower, w) {
				bullish++
			}
		}
		for _, w := range bearishKeywords {
			if strings.Contains(lower, w) {
				bearish++
			}
		}
	}
	total := bullish + bearish
	if total == 0 {
		return 0, 0, nil
	}
	sentiment := float64(bullish-bearish) / float64(total)
	magnitude := math.Min(1.0, float64(total)/float64(len(headlines)*2))
	return sentiment, magnitude, nil
}

// MacroEconomist provides macro context: news sentiment and a
// volatility filter around scheduled high-impact events. While the
// filter is active it clears TradingAllowed, which vetoes any trade
// regardless of the other sources.
type MacroEconomist struct {
	provider    SentimentProvider
	eventBuffer time.Duration
	log         logger.Logger
}

// NewMacroEconomist creates a macro economist. A nil provider falls
// back to the keyword provider.
func NewMacroEconomist(provider SentimentProvider, eventBufferMinutes int, log logger.Logger) *MacroEconomist {
	if provider == nil {
		provider = KeywordSentiment{}
	}
	return &MacroEconomist{
		provider:    provider,
		eventBuffer: time.Duration(eventBufferMinutes) * time.Minute,
		log:         log,
	}
}

func (m *MacroEconomist) Name() string { return macroName }

// Analyze scores headline sentiment and checks the event calendar.
func (m *MacroEconomist) Analyze(ctx context.Context, snap Snapshot) Signal {
	now := snap.Now
	if now.IsZero() {
		now = time.Now()
	}

	if event, ok := m.filterActive(snap.Events, now); ok {
		m.log.Infof("macro: volatility filter active near event %q", event.Name)
		return Signal{
			Source:         macroName,
			Status:         StatusOK,
			Direction:      DirectionAvoid,
			Confidence:     0.9,
			TradingAllowed: false,
			Reason:         fmt.Sprintf("near high-impact event: %s", event.Name),
			Action:         "avoid_trading",
		}
	}

	sentiment, _, err := m.provider.Score(ctx, snap.Symbol, snap.Headlines)
	if err != nil {
		// Sentiment is advisory, so a provider failure degrades rather
		// than blocking the cycle.
		m.log.Warnf("macro: sentiment provider failed: %v", err)
		return Neutral(macroName, "sentiment provider unavailable")
	}

	direction := DirectionNeutral
	confidence := 0.5
	switch {
	case sentiment > 0.3:
		direction = DirectionBullish
		confidence = math.Min(0.8, 0.5+math.Abs(sentiment))
	case sentiment < -0.3:
		direction = DirectionBearish
		confidence = math.Min(0.8, 0.5+math.Abs(sentiment))
	}

	return Signal{
		Source:         macroName,
		Status:         StatusOK,
		Direction:      direction,
		Confidence:     confidence,
		TradingAllowed: true,
		Action:         "trading_allowed",
	}
}

// filterActive reports whether any event falls within the buffer window
// around now.
func (m *MacroEconomist) filterActive(events []Event, now time.Time) (Event, bool) {
	for _, event := range events {
		if event.Time.IsZero() {
			continue
		}
		distance := event.Time.Sub(now)
		if distance < 0 {
			distance = -distance
		}
		if distance <= m.eventBuffer {
			return event, true
		}
	}
	return Event{}, false
}
