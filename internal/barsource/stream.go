package barsource

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/your-org/flowdesk/pkg/logger"
	"github.com/your-org/flowdesk/pkg/market"
)

const (
	streamDialRetries = 5
	streamPingPeriod  = 30 * time.Second
)

// barMessage is the wire format of one bar pushed by the feed.
type barMessage struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type subscribeMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Stream connects to a websocket bar feed and delivers closed bars as
// they arrive.
type Stream struct {
	url string
	log logger.Logger
}

// NewStream creates a streaming bar source for the given feed URL.
func NewStream(url string, log logger.Logger) *Stream {
	return &Stream{url: url, log: log}
}

// Subscribe dials the feed, subscribes to the symbol, and streams bars
// until the context is canceled or the connection fails. Both channels
// are closed when the stream ends; the error channel carries at most
// one error.
func (s *Stream) Subscribe(ctx context.Context, symbol string) (<-chan market.Bar, <-chan error) {
	barCh := make(chan market.Bar)
	errCh := make(chan error, 1)

	go func() {
		defer close(barCh)
		defer close(errCh)

		conn, err := s.dial(ctx)
		if err != nil {
			errCh <- err
			return
		}
		defer conn.Close()

		if err := conn.WriteJSON(subscribeMessage{Type: "subscribe", Symbol: symbol}); err != nil {
			errCh <- fmt.Errorf("failed to subscribe to %s: %w", symbol, err)
			return
		}
		s.log.Infof("subscribed to bar feed for %s", symbol)

		// The read loop owns the connection; cancellation unblocks it
		// by closing the connection.
		go func() {
			ticker := time.NewTicker(streamPingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					conn.Close()
					return
				case <-ticker.C:
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						s.log.Warnf("ping failed: %v", err)
					}
				}
			}
		}()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					errCh <- fmt.Errorf("bar feed closed unexpectedly: %w", err)
				}
				return
			}

			var msg barMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				s.log.Errorf("failed to decode bar message: %v", err)
				continue
			}
			if msg.Symbol != symbol {
				continue
			}
			bar := market.Bar{
				Timestamp: time.UnixMilli(msg.Timestamp).UTC(),
				Open:      msg.Open,
				High:      msg.High,
				Low:       msg.Low,
				Close:     msg.Close,
				Volume:    msg.Volume,
			}
			if err := bar.Validate(); err != nil {
				s.log.Errorf("dropping invalid bar from feed: %v", err)
				continue
			}
			select {
			case barCh <- bar:
			case <-ctx.Done():
				return
			}
		}
	}()

	return barCh, errCh
}

// dial connects with exponential backoff.
func (s *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt < streamDialRetries; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		s.log.Errorf("dial error (attempt %d/%d): %v, retrying in %v",
			attempt+1, streamDialRetries, err, backoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("failed to connect to bar feed after %d attempts: %w", streamDialRetries, lastErr)
}

// Collect buffers n bars from the stream into a series, for feeding a
// windowed analysis from a live feed.
func (s *Stream) Collect(ctx context.Context, symbol string, n int) ([]market.Bar, error) {
	barCh, errCh := s.Subscribe(ctx, symbol)
	bars := make([]market.Bar, 0, n)
	for {
		select {
		case bar, ok := <-barCh:
			if !ok {
				if err := <-errCh; err != nil {
					return nil, err
				}
				return bars, nil
			}
			bars = append(bars, bar)
			if len(bars) == n {
				return bars, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
