package barsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/flowdesk/pkg/logger"
)

var upgrader = websocket.Upgrader{}

// barFeedServer serves one websocket connection: it checks the
// subscribe message, pushes the given bar messages, then closes
// normally once the client hangs up.
func barFeedServer(t *testing.T, wantSymbol string, messages []barMessage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("reading subscribe message: %v", err)
			return
		}
		assert.Equal(t, "subscribe", sub.Type)
		assert.Equal(t, wantSymbol, sub.Symbol)

		for _, msg := range messages {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.ReadMessage()
	}))
}

func feedURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func feedBar(symbol string, ts int64, close float64) barMessage {
	return barMessage{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    100,
	}
}

func TestStreamCollect(t *testing.T) {
	srv := barFeedServer(t, "SPY", []barMessage{
		feedBar("SPY", 1000, 100),
		feedBar("SPY", 2000, 101),
		feedBar("SPY", 3000, 102),
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := NewStream(feedURL(srv), logger.NewLogger("error"))
	bars, err := s.Collect(ctx, "SPY", 3)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, time.UnixMilli(1000).UTC(), bars[0].Timestamp)
	assert.InDelta(t, 100.0, bars[0].Close, 1e-9)
	assert.InDelta(t, 102.0, bars[2].Close, 1e-9)
}

func TestStreamFiltersAndValidates(t *testing.T) {
	srv := barFeedServer(t, "SPY", []barMessage{
		feedBar("QQQ", 1000, 100),
		{Symbol: "SPY", Timestamp: 2000, Open: 100, High: 99, Low: 101, Close: 100, Volume: 100},
		feedBar("SPY", 3000, 101),
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The other symbol and the malformed bar are dropped, so the first
	// collected bar is the third message.
	s := NewStream(feedURL(srv), logger.NewLogger("error"))
	bars, err := s.Collect(ctx, "SPY", 1)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.InDelta(t, 101.0, bars[0].Close, 1e-9)
}

func TestStreamCollectEndsOnNormalClose(t *testing.T) {
	srv := barFeedServer(t, "SPY", []barMessage{
		feedBar("SPY", 1000, 100),
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The feed closes after one bar; Collect returns what it has.
	s := NewStream(feedURL(srv), logger.NewLogger("error"))
	bars, err := s.Collect(ctx, "SPY", 5)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestStreamSubscribeCancel(t *testing.T) {
	// A feed that subscribes but never sends a bar; cancellation is the
	// only way out.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("reading subscribe message: %v", err)
			return
		}
		conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewStream(feedURL(srv), logger.NewLogger("error"))
	barCh, errCh := s.Subscribe(ctx, "SPY")

	time.Sleep(100 * time.Millisecond)
	cancel()

	for range barCh {
	}
	assert.NoError(t, <-errCh)
}
