package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m map[string]any
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestHub_BroadcastReachesSubscribers(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	sub := dial(t, srv)
	other := dial(t, srv)

	require.NoError(t, sub.WriteJSON(ClientMsg{Type: "subscribe", MarketID: 7}))
	assert.Equal(t, "subscribed", readType(t, sub)["type"])
	require.NoError(t, other.WriteJSON(ClientMsg{Type: "subscribe", MarketID: 8}))
	assert.Equal(t, "subscribed", readType(t, other)["type"])
	assert.Equal(t, 1, hub.Subscribers(7))

	hub.Broadcast(events.BookChanged{MarketID: 7, Phase: "OPEN", BetType: "single", DrawDate: "2026-10-18", Reason: "bet_placed"})

	got := readType(t, sub)
	assert.Equal(t, "book_changed", got["type"])
	assert.Equal(t, float64(7), got["market_id"])
	assert.Equal(t, "bet_placed", got["reason"])

	// o outro cliente só recebe o pong
	require.NoError(t, other.WriteJSON(ClientMsg{Type: "ping"}))
	assert.Equal(t, "pong", readType(t, other)["type"])
}

func TestHub_UnsubscribeAndDisconnect(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", MarketID: 7}))
	readType(t, conn)
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "unsubscribe", MarketID: 7}))
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	readType(t, conn)
	assert.Equal(t, 0, hub.Subscribers(7))

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", MarketID: 9}))
	readType(t, conn)
	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers(9) == 0 }, 2*time.Second, 10*time.Millisecond)
}
