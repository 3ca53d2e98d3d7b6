package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"questboard/internal/model"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, telegramID int64) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, telegramID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return hub.Connections(telegramID) == 1
	}, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_DeliversToConnectedUser(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 42)

	hub.Notify(42, model.Event{
		Type:    model.EventLedgerCredited,
		Payload: map[string]any{"amount": 475},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got model.Event
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, model.EventLedgerCredited, got.Type)
	assert.EqualValues(t, 475, got.Payload["amount"])
}

func TestHub_IgnoresOtherUsers(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 42)

	hub.Notify(7, model.Event{Type: model.EventQuestStatusChanged})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 42)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return hub.Connections(42) == 0
	}, 2*time.Second, 10*time.Millisecond)

	hub.Notify(42, model.Event{Type: model.EventLedgerCredited})
}
