package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arcanetable/encounter-server/internal/config"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(t *testing.T, maxPending int) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(config.WebSocketConfig{MaxPending: maxPending}, zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, campaignID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/campaign/" + campaignID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestNotifyDeliversToCampaignClients(t *testing.T) {
	hub, srv := newTestHub(t, 10)
	conn := dial(t, srv, "camp-1")
	other := dial(t, srv, "camp-2")
	require.Eventually(t, func() bool {
		return hub.ClientCount("camp-1") == 1 && hub.ClientCount("camp-2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Notify(context.Background(), "camp-1", EncounterStarted, map[string]string{"encounterId": "e1"}))

	msg := readMessage(t, conn)
	assert.Equal(t, EncounterStarted, msg.Event)
	assert.Equal(t, "camp-1", msg.CampaignID)
	assert.Equal(t, map[string]any{"encounterId": "e1"}, msg.Data)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other campaigns receive nothing")
}

func TestPendingEventsFlushOnConnect(t *testing.T) {
	hub, srv := newTestHub(t, 10)
	ctx := context.Background()

	require.NoError(t, hub.Notify(ctx, "camp-1", EncounterStarted, "first"))
	require.NoError(t, hub.Notify(ctx, "camp-1", EncounterUpdated, "second"))
	assert.Equal(t, 2, hub.PendingCount("camp-1"))

	conn := dial(t, srv, "camp-1")
	assert.Equal(t, "first", readMessage(t, conn).Data)
	assert.Equal(t, "second", readMessage(t, conn).Data)
	assert.Equal(t, 0, hub.PendingCount("camp-1"))
}

func TestPendingQueueKeepsNewest(t *testing.T) {
	hub, _ := newTestHub(t, 2)
	ctx := context.Background()
	for _, payload := range []string{"a", "b", "c"} {
		require.NoError(t, hub.Notify(ctx, "camp-1", EncounterUpdated, payload))
	}
	assert.Equal(t, 2, hub.PendingCount("camp-1"))
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, srv := newTestHub(t, 10)
	conn := dial(t, srv, "camp-1")
	require.Eventually(t, func() bool { return hub.ClientCount("camp-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("camp-1") == 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Notify(context.Background(), "camp-1", EncounterEnded, nil))
	assert.Equal(t, 1, hub.PendingCount("camp-1"))
}

func TestNotifyValidation(t *testing.T) {
	hub, _ := newTestHub(t, 10)
	assert.Error(t, hub.Notify(context.Background(), " ", EncounterStarted, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, hub.Notify(ctx, "camp-1", EncounterStarted, nil), context.Canceled)

	assert.Error(t, hub.Notify(context.Background(), "camp-1", EncounterStarted, func() {}))
}

func TestHealthz(t *testing.T) {
	_, srv := newTestHub(t, 10)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func dialWithOrigin(srv *httptest.Server, origin string) (*websocket.Conn, int, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/campaign/camp-1"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	status := 0
	if resp != nil {
		status = resp.StatusCode
		if resp.Body != nil {
			resp.Body.Close()
		}
	}
	return conn, status, err
}

func TestAllowedOrigins(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{AllowedOrigins: []string{"https://table.example.com/"}}, zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	conn, _, err := dialWithOrigin(srv, "https://TABLE.example.com")
	require.NoError(t, err)
	conn.Close()

	conn, _, err = dialWithOrigin(srv, "")
	require.NoError(t, err, "non-browser clients send no origin")
	conn.Close()

	_, status, err := dialWithOrigin(srv, "https://evil.example.com")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestOriginCheckerDefaults(t *testing.T) {
	assert.Nil(t, originChecker(nil), "empty list keeps the same-origin rule")
	assert.Nil(t, originChecker([]string{" "}))

	allowAll := originChecker([]string{"https://a.example.com", "*"})
	require.NotNil(t, allowAll)
	req := httptest.NewRequest(http.MethodGet, "/events/campaign/c", nil)
	req.Header.Set("Origin", "https://anything.example.org")
	assert.True(t, allowAll(req))
}

func TestDefaultRejectsCrossOrigin(t *testing.T) {
	_, srv := newTestHub(t, 10)

	_, status, err := dialWithOrigin(srv, "https://elsewhere.example.com")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, status)

	conn, _, err := dialWithOrigin(srv, srv.URL)
	require.NoError(t, err)
	conn.Close()
}
