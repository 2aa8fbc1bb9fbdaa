package api_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/sensor"
)

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readPush(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var push struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &push))

	return push.Type, push.Data
}

func TestWebSocketSnapshotPush(t *testing.T) {
	env := newTestEnv()
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	conn := dialWS(t, ts)
	require.Eventually(t, func() bool {
		return env.hub.Clients() == 1
	}, time.Second, 10*time.Millisecond)

	env.hub.BroadcastSnapshot(testSnapshot())

	kind, data := readPush(t, conn)
	assert.Equal(t, "snapshot", kind)

	var snap sensor.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	require.Len(t, snap, 1)
	assert.Equal(t, "AMD Ryzen 7 5800X", snap[0].Name)
}

func TestWebSocketAlertPush(t *testing.T) {
	env := newTestEnv()
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	conn := dialWS(t, ts)
	require.Eventually(t, func() bool {
		return env.hub.Clients() == 1
	}, time.Second, 10*time.Millisecond)

	event := alert.Event{
		ID:      uuid.New(),
		Sensor:  "CPU Package",
		Level:   alert.High,
		Value:   91.0,
		Message: "CPU Package is High: 91",
		At:      time.Now(),
	}
	require.NoError(t, env.hub.Send(context.Background(), event))

	kind, data := readPush(t, conn)
	assert.Equal(t, "alert", kind)

	var got alert.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, alert.High, got.Level)
	assert.Equal(t, "CPU Package is High: 91", got.Message)
}

func TestWebSocketBroadcastReachesAllClients(t *testing.T) {
	env := newTestEnv()
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	first := dialWS(t, ts)
	second := dialWS(t, ts)
	require.Eventually(t, func() bool {
		return env.hub.Clients() == 2
	}, time.Second, 10*time.Millisecond)

	env.hub.BroadcastSnapshot(testSnapshot())

	for _, conn := range []*websocket.Conn{first, second} {
		kind, _ := readPush(t, conn)
		assert.Equal(t, "snapshot", kind)
	}
}

func TestWebSocketClientDisconnectIsNoticed(t *testing.T) {
	env := newTestEnv()
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	conn := dialWS(t, ts)
	require.Eventually(t, func() bool {
		return env.hub.Clients() == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return env.hub.Clients() == 0
	}, time.Second, 10*time.Millisecond)

	// Broadcasting to nobody is fine.
	env.hub.BroadcastSnapshot(testSnapshot())
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	env := newTestEnv()
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	conn := dialWS(t, ts)
	require.Eventually(t, func() bool {
		return env.hub.Clients() == 1
	}, time.Second, 10*time.Millisecond)

	env.hub.Close()
	assert.Zero(t, env.hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
