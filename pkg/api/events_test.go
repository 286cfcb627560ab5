package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/mistalic/pkg/workspace"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialEvents(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return env.server.Events().Count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) EventMessage {
	t.Helper()

	var msg EventMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestEvents_WorkspaceChanges(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	conn := dialEvents(t, env)

	_, err := env.workspace.Create("a.ts", "", "")
	require.NoError(t, err)

	created := readEvent(t, conn)
	assert.Equal(t, "event", created.Type)
	assert.Equal(t, string(workspace.EventFileCreated), created.Event)
	assert.Equal(t, "/a.ts", created.Path)
	assert.NotZero(t, created.Timestamp)

	activated := readEvent(t, conn)
	assert.Equal(t, string(workspace.EventActiveChanged), activated.Event)
	assert.Greater(t, activated.Seq, created.Seq)
}

func TestEvents_SettingsOverHTTP(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	conn := dialEvents(t, env)

	rec := env.do(t, http.MethodPut, "/settings/theme", map[string]string{"name": "high-contrast"})
	require.Equal(t, http.StatusOK, rec.Code)

	msg := readEvent(t, conn)
	assert.Equal(t, string(workspace.EventThemeChanged), msg.Event)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "high-contrast", data["name"])
}

func TestEvents_KeysAreMasked(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	conn := dialEvents(t, env)

	_, err := env.workspace.AddAPIKey("main", "sk-1234567890abcd", "")
	require.NoError(t, err)

	msg := readEvent(t, conn)
	assert.Equal(t, string(workspace.EventKeysChanged), msg.Event)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "sk-1********abcd", data["key"])
}

func TestEvents_CloseDisconnects(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	conn := dialEvents(t, env)

	env.server.Events().Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, env.server.Events().Count())
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/events", nil).Code)
}

func TestEvents_StalledSubscriberIsDropped(t *testing.T) {
	hub := NewEventHub(zerolog.Nop())
	stalled := newEventClient(nil, "127.0.0.1")
	require.True(t, hub.add(stalled))

	start := time.Now()
	for i := 0; i <= eventSendBuffer; i++ {
		hub.Publish(workspace.EventPayload{Event: workspace.EventFileUpdated, Path: "/a.ts"})
	}

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, hub.Count())
	select {
	case <-stalled.done:
	default:
		t.Fatal("stalled subscriber was not stopped")
	}
	assert.Len(t, stalled.send, eventSendBuffer)
}
