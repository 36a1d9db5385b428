package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"privchat/internal/config"
	"privchat/internal/creds"
	"privchat/internal/database"
	"privchat/internal/server"
	"privchat/internal/stats"
	"privchat/internal/testutil"
)

func newTestApp(t *testing.T, allowedOrigins []string) *App {
	t.Helper()

	credStore, err := creds.NewStore([]creds.Seed{
		{Username: "Ann", Password: "Annpw", Avatar: "/avatars/ann.jpg"},
		{Username: "Bob", Password: "Bobpw", Avatar: "/avatars/bob.jpg"},
	})
	require.NoError(t, err)

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	relay, err := server.NewRelayServer(testutil.TestLogger(t), &database.MockRepository{}, credStore, nil, su)
	require.NoError(t, err)

	cfg, err := config.NewConfig("localhost:0", "postgres://test", t.TempDir(), "", "", allowedOrigins)
	require.NoError(t, err)

	return NewApp(http.NewServeMux(), testutil.TestLogger(t), relay, cfg)
}

func TestNewApp_routes(t *testing.T) {
	mux := http.NewServeMux()
	credStore, err := creds.NewStore(nil)
	require.NoError(t, err)

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)

	relay, err := server.NewRelayServer(testutil.TestLogger(t), &database.MockRepository{}, credStore, nil, su)
	require.NoError(t, err)

	cfg, err := config.NewConfig("localhost:0", "postgres://test", t.TempDir(), t.TempDir(), "", nil)
	require.NoError(t, err)

	app := NewApp(mux, testutil.TestLogger(t), relay, cfg)
	assert.NotNil(t, app.srv, "expected the HTTP server to be configured")

	for _, path := range []string{"/ws", "/uploads/x", "/avatars/x"} {
		handler, _ := mux.Handler(&http.Request{URL: &url.URL{Path: path}, Method: http.MethodGet})
		assert.NotNil(t, handler, "expected a handler for %s", path)
	}
}

func Test_serveWs_originDenied(t *testing.T) {
	app := newTestApp(t, []string{"http://localhost:3000"})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	app.serveWs(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code, "expected the upgrade to be rejected")
}

// Test_serveWs_loginRoundTrip dials a real websocket and walks the login
// exchange end to end.
func Test_serveWs_loginRoundTrip(t *testing.T) {
	app := newTestApp(t, nil)

	ts := httptest.NewServer(app.srv.Handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "expected the websocket dial to succeed")
	defer conn.Close()
	defer resp.Body.Close()

	err = conn.WriteJSON(map[string]any{
		"id":    1,
		"login": map[string]string{"username": "Ann", "password": "Annpw"},
	})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// the presence broadcast lands first, then the ack
	var statuses server.ServerEvent
	require.NoError(t, readEvent(conn, &statuses))
	require.NotNil(t, statuses.Statuses, "expected a presence broadcast")
	assert.True(t, statuses.Statuses["Ann"])
	assert.False(t, statuses.Statuses["Bob"])

	var ack server.ServerEvent
	require.NoError(t, readEvent(conn, &ack))
	require.NotNil(t, ack.LoginAck, "expected a login ack")
	assert.Equal(t, 1, ack.Id)
	assert.True(t, ack.LoginAck.Success)
	assert.Equal(t, "Ann", ack.LoginAck.CurrentUser.Username)
	assert.Equal(t, []string{"Ann", "Bob"}, ack.LoginAck.AllUsers)
}

func readEvent(conn *websocket.Conn, ev *server.ServerEvent) error {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, ev)
}
