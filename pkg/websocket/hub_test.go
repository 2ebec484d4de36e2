package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rideshare/pkg/auth"
	"rideshare/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestHubDeliversToAuthenticatedUser(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	hub := NewHub(jwt, logger.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	ws := dial(t, srv)
	token, err := jwt.GenerateToken("r1", auth.RoleRider)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(authMessage{Type: "auth", Token: "Bearer " + token}))

	require.Eventually(t, func() bool { return hub.IsConnected("r1") }, time.Second, 10*time.Millisecond)

	delivered, err := hub.SendToUser("r1", map[string]string{"message": "Driver assigned"})
	require.NoError(t, err)
	assert.True(t, delivered)

	var got map[string]string
	ws.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, "Driver assigned", got["message"])

	delivered, err = hub.SendToUser("nobody", "hi")
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestHubRejectsBadToken(t *testing.T) {
	hub := NewHub(auth.NewJWTManager("secret", time.Hour), logger.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ws := dial(t, srv)
	require.NoError(t, ws.WriteJSON(authMessage{Type: "auth", Token: "garbage"}))

	var got errorMessage
	ws.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, "error", got.Type)
	assert.Equal(t, "invalid or expired token", got.Message)
}

func TestHubDropsClosedClients(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	hub := NewHub(jwt, logger.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ws := dial(t, srv)
	token, _ := jwt.GenerateToken("d1", auth.RoleDriver)
	require.NoError(t, ws.WriteJSON(authMessage{Type: "auth", Token: token}))
	require.Eventually(t, func() bool { return hub.IsConnected("d1") }, time.Second, 10*time.Millisecond)

	ws.Close()
	assert.Eventually(t, func() bool { return !hub.IsConnected("d1") }, 2*time.Second, 10*time.Millisecond)
}
