package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coursenotify/config"
	"coursenotify/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, hub *Hub, initial InitialPayload) (*config.JWTConfig, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "ws-secret", AccessExpiry: time.Minute}
	r := gin.New()
	r.GET("/ws", UpgradeNotificationsWS(cfg, hub, initial))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return cfg, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, cfg *config.JWTConfig, url string, userID uint) *websocket.Conn {
	t.Helper()
	tok, err := auth.GenerateAccessToken(cfg, userID, "ada")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+tok, nil)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestUpgrade_Lifecycle(t *testing.T) {
	hub := NewHub()
	cfg, url := startServer(t, hub, func(ctx context.Context, userID uint) (interface{}, error) {
		return map[string]interface{}{"type": "hello", "user": userID}, nil
	})

	conn := dial(t, cfg, url, 5)
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "hello", msg["type"])
	assert.EqualValues(t, 5, msg["user"])
	require.True(t, hub.Connected(5))

	hub.BroadcastToUser(5, map[string]int{"count": 2})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.EqualValues(t, 2, msg["count"])

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	// the server answers with its own close frame after draining the writer
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	assert.True(t, errors.As(err, &closeErr), "got %v", err)
	conn.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestUpgrade_InitialPayloadErrorKeepsConnection(t *testing.T) {
	hub := NewHub()
	cfg, url := startServer(t, hub, func(ctx context.Context, userID uint) (interface{}, error) {
		return nil, errors.New("count unavailable")
	})

	conn := dial(t, cfg, url, 6)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Connected(6) }, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastToUser(6, map[string]int{"count": 1})
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.EqualValues(t, 1, msg["count"])
}

func TestUpgrade_RejectsMissingToken(t *testing.T) {
	_, url := startServer(t, NewHub(), nil)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
