package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"coursenotify/config"
	"coursenotify/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// InitialPayload produces the first message sent on a new connection, typically the unseen count.
type InitialPayload func(ctx context.Context, userID uint) (interface{}, error)

// UpgradeNotificationsWS authenticates ?token=, registers the connection and streams count
// updates pushed through the hub.
func UpgradeNotificationsWS(cfg *config.JWTConfig, hub *Hub, initial InitialPayload) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "token required", "reason": "unauthenticated"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid token", "reason": "unauthenticated"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// registered before the first write so no count update falls between the two
		client := NewClient(claims.UserID)
		hub.Register(client)
		if initial != nil {
			payload, err := initial(c.Request.Context(), claims.UserID)
			if err != nil {
				log.Printf("[ws] initial payload for user %d: %v", claims.UserID, err)
			} else if err := conn.WriteJSON(payload); err != nil {
				log.Printf("[ws] initial write to user %d: %v", claims.UserID, err)
				client.Close()
				return
			}
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			writePump(client, conn)
		}()
		readPump(conn)
		// writePump sends the close frame once Send is closed; conn.Close must wait for it
		client.Close()
		<-done
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
