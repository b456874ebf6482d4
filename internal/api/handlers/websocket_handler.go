// internal/api/handlers/websocket_handler.go
package handlers

import (
	"net/http"
	"time"

	"part-request-portal-api-server/internal/api/middleware"
	"part-request-portal-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Maximum time to wait for any frame from the client.
const pongWait = 60 * time.Second

type WebSocketHandler struct {
	Hub            *socket.Hub
	AllowedOrigins []string
	Logger         *zap.Logger
}

func (h *WebSocketHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeWs upgrades an authenticated request and streams the caller's list.
// The first frame is the current list; every change sends the full list again.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := h.Hub.Register(sessionID, identity(c), conn)
	defer func() {
		h.Hub.Unregister(client)
		conn.Close()
	}()

	// Clients keep the connection alive with pings; each one extends the
	// deadline and gorilla answers with a pong.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Debug("Unexpected close error", zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
