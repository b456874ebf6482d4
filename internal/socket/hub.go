// internal/socket/hub.go
package socket

import (
	"context"
	"sync"
	"time"

	"part-request-portal-api-server/internal/models"
	"part-request-portal-api-server/internal/requests"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	EventRequests = "requests"
)

// Message is the frame pushed to clients on every snapshot.
type Message struct {
	Event    string                   `json:"event"`
	Requests []models.PartRequestView `json:"requests"`
}

// Client is one WebSocket connection. Each client owns a single feed.
type Client struct {
	sessionID string
	conn      *websocket.Conn
	feed      *requests.Feed
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex
}

func (c *Client) SessionID() string { return c.sessionID }

// Identity is the identity the client's feed is currently scoped to.
func (c *Client) Identity() models.Identity { return c.feed.Identity() }

func (c *Client) send(list []models.PartRequestView) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(Message{Event: EventRequests, Requests: list}); err != nil {
		c.logger.Debug("WebSocket write failed",
			zap.String("session_id", c.sessionID),
			zap.Error(err),
		)
	}
}

// Hub tracks connected clients by session so a scope change in one HTTP
// request can re-target every open socket of that session.
type Hub struct {
	controller *requests.Controller
	logger     *zap.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub(controller *requests.Controller, logger *zap.Logger) *Hub {
	return &Hub{
		controller: controller,
		logger:     logger,
		clients:    make(map[string]map[*Client]struct{}),
	}
}

// Register adds a connection and opens its subscription for id.
func (h *Hub) Register(sessionID string, id models.Identity, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		sessionID: sessionID,
		conn:      conn,
		logger:    h.logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.feed = requests.NewFeed(h.controller, c.send)

	h.mu.Lock()
	set, ok := h.clients[sessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[sessionID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	c.feed.Resubscribe(ctx, id)
	h.logger.Info("WebSocket client registered",
		zap.String("session_id", sessionID),
		zap.String("role", string(id.Role)),
	)
	return c
}

// Unregister closes the client's subscription and forgets it.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.sessionID)
		}
	}
	h.mu.Unlock()

	c.feed.Close()
	c.cancel()
	h.logger.Info("WebSocket client unregistered", zap.String("session_id", c.sessionID))
}

// Rescope moves every socket of a session onto id's scope. The previous
// subscription of each socket is cancelled before the new one opens.
func (h *Hub) Rescope(sessionID string, id models.Identity) {
	for _, c := range h.sessionClients(sessionID) {
		if c.feed.Identity() == id {
			continue
		}
		c.feed.Resubscribe(c.ctx, id)
	}
}

// Disconnect closes every socket of a session, used on logout.
func (h *Hub) Disconnect(sessionID string) {
	for _, c := range h.sessionClients(sessionID) {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		c.conn.Close()
	}
}

// Clients returns the number of open connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) sessionClients(sessionID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients[sessionID]))
	for c := range h.clients[sessionID] {
		out = append(out, c)
	}
	return out
}
