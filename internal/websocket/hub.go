package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"ecofood/internal/auth"
	"ecofood/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// newUpgrader accepts browser connections only from allowedOrigins. Clients that
// send no Origin header (CLI tools, tests) still need a valid ?token=.
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || lo.Contains(allowedOrigins, origin)
		},
	}
}

// Event is pushed to the accounts listed in Recipients, or to everyone when empty.
// Admin connections receive every event.
type Event struct {
	Name       string      `json:"event"`
	Data       interface{} `json:"data"`
	Recipients []uuid.UUID `json:"-"`
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	AccountID uuid.UUID
	Role      string
}

func (c *Client) wants(evt Event) bool {
	return len(evt.Recipients) == 0 || c.Role == "admin" || lo.Contains(evt.Recipients, c.AccountID)
}

// Hub maintains the set of active clients and dispatches events to them
type Hub struct {
	clients    map[*Client]bool
	events     chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	log        logrus.FieldLogger
}

// NewHub initializes a new WS Hub instance
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		events:     make(chan Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		log:        log.WithField("component", "websocket"),
	}
}

// Publish queues an event for dispatch. Events are dropped when the queue is full.
func (h *Hub) Publish(evt Event) {
	select {
	case h.events <- evt:
	default:
		h.log.WithField("event", evt.Name).Warn("event queue full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run starts the core dispatch loop for WebSocket events until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			metrics.SetWebsocketClients(len(h.clients))
			h.mu.Unlock()
			h.log.WithField("account_id", client.AccountID).Debug("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				metrics.SetWebsocketClients(len(h.clients))
				h.log.WithField("account_id", client.AccountID).Debug("websocket client disconnected")
			}
			h.mu.Unlock()
		case evt := <-h.events:
			h.dispatch(evt)
		}
	}
}

func (h *Hub) dispatch(evt Event) {
	message, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).WithField("event", evt.Name).Error("failed to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if !client.wants(evt) {
			continue
		}
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(h.clients, client)
		}
	}
	metrics.SetWebsocketClients(len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
		delete(h.clients, client)
	}
	metrics.SetWebsocketClients(0)
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains the connection so close frames are noticed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithError(err).Warn("websocket read failed")
			}
			break
		}
	}
}

// ServeWs authenticates the token query parameter and upgrades the connection
func ServeWs(hub *Hub, tokens *auth.TokenIssuer, allowedOrigins []string) gin.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			hub.log.Debug("websocket connection rejected: missing token")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			hub.log.WithError(err).Debug("websocket connection rejected")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		accountID, err := claims.AccountID()
		if err != nil {
			hub.log.WithError(err).Debug("websocket connection rejected: bad subject")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), AccountID: accountID, Role: claims.Role}
		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
