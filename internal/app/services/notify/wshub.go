package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/umatik/lottery-engine/internal/app/domain/notification"
	"github.com/umatik/lottery-engine/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	clientBuffer   = 16
	maxMessageSize = 512
)

// Hub is the websocket Transport. Each recipient may hold several
// connections; a delivery is pushed to all of them. A recipient with no
// connection simply misses the live push and reads the persisted row later.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
}

var _ Transport = (*Hub)(nil)

// NewHub constructs a websocket hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("notify-ws")
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[string]map[*wsClient]struct{}),
	}
}

type wsClient struct {
	recipient string
	conn      *websocket.Conn
	send      chan []byte
}

// ServeHTTP upgrades the connection and streams notifications for the
// recipient named in the query string.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		http.Error(w, `{"error":"recipient is required"}`, http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &wsClient{recipient: recipient, conn: conn, send: make(chan []byte, clientBuffer)}
	h.register(client)
	h.log.WithField("recipient", recipient).Debug("websocket client connected")

	go h.writeLoop(client)
	go h.readLoop(client)
}

// Deliver implements Transport.
func (h *Hub) Deliver(_ context.Context, n notification.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*wsClient, 0, len(h.clients[n.RecipientID]))
	for c := range h.clients[n.RecipientID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case c.send <- payload:
		default:
			// A stalled client loses the push, not the notification.
			h.log.WithField("recipient", n.RecipientID).Debug("websocket client buffer full")
		}
	}
	return nil
}

// Connected reports how many connections a recipient currently holds.
func (h *Hub) Connected(recipient string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[recipient])
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.recipient] == nil {
		h.clients[c.recipient] = make(map[*wsClient]struct{})
	}
	h.clients[c.recipient][c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.recipient]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
			if len(set) == 0 {
				delete(h.clients, c.recipient)
			}
		}
	}
}

func (h *Hub) readLoop(c *wsClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
