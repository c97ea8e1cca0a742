package host

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// The hub is a register/unregister/broadcast goroutine owning a
// client set guarded by its own mutex for reads from HTTP handlers.
// There is a single role: every connected embedder gets every
// outbound event.
const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = (wsPongWait * 9) / 10
	wsMaxMsgSize   = 4096
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(_ *http.Request) bool { return true },
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// eventHub fans every outbound event out to every connected embedder.
type eventHub struct {
	log        *slog.Logger
	mu         sync.RWMutex
	clients    map[*wsClient]struct{}
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
}

func newEventHub(log *slog.Logger) *eventHub {
	return &eventHub{
		log:        log,
		clients:    make(map[*wsClient]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient, 8),
		unregister: make(chan *wsClient, 8),
		done:       make(chan struct{}),
	}
}

func (h *eventHub) run() {
	for {
		select {
		case <-h.done:
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.log.Info("admin feed client connected", "client_id", c.id, "count", len(h.clients))
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Info("admin feed client disconnected", "client_id", c.id)
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn("dropping outbound event for slow websocket client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish enqueues msg for broadcast to every connected client. It
// never blocks: a hub that has exited silently drops the message,
// matching the dispatcher's own "outbound events are best-effort past
// the zone boundary" posture.
func (h *eventHub) Publish(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func (h *eventHub) shutdown() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// serveWS upgrades the request to a WebSocket and registers the
// connection with the hub. The connection is read-only from the
// embedder's perspective beyond pings; all control flows the other
// way, through SendControllerMessage/the admin HTTP API.
func (h *eventHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, 64)}
	h.register <- c

	go c.writePump()
	c.readPump(h)
}

func (c *wsClient) readPump(h *eventHub) {
	defer func() {
		h.unregister <- c
	}()
	c.conn.SetReadLimit(wsMaxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
