package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lxmf-chat/pkg/events"
	"lxmf-chat/pkg/metrics"
)

const wsWriteTimeout = 2 * time.Second

// Hub streams session events to connected WebSocket clients. It is an events.Sink.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*wsConn]struct{}
}

type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteJSON(v)
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*wsConn]struct{}{},
	}
}

// HandleWS upgrades the request and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade failed")
		return
	}
	conn := &wsConn{c: c}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSClients.Set(float64(n))
	log.Info().Str("remote", r.RemoteAddr).Int("clients", n).Msg("event stream client connected")
	go h.readLoop(conn)
}

// readLoop drains client frames so close and ping control messages are handled.
func (h *Hub) readLoop(conn *wsConn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.c.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(conn *wsConn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		_ = conn.c.Close()
		metrics.WSClients.Set(float64(n))
		log.Debug().Int("clients", n).Msg("event stream client disconnected")
	}
}

// Publish sends e to every client, dropping the ones that fail.
func (h *Hub) Publish(e events.Event) {
	h.mu.RLock()
	conns := make([]*wsConn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		if err := c.write(e); err != nil {
			log.Debug().Err(err).Str("type", string(e.Type)).Msg("ws send failed")
			h.remove(c)
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*wsConn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.mu.Lock()
		_ = c.c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), time.Now().Add(time.Second))
		c.mu.Unlock()
		h.remove(c)
	}
}
