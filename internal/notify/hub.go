package notify

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is the payload pushed to connected browsers when a mailbox entry
// changes.
type Event struct {
	ID      string `json:"id"`
	Subject string `json:"asunto"`
	Content string `json:"contenido"`
	Read    bool   `json:"leido"`
}

// Hub fans mailbox events out to the websocket connections of each user.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

// NewHub builds an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		conns:  make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Subscribe upgrades the request to a websocket and tracks the connection
// under the given user until the peer disconnects. It blocks while draining
// reads so close frames are honored.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.add(userID, conn)
	defer h.remove(userID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

func (h *Hub) add(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.conns[userID] = set
	}
	set[conn] = struct{}{}
}

func (h *Hub) remove(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
	_ = conn.Close()
}

// Publish writes the event to every live connection of the user. Connections
// that fail the write are dropped.
func (h *Hub) Publish(userID string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[userID]
	if !ok {
		return
	}
	for conn := range set {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("push write failed, dropping connection",
				"user_id", userID, "error", err)
			delete(set, conn)
			_ = conn.Close()
		}
	}
	if len(set) == 0 {
		delete(h.conns, userID)
	}
}

// Close tears down every tracked connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.conns {
		for conn := range set {
			_ = conn.Close()
		}
		delete(h.conns, userID)
	}
}
