package httpapi

import (
	"context"
	"encoding/json"
	gosync "sync"
	"time"

	"github.com/coder/websocket"

	"github.com/mihailsb/docsync/internal/api"
	"github.com/mihailsb/docsync/internal/logging"
)

const writeTimeout = 5 * time.Second

// Hub tracks the websocket connections of signed-in users and fans document
// change frames out to every device of the owning user.
type Hub struct {
	log logging.Logger

	mu    gosync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.conns[userID] = set
	}
	set[conn] = struct{}{}
}

func (h *Hub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

func (h *Hub) snapshot(userID string) []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		out = append(out, c)
	}
	return out
}

// NotifyChange implements services.ChangeNotifier. A connection that cannot
// take the frame within the write timeout is closed; its read loop will
// clean it up.
func (h *Hub) NotifyChange(userID string, frame api.ChangeFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error(context.Background(), "encoding change frame", "error", err)
		return
	}

	for _, conn := range h.snapshot(userID) {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				c.Close(websocket.StatusPolicyViolation, "write timeout")
			}
		}(conn)
	}
}

// CloseAll terminates every connection, used during server shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.conns {
		for c := range set {
			c.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(h.conns, userID)
	}
}
