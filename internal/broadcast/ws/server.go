// Package ws implements the WebSocket hub that delivers workshop room
// broadcasts to connected participants. Clients connect, name their room,
// and receive every event the orchestrator emits for that workshop in order.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/broadcomms/brainstormx/internal/broadcast"
)

const (
	// Per-client send queue. A client that falls this far behind is
	// disconnected rather than allowed to stall the room.
	sendQueueSize = 64

	writeTimeout = 10 * time.Second
)

// Config configures the hub.
type Config struct {
	// Token, when set, is required as a query parameter or bearer header
	// on every connection.
	Token string
}

// Hub is a room-based WebSocket broadcaster.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	room string
}

// NewHub creates an empty hub.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:    cfg,
		logger: logger,
		rooms:  make(map[string]map[*client]struct{}),
	}
}

// Handler returns an http.Handler that upgrades connections to WebSocket.
// The workshop room is taken from the workshop_id query parameter.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(h.handleUpgrade)
}

func (h *Hub) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Token != "" {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = r.Header.Get("Authorization")
			if len(token) > 7 && token[:7] == "Bearer " {
				token = token[7:]
			}
		}
		if token != h.cfg.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	workshopID, err := strconv.ParseInt(r.URL.Query().Get("workshop_id"), 10, 64)
	if err != nil || workshopID <= 0 {
		http.Error(w, "workshop_id is required", http.StatusBadRequest)
		return
	}
	room := broadcast.Room(workshopID)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{"brainstormx-room-v1"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueueSize), room: room}
	h.join(c)
	h.logger.Debug("client joined room", slog.String("room", room))

	go h.writeLoop(r.Context(), c)
	h.readLoop(r.Context(), c)
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[c.room]
	if !ok {
		clients = make(map[*client]struct{})
		h.rooms[c.room] = clients
	}
	clients[c] = struct{}{}
}

// leave removes the client and closes its send queue. Closing under the
// write lock guarantees no Emit is mid-send on the channel.
func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[c.room]; ok {
		if _, member := clients[c]; member {
			delete(clients, c)
			close(c.send)
		}
		if len(clients) == 0 {
			delete(h.rooms, c.room)
		}
	}
}

// readLoop drains inbound frames until the peer disconnects. Inbound
// traffic is ignored; the hub is broadcast-only.
func (h *Hub) readLoop(ctx context.Context, c *client) {
	defer func() {
		h.leave(c)
		c.conn.Close(websocket.StatusNormalClosure, "connection closed")
	}()
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

// writeLoop serializes all writes for one client, preserving per-room
// event order.
func (h *Hub) writeLoop(ctx context.Context, c *client) {
	for msg := range c.send {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.conn.Write(writeCtx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
}

// Emit implements broadcast.Broadcaster.
func (h *Hub) Emit(room, event string, payload map[string]any) {
	env := broadcast.Envelope{
		ID:        uuid.New(),
		Room:      room,
		Event:     event,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("encoding broadcast envelope",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return
	}

	h.mu.RLock()
	clients := h.rooms[room]
	for c := range clients {
		select {
		case c.send <- data:
		default:
			// Slow consumer: drop the connection, not the room.
			h.logger.Warn("dropping slow websocket client", slog.String("room", room))
			go c.conn.Close(websocket.StatusPolicyViolation, "send queue overflow")
		}
	}
	h.mu.RUnlock()
}

// EmitTimerSync implements broadcast.Broadcaster.
func (h *Hub) EmitTimerSync(room string, state broadcast.TimerState, workshopID int64) {
	h.Emit(room, broadcast.EventTimerSync, broadcast.TimerSyncPayload(state, workshopID))
}

// RoomSize returns the number of connected clients in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
