package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/sql-escape-room/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeWait = 5 * time.Second

// Hub fans score events out to connected scoreboard viewers. Clients are
// write-only: the read loop exists solely to detect disconnects.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty scoreboard hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleScoreboardWS upgrades the request and keeps the connection
// registered until the client goes away.
func (h *Hub) HandleScoreboardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()

	slog.Info("scoreboard viewer connected", "viewers", count, "remote_addr", r.RemoteAddr)

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(models.ScoreEvent{Type: "connected"}); err != nil {
		h.drop(conn)
		return
	}

	// Discard inbound frames; exit on close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(conn)
	slog.Info("scoreboard viewer disconnected", "remote_addr", r.RemoteAddr)
}

// Broadcast sends one event to every connected viewer, dropping clients
// whose writes fail.
func (h *Hub) Broadcast(event models.ScoreEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(event); err != nil {
			slog.Debug("dropping scoreboard viewer", "error", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Close disconnects all viewers
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// drop unregisters and closes one connection
func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.clients, conn)
}
