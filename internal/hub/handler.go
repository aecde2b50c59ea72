package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/formforge/formpulse/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Handler upgrades HTTP requests to WebSocket connections and attaches them
// to the hub.
type Handler struct {
	hub      *Hub
	clock    clockwork.Clock
	upgrader websocket.Upgrader
}

// NewHandler creates the WebSocket endpoint handler. checkOrigin decides
// which browser origins may connect; see NewCheckOrigin.
func NewHandler(hub *Hub, clock clockwork.Clock, checkOrigin func(r *http.Request) bool) *Handler {
	return &Handler{
		hub:   hub,
		clock: clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	slog.Debug("New connection", "remote_addr", r.RemoteAddr)

	client := newClient(h.hub, conn, h.clock)
	h.hub.Register(client)

	// Best-effort greeting; a full buffer just drops it.
	greeting := domain.Event{
		Type: domain.EventGreeting,
		Data: map[string]any{"message": "connected", "ts": time.Now().Unix()},
	}
	if data, err := json.Marshal(greeting); err == nil {
		if !client.enqueue(data) {
			slog.Debug("Unable to queue greeting, send buffer full", "remote_addr", r.RemoteAddr)
		}
	}

	// The writer runs on its own goroutine; the reader stays on the handler
	// goroutine so the HTTP server keeps the connection alive.
	go client.writePump()
	client.readPump()
}
