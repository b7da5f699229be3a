// Package handlers provides HTTP request handlers for the metricsd API.
// This file implements the WebSocket endpoint streaming periodic metric
// snapshots to connected watchers.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anstrom/metricsd/internal/metrics"
)

const (
	// Time allowed to write a snapshot to the peer.
	writeWait = 10 * time.Second

	// Time to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period, must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from the peer.
	maxMessageSize = 512
)

// WatchHandler streams periodic dumps over a WebSocket connection.
type WatchHandler struct {
	manager  metrics.API
	logger   *slog.Logger
	interval time.Duration
	upgrader websocket.Upgrader
}

// WatchMessage is one frame pushed to a watcher.
type WatchMessage struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Snapshot  metrics.Snapshot `json:"snapshot"`
}

// NewWatchHandler creates a new watch handler pushing a snapshot every
// interval.
func NewWatchHandler(manager metrics.API, logger *slog.Logger, interval time.Duration) *WatchHandler {
	return &WatchHandler{
		manager:  manager,
		logger:   logger.With("handler", "watch"),
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// CORS policy is enforced at the router level.
				return true
			},
		},
	}
}

// Watch upgrades the connection and streams snapshots until the client
// disconnects or the request context is canceled.
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestIDFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "request_id", requestID, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("Watcher connected", "request_id", requestID, "remote_addr", r.RemoteAddr)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Drain the read side so control frames are processed and a client
	// close tears the connection down promptly.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	pinger := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer pinger.Stop()

	if err := h.send(conn); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			h.logger.Info("Watcher disconnected", "request_id", requestID)
			return
		case <-pinger.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			if err := h.send(conn); err != nil {
				h.logger.Debug("Watcher write failed", "request_id", requestID, "error", err)
				return
			}
		}
	}
}

func (h *WatchHandler) send(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(WatchMessage{
		Type:      "snapshot",
		Timestamp: time.Now().UTC(),
		Snapshot:  h.manager.Dump(),
	})
}
