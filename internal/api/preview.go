// ABOUTME: WebSocket endpoint streaming live preview patches per entity.
// ABOUTME: Subscribes each connection to the shared state store and fans out updates.

package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // direct WebSocket clients send no origin
		}
		allowedOrigins := []string{"localhost", "127.0.0.1", "::1"}
		for _, allowed := range allowedOrigins {
			if strings.Contains(origin, allowed) {
				return true
			}
		}
		return false
	},
}

// previewMessage is one frame on the preview stream.
type previewMessage struct {
	Type     string         `json:"type"` // "state" for the initial snapshot, "patch" after
	EntityID string         `json:"entityId"`
	Patch    map[string]any `json:"patch"`
}

// previewSocket upgrades the connection and streams preview patches for one
// entity until the client disconnects.
func (h *Handlers) previewSocket(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	send := make(chan []byte, 256)
	done := make(chan struct{})

	enqueue := func(msgType string, patch map[string]any) {
		data, err := json.Marshal(previewMessage{Type: msgType, EntityID: entityID, Patch: patch})
		if err != nil {
			log.Printf("Failed to marshal preview message: %v", err)
			return
		}
		select {
		case send <- data:
		default:
			// Buffer full, drop the frame; the next patch carries full state
			log.Printf("Preview client send buffer full, dropping frame")
		}
	}

	// Snapshot first so late subscribers see the current state immediately.
	if current := h.states.Current(entityID); current != nil {
		enqueue("state", current)
	}
	unsubscribe := h.states.Subscribe(entityID, func(patch map[string]any) {
		enqueue("patch", patch)
	})

	go h.previewWritePump(conn, send, done)
	go h.previewReadPump(conn, unsubscribe, done)
}

// previewReadPump consumes client frames until close. Incoming payloads are
// ignored, the stream is one-way.
func (h *Handlers) previewReadPump(conn *websocket.Conn, unsubscribe func(), done chan struct{}) {
	defer func() {
		unsubscribe()
		close(done)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("Preview WebSocket error: %v", err)
			}
			return
		}
	}
}

// previewWritePump drains the send channel and keeps the connection alive
// with pings.
func (h *Handlers) previewWritePump(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Failed to set write deadline: %v", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Failed to set ping write deadline: %v", err)
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
