package status

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pkmn-tools/shinyhunt-go/encounterlog"
	"github.com/pkmn-tools/shinyhunt-go/gamestate"
	"github.com/pkmn-tools/shinyhunt-go/logger"
)

const (
	clientSendBuffer = 16
	pingInterval     = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local operator tooling
	},
}

// Hub broadcasts each logged encounter to connected websocket clients. It
// implements the hunter's encounter sink interface, so it joins the regular
// fan-out next to the file and SQLite sinks.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// Log broadcasts one encounter event as JSON. A slow client drops events
// rather than stalling the hunting loop.
func (h *Hub) Log(enc gamestate.Encounter, ordinal int) {
	event := encounterlog.Record{
		Ordinal:     ordinal,
		Species:     enc.Species,
		Shiny:       enc.Shiny,
		TrainerID:   enc.TrainerID,
		SecretID:    enc.SecretID,
		Personality: enc.Personality,
		SeenAt:      time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Warn("Encounter event marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			logger.Debug("Dropping encounter event for slow websocket client")
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades one HTTP request to a websocket and streams events until
// the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &hubClient{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	logger.Debug("Websocket client connected", "total", total)

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

func (h *Hub) remove(client *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *Hub) readPump(client *hubClient) {
	defer func() {
		h.remove(client)
		client.conn.Close()
	}()
	client.conn.SetReadLimit(512)
	for {
		// Inbound data is discarded; reading only detects disconnects.
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
