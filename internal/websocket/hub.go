// Package websocket pushes sensor updates and alerts to dashboard clients.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"codeberg.org/mutker/sensorhub/internal/aggregator"
	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
	broadcastQueue = 256
)

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	now        func() time.Time
	log        logger.Logger
}

// NewHub creates a hub accepting connections from allowOrigins. An empty
// list or "*" accepts any origin.
func NewHub(allowOrigins []string, log logger.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		now:        time.Now,
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(allowOrigins),
	}

	return h
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}

		return slices.Contains(allowed, origin)
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()

			h.log.Debug().
				Str("client", client.id).
				Int("clients", total).
				Msg("Client registered")

			client.push(h.encode(TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Debug().
					Str("client", client.id).
					Int("clients", len(h.clients)).
					Msg("Client unregistered")
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.sensorID) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// slow consumer
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) encode(typ string, data any) []byte {
	payload, err := json.Marshal(Message{
		Type:      typ,
		Data:      data,
		Timestamp: h.now(),
	})
	if err != nil {
		h.log.Error().Err(err).Str("type", typ).Msg("Failed to encode message")
		return nil
	}

	return payload
}

func (h *Hub) enqueue(typ, sensorID string, data any) {
	payload := h.encode(typ, data)
	if payload == nil {
		return
	}

	select {
	case h.broadcast <- outbound{sensorID: sensorID, payload: payload}:
	default:
		h.log.Warn().
			Str("type", typ).
			Str("sensor", sensorID).
			Msg("Broadcast queue full, dropping message")
	}
}

// BroadcastUpdate queues a sensor snapshot. It never blocks.
func (h *Hub) BroadcastUpdate(u aggregator.Update) {
	h.enqueue(TypeUpdate, u.SensorID, u)
}

// BroadcastAlert queues an alert. It never blocks.
func (h *Hub) BroadcastAlert(a alert.Alert) {
	h.enqueue(TypeAlert, a.SensorID, a)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// ServeHTTP upgrades the request and starts the client's pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		id:         uuid.NewString(),
		subscribed: make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
