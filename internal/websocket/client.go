package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one dashboard connection. With no subscriptions it receives
// messages for every sensor.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	subscribed map[string]bool
	mu         sync.RWMutex
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Str("client", c.id).Msg("WebSocket read failed")
			}
			return
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Debug().Err(err).Str("client", c.id).Msg("WebSocket write failed")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg inbound
	if err := json.Unmarshal(message, &msg); err != nil {
		c.reply(TypeError, map[string]string{"error": "malformed message"})
		return
	}

	switch msg.Type {
	case TypeSubscribe, TypeUnsubscribe:
		var sub subscription
		if err := json.Unmarshal(msg.Data, &sub); err != nil {
			c.reply(TypeError, map[string]string{"error": "malformed subscription"})
			return
		}
		c.mu.Lock()
		for _, id := range sub.Sensors {
			if msg.Type == TypeSubscribe {
				c.subscribed[id] = true
			} else {
				delete(c.subscribed, id)
			}
		}
		c.mu.Unlock()

		c.hub.log.Debug().
			Str("client", c.id).
			Str("action", msg.Type).
			Strs("sensors", sub.Sensors).
			Send()

	case TypePing:
		c.reply(TypePong, map[string]string{"client_id": c.id})

	default:
		c.reply(TypeError, map[string]string{"error": "unknown message type " + msg.Type})
	}
}

func (c *Client) reply(typ string, data any) {
	c.push(c.hub.encode(typ, data))
}

// push is a non-blocking send. The hub owns closing c.send, so pushes from
// the read side may race a concurrent unregister; recover covers that.
func (c *Client) push(payload []byte) {
	if payload == nil {
		return
	}
	defer func() { _ = recover() }()

	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) wants(sensorID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.subscribed) == 0 || c.subscribed[sensorID]
}
