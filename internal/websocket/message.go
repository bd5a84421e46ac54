package websocket

import (
	"encoding/json"
	"time"
)

// Message types pushed to and accepted from dashboard clients.
const (
	TypeConnection  = "connection"
	TypeUpdate      = "sensor_update"
	TypeAlert       = "alert"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeError       = "error"
)

// Message is the envelope for every frame sent to a client.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type subscription struct {
	Sensors []string `json:"sensors"`
}

type outbound struct {
	sensorID string
	payload  []byte
}
