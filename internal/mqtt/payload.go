package mqtt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/sensor"
)

// Timestamp accepts either epoch milliseconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}

	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	t.Time = time.UnixMilli(ms).UTC()

	return nil
}

// Payload is the JSON body a device publishes.
type Payload struct {
	SensorID  string         `json:"sensor_id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Type      sensor.Type    `json:"type"`
	Value     *float64       `json:"value"`
	Unit      string         `json:"unit,omitempty"`
	Quality   sensor.Quality `json:"quality,omitempty"`
	Timestamp Timestamp      `json:"timestamp"`
	Battery   *int           `json:"battery,omitempty"`
}

// Message is a decoded device publication.
type Message struct {
	SensorID string
	Name     string
	Type     sensor.Type
	Reading  sensor.Reading
	Battery  *int
}

// SensorIDFromTopic extracts the segment matched by the single-level
// wildcard in pattern.
func SensorIDFromTopic(pattern, topic string) (string, bool) {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")
	if len(patternParts) != len(topicParts) {
		return "", false
	}

	id := ""
	for i, p := range patternParts {
		switch p {
		case "+":
			if id != "" || topicParts[i] == "" {
				return "", false
			}
			id = topicParts[i]
		default:
			if p != topicParts[i] {
				return "", false
			}
		}
	}

	return id, id != ""
}

// Decode parses a publication on topic. The topic's sensor id wins over
// any id in the payload.
func Decode(pattern, topic string, body []byte) (Message, error) {
	errFactory := errors.New()

	id, ok := SensorIDFromTopic(pattern, topic)
	if !ok {
		return Message{}, errFactory.WithData(ErrInvalidTopic, topic)
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Message{}, errFactory.Wrap(ErrInvalidPayload, err)
	}
	if p.Value == nil {
		return Message{}, errFactory.WithMessage(ErrInvalidPayload, "missing value")
	}
	if !p.Type.IsValid() {
		return Message{}, errFactory.WithData(ErrInvalidPayload, p.Type)
	}
	if p.SensorID != "" && p.SensorID != id {
		return Message{}, errFactory.WithData(ErrInvalidPayload, "sensor_id "+p.SensorID+" on topic "+topic)
	}

	return Message{
		SensorID: id,
		Name:     p.Name,
		Type:     p.Type,
		Reading: sensor.Reading{
			SensorID:  id,
			Timestamp: p.Timestamp.Time,
			Value:     *p.Value,
			Unit:      p.Unit,
			Quality:   p.Quality,
		},
		Battery: p.Battery,
	}, nil
}
