package aggregator

import (
	"context"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/sensor"
)

// Update is the snapshot published after every accepted reading.
type Update struct {
	SensorID   string            `json:"sensor_id"`
	Current    sensor.Reading    `json:"current"`
	History    []sensor.Reading  `json:"history"`
	Statistics sensor.Statistics `json:"statistics"`
}

// UpdateFunc receives published snapshots. It runs inside the sensor's
// critical section and must not ingest for the same sensor.
type UpdateFunc func(Update)

// AlertFunc receives newly raised alerts.
type AlertFunc func(alert.Alert)

// Recorder persists accepted readings outside the rolling window.
type Recorder interface {
	Record(ctx context.Context, rec sensor.Record) error
}

// Archive is a Recorder that can also answer range queries.
type Archive interface {
	Recorder
	Query(ctx context.Context, sensorIDs []string, from, to time.Time) ([]sensor.Record, error)
}

// AlertArchive answers range queries over archived alerts.
type AlertArchive interface {
	Alerts(ctx context.Context, from, to time.Time) ([]alert.Alert, error)
}

// ExportRequest selects readings for export. Empty SensorIDs means every
// sensor; zero From or To leaves that side unbounded.
type ExportRequest struct {
	SensorIDs []string  `json:"sensor_ids"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

func (r ExportRequest) includes(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}

	return true
}

// LowBatteryLevel is the percentage below which a low_battery alert is raised.
const LowBatteryLevel = 20
