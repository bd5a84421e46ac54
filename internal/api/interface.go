package api

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/mutker/sensorhub/internal/aggregator"
	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/scheduler"
	"codeberg.org/mutker/sensorhub/internal/sensor"
)

// Sensors is the aggregation service as seen by the HTTP layer.
type Sensors interface {
	Connect(device sensor.Device) error
	SetStatus(id string, status sensor.Status) error
	Disconnect(id string) error
	Remove(id string) error
	ClearData(id string) error
	Ingest(ctx context.Context, sensorID string, typ sensor.Type, reading sensor.Reading) error
	ReportBattery(id string, level int) error
	Device(id string) (sensor.Device, bool)
	Devices() []sensor.Device
	History(id string) ([]sensor.Reading, bool)
	Statistics(id string) (sensor.Statistics, bool)
	Current(id string) (sensor.Reading, bool)

	Alerts(filter alert.Filter) []alert.Alert
	AcknowledgeAlert(id string) error
	ClearAlert(id string)
	ClearAllAlerts()
	AlertCounts() alert.Counts
	ArchivedAlerts(ctx context.Context, from, to time.Time) ([]alert.Alert, error)

	Export(req aggregator.ExportRequest) []sensor.Record
	ExportArchive(ctx context.Context, req aggregator.ExportRequest) ([]sensor.Record, error)
	Import(ctx context.Context, records []sensor.Record) (int, error)
}

// Simulator drives simulated devices. Optional.
type Simulator interface {
	Start(ctx context.Context, device sensor.Device, interval time.Duration) error
	Stop(id string)
}

// Jobs lists scheduled maintenance jobs. Optional.
type Jobs interface {
	Jobs() []scheduler.Job
}

type Deps struct {
	Sensors   Sensors
	Simulator Simulator
	Jobs      Jobs
	Stream    http.Handler
}

type Config struct {
	AllowOrigins []string
	Version      string
}

// minIntervalMS is the fastest simulation cadence a client may request.
const minIntervalMS = 100

type connectRequest struct {
	sensor.Device
	Simulate   bool  `json:"simulate"`
	IntervalMS int64 `json:"interval_ms"`
}

type statusRequest struct {
	Status sensor.Status `json:"status" binding:"required"`
}

type batteryRequest struct {
	Level *int `json:"level" binding:"required"`
}

type readingRequest struct {
	Type      sensor.Type    `json:"type" binding:"required"`
	Value     *float64       `json:"value" binding:"required"`
	Unit      string         `json:"unit"`
	Quality   sensor.Quality `json:"quality"`
	Timestamp time.Time      `json:"timestamp"`
}
