package archive

import (
	"context"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/sensor"
)

// Archive persists readings and alerts beyond the in-memory window
type Archive interface {
	Record(ctx context.Context, rec sensor.Record) error
	RecordAlert(ctx context.Context, a alert.Alert) error
	Query(ctx context.Context, sensorIDs []string, from, to time.Time) ([]sensor.Record, error)
	Alerts(ctx context.Context, from, to time.Time) ([]alert.Alert, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
	Flush() error
	Close() error
}
