// Package archive keeps a durable sqlite copy of accepted readings and
// raised alerts.
package archive

import (
	"context"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"codeberg.org/mutker/sensorhub/internal/sensor"
)

// No-op implementation
type noopArchive struct{}

// NewService opens the archive, or returns a no-op archive when disabled.
func NewService(cfg Config, log logger.Logger) (Archive, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Archive disabled, using no-op archive")
		return &noopArchive{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create archive repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Int("retention_days", cfg.RetentionDays).
		Msg("Archive initialized successfully")

	return repo, nil
}

func (*noopArchive) Record(_ context.Context, _ sensor.Record) error {
	return nil
}

func (*noopArchive) RecordAlert(_ context.Context, _ alert.Alert) error {
	return nil
}

func (*noopArchive) Query(_ context.Context, _ []string, _, _ time.Time) ([]sensor.Record, error) {
	return nil, nil
}

func (*noopArchive) Alerts(_ context.Context, _, _ time.Time) ([]alert.Alert, error) {
	return nil, nil
}

func (*noopArchive) Purge(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (*noopArchive) Flush() error {
	return nil
}

func (*noopArchive) Close() error {
	return nil
}
