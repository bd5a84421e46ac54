package archive

import (
	"time"

	"codeberg.org/mutker/sensorhub/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/sensorhub/readings.db"
	defaultBatchSize    = 100
	defaultBatchTimeout = 5 * time.Second
	defaultRetention    = 30
	backupDirName       = "backups"
)

type Config struct {
	DBPath        string
	BatchSize     int
	BatchTimeout  time.Duration
	RetentionDays int
	Enabled       bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:        defaultDBPath,
		BatchSize:     defaultBatchSize,
		BatchTimeout:  defaultBatchTimeout,
		RetentionDays: defaultRetention,
		Enabled:       false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate when the archive is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize <= 0 || c.BatchTimeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			BatchSize    int
			BatchTimeout time.Duration
		}{
			BatchSize:    c.BatchSize,
			BatchTimeout: c.BatchTimeout,
		})
	}
	if c.RetentionDays < 0 {
		return errFactory.WithData(ErrInvalidConfig, c.RetentionDays)
	}

	return nil
}

// RetentionCutoff returns the oldest timestamp still retained at now. A
// zero retention keeps everything and returns the zero time.
func (c Config) RetentionCutoff(now time.Time) time.Time {
	if c.RetentionDays == 0 {
		return time.Time{}
	}

	return now.AddDate(0, 0, -c.RetentionDays)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
