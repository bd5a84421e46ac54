package archive

import (
	"database/sql"

	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS readings (
	       id          INTEGER PRIMARY KEY AUTOINCREMENT,
	       sensor_id   TEXT NOT NULL,
	       sensor_name TEXT NOT NULL,
	       sensor_type TEXT NOT NULL,
	       timestamp   INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       value       REAL NOT NULL,
	       unit        TEXT NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS idx_readings_sensor_time ON readings (sensor_id, timestamp);
	   CREATE INDEX IF NOT EXISTS idx_readings_time ON readings (timestamp);
	   CREATE TABLE IF NOT EXISTS alerts (
	       id           TEXT PRIMARY KEY,
	       sensor_id    TEXT NOT NULL,
	       type         TEXT NOT NULL,
	       severity     TEXT NOT NULL,
	       message      TEXT NOT NULL,
	       timestamp    INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       acknowledged INTEGER NOT NULL CHECK (acknowledged IN (0, 1))
	   );
	   CREATE INDEX IF NOT EXISTS idx_alerts_time ON alerts (timestamp);`

	insertReadingSQL = `
    INSERT INTO readings (
        sensor_id, sensor_name, sensor_type,
        timestamp, value, unit
    ) VALUES (?, ?, ?, ?, ?, ?)`

	insertAlertSQL = `
    INSERT OR REPLACE INTO alerts (
        id, sensor_id, type, severity,
        message, timestamp, acknowledged
    ) VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectReadingsSQL = `
    SELECT sensor_id, sensor_name, sensor_type, timestamp, value, unit
    FROM readings
    WHERE timestamp >= ? AND timestamp <= ?`

	selectAlertsSQL = `
    SELECT id, sensor_id, type, severity, message, timestamp, acknowledged
    FROM alerts
    WHERE timestamp >= ? AND timestamp <= ?
    ORDER BY timestamp DESC`

	purgeReadingsSQL = `DELETE FROM readings WHERE timestamp < ?`
	purgeAlertsSQL   = `DELETE FROM alerts WHERE timestamp < ?`
)

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				if !errors.Is(err, sql.ErrTxDone) {
					log.Debug().Err(err).Msg("Failed to rollback transaction")
				}
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the current schema version
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}

	return exists, nil
}
