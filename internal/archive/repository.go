package archive

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	readings      []sensor.Record
	alerts        []alert.Alert
	closed        bool
	flushTicker   *time.Ticker
	flushChan     chan struct{}
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

func NewRepository(cfg Config, log logger.Logger) (Archive, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	// Open database with specific pragmas for better performance and safety
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, filepath.Join(dir, backupDirName), log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Archive repository initialized")

	repo := &repository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		readings:      make([]sensor.Record, 0, cfg.BatchSize),
		flushChan:     make(chan struct{}, 1),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(cfg.BatchTimeout)
	}
	go repo.flusher()

	return repo, nil
}

func (r *repository) Record(ctx context.Context, rec sensor.Record) error {
	errFactory := errors.New()

	if rec.SensorID == "" || math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0) {
		return errFactory.WithData(ErrInvalidRecord, rec.SensorID)
	}
	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(ErrOperationTimeout, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errFactory.New(ErrClosed)
	}

	r.readings = append(r.readings, rec)
	if len(r.readings) >= r.cfg.BatchSize {
		r.requestFlush()
	}

	return nil
}

// RecordAlert stores or updates an alert. Alerts are buffered with readings
// and written in the order they were recorded.
func (r *repository) RecordAlert(ctx context.Context, a alert.Alert) error {
	errFactory := errors.New()

	if a.ID == "" {
		return errFactory.New(ErrInvalidRecord)
	}
	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(ErrOperationTimeout, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errFactory.New(ErrClosed)
	}

	r.alerts = append(r.alerts, a)
	if len(r.alerts) >= r.cfg.BatchSize {
		r.requestFlush()
	}

	return nil
}

// Query returns archived readings in time order. Buffered readings are
// flushed first so the result includes everything recorded so far.
func (r *repository) Query(ctx context.Context, sensorIDs []string, from, to time.Time) ([]sensor.Record, error) {
	errFactory := errors.New()

	if err := r.Flush(); err != nil {
		return nil, err
	}

	query := selectReadingsSQL
	args := []interface{}{lowerBound(from), upperBound(to)}
	if len(sensorIDs) > 0 {
		query += " AND sensor_id IN (?" + strings.Repeat(", ?", len(sensorIDs)-1) + ")"
		for _, id := range sensorIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY timestamp, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var records []sensor.Record
	for rows.Next() {
		var (
			rec sensor.Record
			typ string
			ts  int64
		)
		if err := rows.Scan(&rec.SensorID, &rec.SensorName, &typ, &ts, &rec.Value, &rec.Unit); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		rec.SensorType = sensor.Type(typ)
		rec.Timestamp = time.UnixMilli(ts).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return records, nil
}

// Alerts returns archived alerts, newest first.
func (r *repository) Alerts(ctx context.Context, from, to time.Time) ([]alert.Alert, error) {
	errFactory := errors.New()

	if err := r.Flush(); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, selectAlertsSQL, lowerBound(from), upperBound(to))
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var alerts []alert.Alert
	for rows.Next() {
		var (
			a              alert.Alert
			kind, severity string
			ts             int64
			acknowledged   int
		)
		if err := rows.Scan(&a.ID, &a.SensorID, &kind, &severity, &a.Message, &ts, &acknowledged); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		a.Kind = alert.Kind(kind)
		a.Severity = alert.Severity(severity)
		a.Timestamp = time.UnixMilli(ts).UTC()
		a.Acknowledged = acknowledged == 1
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return alerts, nil
}

// Purge deletes readings and alerts older than before and returns the
// number of rows removed.
func (r *repository) Purge(ctx context.Context, before time.Time) (int64, error) {
	errFactory := errors.New()

	if err := r.Flush(); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errFactory.Wrap(ErrPurgeFailed, err)
	}

	var total int64
	for _, stmt := range []string{purgeReadingsSQL, purgeAlertsSQL} {
		res, err := tx.ExecContext(ctx, stmt, before.UnixMilli())
		if err != nil {
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return 0, errFactory.Wrap(ErrPurgeFailed, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, errFactory.Wrap(ErrPurgeFailed, err)
	}

	r.logger.Debug().
		Int64("rows", total).
		Time("before", before).
		Msg("Purged archive")

	return total, nil
}

func (r *repository) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flush()
}

func (r *repository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	// Signal the flusher goroutine to stop and wait for its final flush
	close(r.shutdownChan)
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}
	<-r.flushDoneChan

	if err := r.Flush(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to flush archive on close")
	}

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Archive repository closed gracefully")

	return nil
}

// requestFlush hands a full batch to the flusher without waiting on disk.
// The caller holds r.mu.
func (r *repository) requestFlush() {
	select {
	case r.flushChan <- struct{}{}:
	default:
	}
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	var tick <-chan time.Time
	if r.flushTicker != nil {
		tick = r.flushTicker.C
	}

	for {
		select {
		case <-tick:
			if err := r.Flush(); err != nil {
				r.logger.Error().Err(err).Msg("Periodic archive flush failed")
			}
		case <-r.flushChan:
			if err := r.Flush(); err != nil {
				r.logger.Error().Err(err).Msg("Batch archive flush failed")
			}
		case <-r.shutdownChan:
			return
		}
	}
}

// flush writes both buffers in one transaction. The caller holds r.mu.
func (r *repository) flush() error {
	if len(r.readings) == 0 && len(r.alerts) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	rollback := func(err error) error {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	if len(r.readings) > 0 {
		stmt, err := tx.Prepare(insertReadingSQL)
		if err != nil {
			r.logger.Error().Err(err).Msg("Failed to prepare statement")
			return rollback(err)
		}
		defer stmt.Close()

		for _, rec := range r.readings {
			if _, err := stmt.Exec(
				rec.SensorID,
				rec.SensorName,
				string(rec.SensorType),
				rec.Timestamp.UnixMilli(),
				rec.Value,
				rec.Unit,
			); err != nil {
				r.logger.Error().Err(err).Msg("Failed to execute insert")
				return rollback(err)
			}
		}
	}

	if len(r.alerts) > 0 {
		stmt, err := tx.Prepare(insertAlertSQL)
		if err != nil {
			r.logger.Error().Err(err).Msg("Failed to prepare statement")
			return rollback(err)
		}
		defer stmt.Close()

		for _, a := range r.alerts {
			if _, err := stmt.Exec(
				a.ID,
				a.SensorID,
				string(a.Kind),
				string(a.Severity),
				a.Message,
				a.Timestamp.UnixMilli(),
				boolToInt(a.Acknowledged),
			); err != nil {
				r.logger.Error().Err(err).Msg("Failed to execute insert")
				return rollback(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().
		Int("readings", len(r.readings)).
		Int("alerts", len(r.alerts)).
		Msg("Flushed archive to database")

	r.readings = r.readings[:0]
	r.alerts = r.alerts[:0]

	return nil
}

func lowerBound(t time.Time) int64 {
	if t.IsZero() {
		return math.MinInt64
	}
	return t.UnixMilli()
}

func upperBound(t time.Time) int64 {
	if t.IsZero() {
		return math.MaxInt64
	}
	return t.UnixMilli()
}
