package archive

import "codeberg.org/mutker/sensorhub/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("archive_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("archive_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("archive_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("archive_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("archive_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitArchive
	ErrStorageClose = errors.ErrCloseArchive
	ErrQueryFailed  = errors.ErrorCode("archive_query_failed")
	ErrPurgeFailed  = errors.ErrorCode("archive_purge_failed")
	ErrClosed       = errors.ErrorCode("archive_closed")

	// Record Errors
	ErrInvalidRecord = errors.ErrorCode("archive_invalid_record")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
