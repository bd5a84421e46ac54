package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"
	ErrUnavailable     ErrorCode = "service_unavailable"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig          ErrorCode = "invalid_configuration"
	ErrMissingConfig          ErrorCode = "missing_configuration"
	ErrBindFlags              ErrorCode = "bind_flags_failed"
	ErrReadConfig             ErrorCode = "read_config_failed"
	ErrInvalidInterval        ErrorCode = "invalid_interval"
	ErrInvalidHistoryCapacity ErrorCode = "invalid_history_capacity"
	ErrInvalidThresholds      ErrorCode = "invalid_thresholds"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Resource errors
	ErrResourceBusy      ErrorCode = "resource_busy"
	ErrResourceNotFound  ErrorCode = "resource_not_found"
	ErrResourceExhausted ErrorCode = "resource_exhausted"

	// Application errors
	ErrInitApp   ErrorCode = "init_app_failed"
	ErrMainLoop  ErrorCode = "main_loop_failed"
	ErrStartHTTP ErrorCode = "start_http_failed"

	// Operation errors
	ErrOperationFailed  ErrorCode = "operation_failed"
	ErrTimeout          ErrorCode = "operation_timeout"
	ErrInvalidOperation ErrorCode = "invalid_operation"

	// Archive errors
	ErrInitArchive    ErrorCode = "init_archive_failed"
	ErrRecordArchive  ErrorCode = "record_archive_failed"
	ErrCloseArchive   ErrorCode = "close_archive_failed"
	ErrInitTransport  ErrorCode = "init_transport_failed"
	ErrCloseTransport ErrorCode = "close_transport_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:               "Internal error occurred",
	ErrInvalidArgument:        "Invalid argument provided",
	ErrNotImplemented:         "Operation not implemented",
	ErrUnavailable:            "Service unavailable",
	ErrAlreadyRunning:         "Another instance is already running",
	ErrInvalidConfig:          "Invalid configuration",
	ErrMissingConfig:          "Missing configuration",
	ErrBindFlags:              "Failed to bind flags",
	ErrReadConfig:             "Failed to read config file",
	ErrInvalidInterval:        "Invalid interval value",
	ErrInvalidHistoryCapacity: "Invalid history capacity",
	ErrInvalidThresholds:      "Invalid alert thresholds",
	ErrInvalidLogLevel:        "Invalid log level",
	ErrInitFailed:             "Initialization failed",
	ErrShutdownFailed:         "Shutdown failed",
	ErrResourceBusy:           "Resource is busy",
	ErrResourceNotFound:       "Resource not found",
	ErrResourceExhausted:      "Resource exhausted",
	ErrInitApp:                "Failed to initialize application",
	ErrMainLoop:               "Error in main loop",
	ErrStartHTTP:              "Failed to start HTTP server",
	ErrOperationFailed:        "Operation failed",
	ErrTimeout:                "Operation timed out",
	ErrInvalidOperation:       "Invalid operation",
	ErrInitArchive:            "Failed to initialize archive",
	ErrRecordArchive:          "Failed to record archive data",
	ErrCloseArchive:           "Failed to close archive connection",
	ErrInitTransport:          "Failed to initialize transport",
	ErrCloseTransport:         "Failed to close transport",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
