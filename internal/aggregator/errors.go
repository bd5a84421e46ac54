package aggregator

import "codeberg.org/mutker/sensorhub/internal/errors"

const (
	ErrInvalidDevice    = errors.ErrorCode("aggregator_invalid_device")
	ErrAlreadyConnected = errors.ErrorCode("aggregator_already_connected")
	ErrUnknownSensor    = errors.ErrorCode("aggregator_unknown_sensor")
	ErrNotIngesting     = errors.ErrorCode("aggregator_not_ingesting")
	ErrTypeMismatch     = errors.ErrorCode("aggregator_type_mismatch")
	ErrSensorMismatch   = errors.ErrorCode("aggregator_sensor_mismatch")
	ErrInvalidValue     = errors.ErrorCode("aggregator_invalid_value")
	ErrOutOfRange       = errors.ErrorCode("aggregator_out_of_range")
	ErrAlertNotFound    = errors.ErrorCode("aggregator_alert_not_found")
	ErrArchiveDisabled  = errors.ErrorCode("aggregator_archive_disabled")
	ErrImportFailed     = errors.ErrorCode("aggregator_import_failed")
	ErrInvalidBattery   = errors.ErrorCode("aggregator_invalid_battery")
)
