package sensor

import "codeberg.org/mutker/sensorhub/internal/errors"

const (
	ErrUnknownType       = errors.ErrorCode("sensor_unknown_type")
	ErrMissingProfile    = errors.ErrorCode("sensor_missing_profile")
	ErrInvalidProfile    = errors.ErrorCode("sensor_invalid_profile")
	ErrInvalidTransition = errors.ErrorCode("sensor_invalid_transition")
)
