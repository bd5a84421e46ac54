package alert

import "codeberg.org/mutker/sensorhub/internal/errors"

const (
	ErrMissingThresholds = errors.ErrorCode("alert_missing_thresholds")
	ErrInvalidBand       = errors.ErrorCode("alert_invalid_band")
	ErrUnknownTier       = errors.ErrorCode("alert_unknown_tier")
)
