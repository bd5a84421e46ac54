package mqtt

import "codeberg.org/mutker/sensorhub/internal/errors"

const (
	ErrInvalidTopic   = errors.ErrorCode("mqtt_invalid_topic")
	ErrInvalidPayload = errors.ErrorCode("mqtt_invalid_payload")
	ErrConnect        = errors.ErrInitTransport
	ErrSubscribe      = errors.ErrorCode("mqtt_subscribe_failed")
)
