package api

import (
	"net/http"

	"codeberg.org/mutker/sensorhub/internal/aggregator"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	"github.com/gin-gonic/gin"
)

const (
	ErrBadRequest = errors.ErrorCode("api_bad_request")
	ErrNotFound   = errors.ErrorCode("api_not_found")
)

var statusByCode = map[errors.ErrorCode]int{
	ErrBadRequest:                  http.StatusBadRequest,
	ErrNotFound:                    http.StatusNotFound,
	aggregator.ErrUnknownSensor:    http.StatusNotFound,
	aggregator.ErrAlertNotFound:    http.StatusNotFound,
	aggregator.ErrAlreadyConnected: http.StatusConflict,
	aggregator.ErrNotIngesting:     http.StatusConflict,
	errors.ErrResourceBusy:         http.StatusConflict,
	aggregator.ErrInvalidDevice:    http.StatusBadRequest,
	aggregator.ErrInvalidValue:     http.StatusBadRequest,
	aggregator.ErrOutOfRange:       http.StatusBadRequest,
	aggregator.ErrTypeMismatch:     http.StatusBadRequest,
	aggregator.ErrSensorMismatch:   http.StatusBadRequest,
	aggregator.ErrInvalidBattery:   http.StatusBadRequest,
	sensor.ErrInvalidTransition:    http.StatusBadRequest,
	aggregator.ErrImportFailed:     http.StatusUnprocessableEntity,
	aggregator.ErrArchiveDisabled:  http.StatusServiceUnavailable,
	errors.ErrUnavailable:          http.StatusServiceUnavailable,
}

// StatusOf maps a coded error to an HTTP status.
func StatusOf(err error) int {
	if status, ok := statusByCode[errors.CodeOf(err)]; ok {
		return status
	}

	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	status := StatusOf(err)
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.ErrInternal
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"code":  code,
	})
}

func badRequest(c *gin.Context, err error) {
	fail(c, errors.New().Wrap(ErrBadRequest, err))
}
