package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"codeberg.org/mutker/sensorhub/internal/errors"
	"github.com/stretchr/testify/assert"
)

var (
	_ errors.Factory = errors.New()
	_ errors.Error   = errors.New().New(errors.ErrInternal)
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrInvalidLogLevel)
	assert.Equal(t, "Invalid log level", err.Error())
	assert.Equal(t, errors.ErrInvalidLogLevel, err.Code())

	wrapped := errFactory.Wrap(errors.ErrReadConfig, stderrors.New("boom"))
	assert.Equal(t, "Failed to read config file: boom", wrapped.Error())

	custom := errFactory.WithMessage(errors.ErrorCode("custom_code"), "custom")
	assert.Equal(t, "custom", custom.Error())

	unknown := errFactory.New(errors.ErrorCode("no_message"))
	assert.Equal(t, "no_message", unknown.Error())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()

	inner := errFactory.New(errors.ErrResourceNotFound)
	outer := errFactory.Wrap(errors.ErrOperationFailed, inner)
	chained := fmt.Errorf("context: %w", outer)

	assert.True(t, errors.HasCode(chained, errors.ErrResourceNotFound))
	assert.True(t, errors.HasCode(chained, errors.ErrOperationFailed))
	assert.False(t, errors.HasCode(chained, errors.ErrTimeout))
	assert.False(t, errors.HasCode(nil, errors.ErrTimeout))
	assert.Equal(t, errors.ErrOperationFailed, errors.CodeOf(chained))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(stderrors.New("plain")))
}
