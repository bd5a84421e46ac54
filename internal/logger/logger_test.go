package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"github.com/stretchr/testify/assert"
)

var _ logger.Logger = logger.New("test")

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel("info"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, logger.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel("bogus"))
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", true)
	defer logger.InitWithWriter(&bytes.Buffer{}, "info", true)

	log := logger.New("history")
	log.Info().Int("capacity", 3).Msg("ring created")

	out := buf.String()
	assert.Contains(t, out, "ring created")
	assert.Contains(t, out, "component=history")
	assert.Contains(t, out, "capacity=3")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "error", true)
	defer logger.InitWithWriter(&bytes.Buffer{}, "info", true)

	logger.Info().Msg("hidden")
	logger.ErrorWithCode(errors.New().New(errors.ErrTimeout)).Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "operation_timeout")
}
