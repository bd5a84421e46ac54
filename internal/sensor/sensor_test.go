package sensor_test

import (
	"testing"

	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfilesComplete(t *testing.T) {
	profiles := sensor.DefaultProfiles()
	require.NoError(t, profiles.Validate())
	assert.Len(t, profiles, len(sensor.Types()))

	temp, ok := profiles.Lookup(sensor.Temperature)
	require.True(t, ok)
	assert.Equal(t, "°C", temp.Unit)
	assert.True(t, temp.Declared.Contains(85))
	assert.False(t, temp.Declared.Contains(85.1))
}

func TestProfilesValidateMissing(t *testing.T) {
	profiles := sensor.DefaultProfiles()
	delete(profiles, sensor.Sound)

	err := profiles.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrMissingProfile))
}

func TestProfilesValidateUnknownType(t *testing.T) {
	profiles := sensor.DefaultProfiles()
	profiles[sensor.Type("radiation")] = sensor.Profile{}

	err := profiles.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrUnknownType))
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to sensor.Status
		ok       bool
	}{
		{sensor.StatusDisconnected, sensor.StatusConnecting, true},
		{sensor.StatusDisconnected, sensor.StatusConnected, false},
		{sensor.StatusConnecting, sensor.StatusConnected, true},
		{sensor.StatusConnected, sensor.StatusReading, true},
		{sensor.StatusReading, sensor.StatusConnected, true},
		{sensor.StatusReading, sensor.StatusError, true},
		{sensor.StatusError, sensor.StatusReading, false},
		{sensor.StatusConnected, sensor.StatusDisconnected, true},
		{sensor.StatusConnected, sensor.StatusConnected, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStatusIngesting(t *testing.T) {
	assert.True(t, sensor.StatusConnected.Ingesting())
	assert.True(t, sensor.StatusReading.Ingesting())
	assert.False(t, sensor.StatusConnecting.Ingesting())
	assert.False(t, sensor.StatusError.Ingesting())
	assert.False(t, sensor.StatusDisconnected.Ingesting())
}
