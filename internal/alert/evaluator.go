package alert

import (
	"strconv"
	"time"

	"codeberg.org/mutker/sensorhub/internal/sensor"
	"github.com/google/uuid"
)

// ThresholdEvaluator applies the critical and warning bands. The info tier
// is carried for display only and never raises an alert.
type ThresholdEvaluator struct {
	thresholds Thresholds
	now        func() time.Time
	newID      func() string
}

type EvaluatorOption func(*ThresholdEvaluator)

func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *ThresholdEvaluator) {
		e.now = now
	}
}

func WithIDGenerator(fn func() string) EvaluatorOption {
	return func(e *ThresholdEvaluator) {
		e.newID = fn
	}
}

func NewEvaluator(thresholds Thresholds, opts ...EvaluatorOption) *ThresholdEvaluator {
	e := &ThresholdEvaluator{
		thresholds: thresholds.Clone(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate returns at most one threshold alert for the reading.
func (e *ThresholdEvaluator) Evaluate(device sensor.Device, reading sensor.Reading) []Alert {
	tiers, ok := e.thresholds[device.Type]
	if !ok {
		return nil
	}

	var severity Severity
	switch {
	case !tiers.Critical.Contains(reading.Value):
		severity = SeverityCritical
	case !tiers.Warning.Contains(reading.Value):
		severity = SeverityWarning
	default:
		return nil
	}

	return []Alert{{
		ID:        e.newID(),
		SensorID:  device.ID,
		Kind:      KindThresholdExceeded,
		Severity:  severity,
		Message:   Message(device.Name, reading.Value, reading.Unit),
		Timestamp: e.now(),
	}}
}

// ConnectionLost builds the alert raised when a device drops into error.
func (e *ThresholdEvaluator) ConnectionLost(device sensor.Device) Alert {
	return Alert{
		ID:        e.newID(),
		SensorID:  device.ID,
		Kind:      KindConnectionLost,
		Severity:  SeverityHigh,
		Message:   device.Name + ": connection lost",
		Timestamp: e.now(),
	}
}

// Message formats "<name>: <value> <unit>".
func Message(name string, value float64, unit string) string {
	return name + ": " + strconv.FormatFloat(value, 'f', -1, 64) + " " + unit
}
