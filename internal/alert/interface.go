package alert

import (
	"time"

	"codeberg.org/mutker/sensorhub/internal/sensor"
)

type Kind string

const (
	KindThresholdExceeded Kind = "threshold_exceeded"
	KindConnectionLost    Kind = "connection_lost"
	KindLowBattery        Kind = "low_battery"
	KindCustom            Kind = "custom"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
)

// Severities returns every severity level, most urgent first.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityWarning, SeverityMedium, SeverityLow, SeverityInfo}
}

func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// Alert is a notable condition raised for a sensor.
type Alert struct {
	ID           string    `json:"id"`
	SensorID     string    `json:"sensor_id"`
	Kind         Kind      `json:"type"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

// Filter narrows List results. Nil fields match everything.
type Filter struct {
	Severity     *Severity
	Acknowledged *bool
}

func (f Filter) matches(a Alert) bool {
	if f.Severity != nil && a.Severity != *f.Severity {
		return false
	}
	if f.Acknowledged != nil && a.Acknowledged != *f.Acknowledged {
		return false
	}

	return true
}

// Counts summarizes the store contents.
type Counts struct {
	Total      int              `json:"total"`
	Unread     int              `json:"unread"`
	BySeverity map[Severity]int `json:"by_severity"`
}

// Evaluator decides whether a reading breaches its sensor's thresholds.
type Evaluator interface {
	Evaluate(device sensor.Device, reading sensor.Reading) []Alert
}
