package sensor

import "time"

// Type is the closed set of sensor kinds the engine understands.
type Type string

const (
	Temperature Type = "temperature"
	Humidity    Type = "humidity"
	Pressure    Type = "pressure"
	Motion      Type = "motion"
	Light       Type = "light"
	Sound       Type = "sound"
	AirQuality  Type = "air_quality"
	Proximity   Type = "proximity"
)

// Types returns every sensor type in declaration order.
func Types() []Type {
	return []Type{Temperature, Humidity, Pressure, Motion, Light, Sound, AirQuality, Proximity}
}

// IsValid returns whether the type is one of the known variants
func (t Type) IsValid() bool {
	switch t {
	case Temperature, Humidity, Pressure, Motion, Light, Sound, AirQuality, Proximity:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	return string(t)
}

type ConnectionType string

const (
	Bluetooth ConnectionType = "bluetooth"
	WiFi      ConnectionType = "wifi"
	USB       ConnectionType = "usb"
)

func (c ConnectionType) IsValid() bool {
	switch c {
	case Bluetooth, WiFi, USB:
		return true
	default:
		return false
	}
}

type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// Reading is a single timestamped sample. Values are copied, never shared.
type Reading struct {
	SensorID  string    `json:"sensor_id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Quality   Quality   `json:"quality,omitempty"`
}

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// Statistics is derived from the current history window.
type Statistics struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	Trend   Trend   `json:"trend"`
}

// Device is what the connection layer knows about a sensor.
type Device struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Type           Type           `json:"type"`
	ConnectionType ConnectionType `json:"connection_type"`
	Status         Status         `json:"status"`
	Manufacturer   string         `json:"manufacturer,omitempty"`
	BatteryLevel   *int           `json:"battery_level,omitempty"`
	LastSeen       time.Time      `json:"last_seen,omitempty"`
}

// Record is the flat form of a reading used for export, import and the
// archive.
type Record struct {
	SensorID   string    `json:"sensor_id"`
	SensorName string    `json:"sensor_name"`
	SensorType Type      `json:"sensor_type"`
	Timestamp  time.Time `json:"timestamp"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
}

// NewRecord flattens a reading taken by device.
func NewRecord(device Device, r Reading) Record {
	return Record{
		SensorID:   device.ID,
		SensorName: device.Name,
		SensorType: device.Type,
		Timestamp:  r.Timestamp,
		Value:      r.Value,
		Unit:       r.Unit,
	}
}

// Reading converts the record back into a reading.
func (r Record) Reading() Reading {
	return Reading{
		SensorID:  r.SensorID,
		Timestamp: r.Timestamp,
		Value:     r.Value,
		Unit:      r.Unit,
	}
}
