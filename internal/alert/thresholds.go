package alert

import (
	"fmt"

	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/sensor"
)

const (
	TierCritical = "critical"
	TierWarning  = "warning"
	TierInfo     = "info"
)

// Band is an inclusive acceptable range.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Tiers holds the three bands configured for one sensor type.
type Tiers struct {
	Critical Band `json:"critical"`
	Warning  Band `json:"warning"`
	Info     Band `json:"info"`
}

// Band returns the band for a named tier.
func (t Tiers) Band(tier string) (Band, bool) {
	switch tier {
	case TierCritical:
		return t.Critical, true
	case TierWarning:
		return t.Warning, true
	case TierInfo:
		return t.Info, true
	default:
		return Band{}, false
	}
}

// SetBand replaces the band for a named tier.
func (t *Tiers) SetBand(tier string, b Band) error {
	switch tier {
	case TierCritical:
		t.Critical = b
	case TierWarning:
		t.Warning = b
	case TierInfo:
		t.Info = b
	default:
		return errors.New().WithData(ErrUnknownTier, tier)
	}

	return nil
}

// Thresholds maps each sensor type to its tiers.
type Thresholds map[sensor.Type]Tiers

func DefaultThresholds() Thresholds {
	return Thresholds{
		sensor.Temperature: {Critical: Band{-10, 50}, Warning: Band{0, 40}, Info: Band{10, 30}},
		sensor.Humidity:    {Critical: Band{10, 90}, Warning: Band{20, 80}, Info: Band{30, 70}},
		sensor.Pressure:    {Critical: Band{950, 1050}, Warning: Band{970, 1030}, Info: Band{990, 1020}},
		sensor.Motion:      {Critical: Band{0, 1}, Warning: Band{0, 1}, Info: Band{0, 1}},
		sensor.Light:       {Critical: Band{0, 10000}, Warning: Band{50, 5000}, Info: Band{100, 2000}},
		sensor.Sound:       {Critical: Band{0, 100}, Warning: Band{20, 85}, Info: Band{30, 70}},
		sensor.AirQuality:  {Critical: Band{0, 300}, Warning: Band{0, 150}, Info: Band{0, 100}},
		sensor.Proximity:   {Critical: Band{0, 400}, Warning: Band{5, 300}, Info: Band{10, 200}},
	}
}

func (t Thresholds) Clone() Thresholds {
	out := make(Thresholds, len(t))
	for k, v := range t {
		out[k] = v
	}

	return out
}

// Validate requires exactly one entry per sensor type with well-formed bands.
func (t Thresholds) Validate() error {
	errFactory := errors.New()

	for typ := range t {
		if !typ.IsValid() {
			return errFactory.WithData(sensor.ErrUnknownType, typ)
		}
	}

	for _, typ := range sensor.Types() {
		tiers, ok := t[typ]
		if !ok {
			return errFactory.WithData(ErrMissingThresholds, typ)
		}
		for _, tier := range []string{TierCritical, TierWarning, TierInfo} {
			b, _ := tiers.Band(tier)
			if b.Min > b.Max {
				return errFactory.WithData(ErrInvalidBand, fmt.Sprintf("%s.%s", typ, tier))
			}
		}
	}

	return nil
}
