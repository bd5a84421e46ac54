package sensor

import (
	"time"

	"codeberg.org/mutker/sensorhub/internal/errors"
)

const (
	defaultInterval = 1000 * time.Millisecond
	fastInterval    = 500 * time.Millisecond
	slowInterval    = 2000 * time.Millisecond
)

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Profile holds the static characteristics of a sensor type.
type Profile struct {
	Unit       string
	Declared   Range
	Precision  int
	Interval   time.Duration
	Simulation Range
}

// Profiles maps every type to its profile.
type Profiles map[Type]Profile

var defaultProfiles = Profiles{
	Temperature: {Unit: "°C", Declared: Range{-40, 85}, Precision: 1, Interval: defaultInterval, Simulation: Range{18, 35}},
	Humidity:    {Unit: "%", Declared: Range{0, 100}, Precision: 1, Interval: defaultInterval, Simulation: Range{30, 80}},
	Pressure:    {Unit: "hPa", Declared: Range{300, 1100}, Precision: 2, Interval: defaultInterval, Simulation: Range{980, 1030}},
	Motion:      {Unit: "detected", Declared: Range{0, 1}, Precision: 0, Interval: fastInterval, Simulation: Range{0, 1}},
	Light:       {Unit: "lux", Declared: Range{0, 100000}, Precision: 0, Interval: defaultInterval, Simulation: Range{100, 2000}},
	Sound:       {Unit: "dB", Declared: Range{0, 140}, Precision: 1, Interval: fastInterval, Simulation: Range{30, 80}},
	AirQuality:  {Unit: "AQI", Declared: Range{0, 500}, Precision: 0, Interval: slowInterval, Simulation: Range{20, 150}},
	Proximity:   {Unit: "cm", Declared: Range{0, 400}, Precision: 1, Interval: fastInterval, Simulation: Range{5, 200}},
}

// DefaultProfiles returns a copy of the built-in profile table.
func DefaultProfiles() Profiles {
	out := make(Profiles, len(defaultProfiles))
	for t, p := range defaultProfiles {
		out[t] = p
	}

	return out
}

// Validate checks that every type has exactly one well-formed profile.
func (p Profiles) Validate() error {
	errFactory := errors.New()

	for t := range p {
		if !t.IsValid() {
			return errFactory.WithData(ErrUnknownType, t)
		}
	}

	for _, t := range Types() {
		prof, ok := p[t]
		if !ok {
			return errFactory.WithData(ErrMissingProfile, t)
		}
		if prof.Declared.Min > prof.Declared.Max || prof.Simulation.Min > prof.Simulation.Max {
			return errFactory.WithData(ErrInvalidProfile, t)
		}
		if prof.Precision < 0 || prof.Interval <= 0 {
			return errFactory.WithData(ErrInvalidProfile, t)
		}
	}

	return nil
}

// Lookup returns the profile for t, or false for unknown types.
func (p Profiles) Lookup(t Type) (Profile, bool) {
	prof, ok := p[t]
	return prof, ok
}
