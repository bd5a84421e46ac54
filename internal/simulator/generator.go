// Package simulator produces plausible readings for devices that have no
// hardware behind them.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"codeberg.org/mutker/sensorhub/internal/sensor"
	"codeberg.org/mutker/sensorhub/internal/stats"
)

const variationRatio = 0.1

// Rand is the randomness source, uniform on [0, 1).
type Rand interface {
	Float64() float64
}

type Generator struct {
	profiles sensor.Profiles
	rand     Rand
	now      func() time.Time
}

type Option func(*Generator)

func WithRand(r Rand) Option {
	return func(g *Generator) {
		g.rand = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func WithProfiles(p sensor.Profiles) Option {
	return func(g *Generator) {
		g.profiles = p
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		profiles: sensor.DefaultProfiles(),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // simulated data
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Next draws a reading for the sensor. With a previous value the result
// drifts by at most 5% of the simulation range and stays inside it;
// without one it is uniform over the range.
func (g *Generator) Next(sensorID string, typ sensor.Type, previous *float64) sensor.Reading {
	profile, ok := g.profiles.Lookup(typ)
	if !ok {
		return sensor.Reading{SensorID: sensorID, Timestamp: g.now()}
	}

	lo, hi := profile.Simulation.Min, profile.Simulation.Max

	var value float64
	if previous != nil {
		variation := (hi - lo) * variationRatio
		change := (g.rand.Float64() - 0.5) * variation
		value = math.Max(lo, math.Min(hi, *previous+change))
	} else {
		value = lo + g.rand.Float64()*(hi-lo)
	}

	return sensor.Reading{
		SensorID:  sensorID,
		Timestamp: g.now(),
		Value:     stats.Round(value, profile.Precision),
		Unit:      profile.Unit,
		Quality:   g.quality(),
	}
}

func (g *Generator) quality() sensor.Quality {
	switch q := g.rand.Float64(); {
	case q > 0.8:
		return sensor.QualityExcellent
	case q > 0.6:
		return sensor.QualityGood
	case q > 0.3:
		return sensor.QualityFair
	default:
		return sensor.QualityPoor
	}
}

// Interval returns the profile cadence for a type.
func (g *Generator) Interval(typ sensor.Type) time.Duration {
	if profile, ok := g.profiles.Lookup(typ); ok {
		return profile.Interval
	}

	return time.Second
}
