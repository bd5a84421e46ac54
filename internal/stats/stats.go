// Package stats derives summary values from a window of readings.
package stats

import (
	"math"

	"codeberg.org/mutker/sensorhub/internal/sensor"
)

const (
	trendWindow  = 5
	trendSamples = 2
	risingRatio  = 1.05
	fallingRatio = 0.95
)

// Compute returns min, max, average and trend for the window. An empty
// window yields zeros and a stable trend. The average is clamped to
// [min, max] against summation rounding.
func Compute(readings []sensor.Reading) sensor.Statistics {
	if len(readings) == 0 {
		return sensor.Statistics{Trend: sensor.TrendStable}
	}

	minV, maxV, sum := readings[0].Value, readings[0].Value, 0.0
	for _, r := range readings {
		minV = math.Min(minV, r.Value)
		maxV = math.Max(maxV, r.Value)
		sum += r.Value
	}

	return sensor.Statistics{
		Min:     minV,
		Max:     maxV,
		Average: math.Max(minV, math.Min(maxV, sum/float64(len(readings)))),
		Trend:   Trend(readings),
	}
}

// Trend compares the first and last two of the newest five readings.
// Fewer than five readings are always stable.
func Trend(readings []sensor.Reading) sensor.Trend {
	if len(readings) < trendWindow {
		return sensor.TrendStable
	}

	recent := readings[len(readings)-trendWindow:]
	first := mean(recent[:trendSamples])
	second := mean(recent[len(recent)-trendSamples:])

	switch {
	case second > first*risingRatio:
		return sensor.TrendRising
	case second < first*fallingRatio:
		return sensor.TrendFalling
	default:
		return sensor.TrendStable
	}
}

func mean(readings []sensor.Reading) float64 {
	if len(readings) == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range readings {
		sum += r.Value
	}

	return sum / float64(len(readings))
}

// Summary extends Statistics with the sample count and newest value.
type Summary struct {
	sensor.Statistics
	Count  int     `json:"count"`
	Latest float64 `json:"latest"`
}

func Summarize(readings []sensor.Reading) Summary {
	s := Summary{Statistics: Compute(readings), Count: len(readings)}
	if len(readings) > 0 {
		s.Latest = readings[len(readings)-1].Value
	}

	return s
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	p := math.Pow10(places)

	return math.Round(v*p) / p
}
