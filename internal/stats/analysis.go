package stats

import (
	"math"

	"codeberg.org/mutker/sensorhub/internal/sensor"
)

const (
	DefaultZThreshold   = 2.0
	DefaultSmoothWindow = 5
)

// Anomalies returns the readings whose z-score exceeds threshold. At least
// three readings are needed, and a flat series has no anomalies.
func Anomalies(readings []sensor.Reading, threshold float64) []sensor.Reading {
	if len(readings) < 3 {
		return nil
	}

	avg := mean(readings)
	variance := 0.0
	for _, r := range readings {
		variance += (r.Value - avg) * (r.Value - avg)
	}
	stdDev := math.Sqrt(variance / float64(len(readings)))
	if stdDev == 0 {
		return nil
	}

	var out []sensor.Reading
	for _, r := range readings {
		if math.Abs(r.Value-avg)/stdDev > threshold {
			out = append(out, r)
		}
	}

	return out
}

// Smooth applies a simple moving average. The result starts at the first
// full window; inputs shorter than the window are returned unchanged.
func Smooth(readings []sensor.Reading, window int) []sensor.Reading {
	if window < 1 {
		window = DefaultSmoothWindow
	}
	if len(readings) < window {
		return append([]sensor.Reading(nil), readings...)
	}

	out := make([]sensor.Reading, 0, len(readings)-window+1)
	sum := 0.0
	for i, r := range readings {
		sum += r.Value
		if i >= window {
			sum -= readings[i-window].Value
		}
		if i < window-1 {
			continue
		}
		smoothed := r
		smoothed.Value = Round(sum/float64(window), 2)
		out = append(out, smoothed)
	}

	return out
}

// Downsample keeps every ceil(n/maxPoints)-th reading.
func Downsample(readings []sensor.Reading, maxPoints int) []sensor.Reading {
	if maxPoints <= 0 || len(readings) <= maxPoints {
		return append([]sensor.Reading(nil), readings...)
	}

	step := (len(readings) + maxPoints - 1) / maxPoints
	out := make([]sensor.Reading, 0, maxPoints)
	for i := 0; i < len(readings); i += step {
		out = append(out, readings[i])
	}

	return out
}

// ChangeRate returns the value change per second between two readings, or
// zero when cur is not later than prev.
func ChangeRate(prev, cur sensor.Reading) float64 {
	dt := cur.Timestamp.Sub(prev.Timestamp).Seconds()
	if dt <= 0 {
		return 0
	}

	return (cur.Value - prev.Value) / dt
}
