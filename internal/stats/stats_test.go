package stats_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/sensorhub/internal/sensor"
	"codeberg.org/mutker/sensorhub/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func series(values ...float64) []sensor.Reading {
	out := make([]sensor.Reading, len(values))
	for i, v := range values {
		out[i] = sensor.Reading{SensorID: "s1", Timestamp: base.Add(time.Duration(i) * time.Second), Value: v}
	}
	return out
}

func TestComputeEmpty(t *testing.T) {
	assert.Equal(t, sensor.Statistics{Trend: sensor.TrendStable}, stats.Compute(nil))
}

func TestCompute(t *testing.T) {
	got := stats.Compute(series(10, 20, 36))

	assert.Equal(t, 10.0, got.Min)
	assert.Equal(t, 36.0, got.Max)
	assert.InDelta(t, 22.0, got.Average, 1e-9)
	assert.Equal(t, sensor.TrendStable, got.Trend)
}

func TestComputeBounds(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"mixed", []float64{3.5, -2, 7.25, 0, 7.25, 1, -2}},
		{"repeated decimal", []float64{0.1, 0.1, 0.1}},
		{"repeated tenths", []float64{20.3, 20.3, 20.3, 20.3, 20.3, 20.3, 20.3}},
		{"single", []float64{-0.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readings := series(tt.values...)
			got := stats.Compute(readings)

			for _, r := range readings {
				assert.LessOrEqual(t, got.Min, r.Value)
				assert.GreaterOrEqual(t, got.Max, r.Value)
			}
			assert.GreaterOrEqual(t, got.Average, got.Min)
			assert.LessOrEqual(t, got.Average, got.Max)
		})
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   sensor.Trend
	}{
		{"fewer than five", []float64{1, 100, 1000, 10000}, sensor.TrendStable},
		{"rising", []float64{10, 10, 10, 15, 20}, sensor.TrendRising},
		{"falling", []float64{20, 20, 15, 10, 10}, sensor.TrendFalling},
		{"within five percent", []float64{100, 100, 50, 104, 104}, sensor.TrendStable},
		{"only newest five count", []float64{1, 1, 1, 10, 10, 10, 10, 10}, sensor.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stats.Trend(series(tt.values...)))
		})
	}
}

func TestSummarize(t *testing.T) {
	s := stats.Summarize(series(1, 2, 3))
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 3.0, s.Latest)
	assert.Equal(t, 2.0, s.Average)

	empty := stats.Summarize(nil)
	assert.Equal(t, 0, empty.Count)
	assert.Equal(t, sensor.TrendStable, empty.Trend)
}

func TestAnomalies(t *testing.T) {
	assert.Nil(t, stats.Anomalies(series(1, 100), stats.DefaultZThreshold))
	assert.Nil(t, stats.Anomalies(series(5, 5, 5, 5), stats.DefaultZThreshold))

	got := stats.Anomalies(series(10, 10, 10, 10, 10, 10, 10, 10, 10, 50), stats.DefaultZThreshold)
	require.Len(t, got, 1)
	assert.Equal(t, 50.0, got[0].Value)
}

func TestSmooth(t *testing.T) {
	got := stats.Smooth(series(1, 2, 3, 4, 5, 6), 3)
	require.Len(t, got, 4)
	assert.Equal(t, []float64{2, 3, 4, 5}, []float64{got[0].Value, got[1].Value, got[2].Value, got[3].Value})
	assert.Equal(t, base.Add(2*time.Second), got[0].Timestamp)

	short := series(1, 2)
	assert.Equal(t, short, stats.Smooth(short, 5))
}

func TestDownsample(t *testing.T) {
	readings := series(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	got := stats.Downsample(readings, 4)
	require.Len(t, got, 4)
	assert.Equal(t, []float64{0, 3, 6, 9}, []float64{got[0].Value, got[1].Value, got[2].Value, got[3].Value})

	assert.Len(t, stats.Downsample(readings, 20), 10)
}

func TestChangeRate(t *testing.T) {
	r := series(10, 14)
	assert.InDelta(t, 4.0, stats.ChangeRate(r[0], r[1]), 1e-9)
	assert.Equal(t, 0.0, stats.ChangeRate(r[1], r[0]))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.24, stats.Round(1.2449, 2))
	assert.Equal(t, 1013.0, stats.Round(1012.6, 0))
}
