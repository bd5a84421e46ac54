package history_test

import (
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/sensorhub/internal/history"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(v float64) sensor.Reading {
	return sensor.Reading{SensorID: "s1", Timestamp: time.Unix(int64(v), 0), Value: v, Unit: "°C"}
}

func values(readings []sensor.Reading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = r.Value
	}
	return out
}

func TestRingEviction(t *testing.T) {
	r := history.NewRing(3)
	for _, v := range []float64{1, 2, 3, 4} {
		r.Append(reading(v))
	}

	assert.Equal(t, []float64{2, 3, 4}, values(r.Readings()))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, 4.0, last.Value)
}

func TestRingBoundedAfterManyAppends(t *testing.T) {
	r := history.NewRing(5)
	for i := 0; i < 23; i++ {
		r.Append(reading(float64(i)))
		assert.LessOrEqual(t, r.Len(), 5)
	}

	assert.Equal(t, []float64{18, 19, 20, 21, 22}, values(r.Readings()))
}

func TestRingReadingsIsCopy(t *testing.T) {
	r := history.NewRing(2)
	r.Append(reading(1))

	got := r.Readings()
	got[0].Value = 99

	assert.Equal(t, []float64{1}, values(r.Readings()))
}

func TestRingClear(t *testing.T) {
	r := history.NewRing(2)
	r.Append(reading(1))
	r.Append(reading(2))
	r.Clear()

	assert.Empty(t, r.Readings())
	_, ok := r.Last()
	assert.False(t, ok)

	r.Append(reading(3))
	assert.Equal(t, []float64{3}, values(r.Readings()))
}

func TestStore(t *testing.T) {
	s := history.NewStore(3)

	assert.Nil(t, s.Get("s1"))
	for _, v := range []float64{1, 2, 3, 4} {
		s.Append("s1", reading(v))
	}
	s.Append("s2", reading(7))

	assert.Equal(t, []float64{2, 3, 4}, values(s.Get("s1")))
	assert.Equal(t, []float64{7}, values(s.Get("s2")))
	assert.ElementsMatch(t, []string{"s1", "s2"}, s.IDs())

	s.Clear("s1")
	assert.Empty(t, s.Get("s1"))
	assert.NotNil(t, s.Get("s1"))

	s.Remove("s1")
	assert.Nil(t, s.Get("s1"))
	assert.Equal(t, []string{"s2"}, s.IDs())
}

func TestStoreDefaultCapacity(t *testing.T) {
	assert.Equal(t, history.DefaultCapacity, history.NewStore(0).Capacity())
}

func TestStoreConcurrentAppend(t *testing.T) {
	s := history.NewStore(10)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append(id, reading(float64(i)))
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		got := s.Get(id)
		require.Len(t, got, 10)
		assert.Equal(t, 99.0, got[9].Value)
	}
}
