package history

import "codeberg.org/mutker/sensorhub/internal/sensor"

// Ring is a fixed-capacity circular buffer of readings. It is not safe for
// concurrent use.
type Ring struct {
	buf   []sensor.Reading
	start int
	size  int
}

// NewRing returns an empty ring. Capacities below one are raised to one.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}

	return &Ring{buf: make([]sensor.Reading, capacity)}
}

// Append adds r, evicting the oldest reading when full.
func (r *Ring) Append(reading sensor.Reading) {
	end := (r.start + r.size) % len(r.buf)
	r.buf[end] = reading

	if r.size < len(r.buf) {
		r.size++
		return
	}
	r.start = (r.start + 1) % len(r.buf)
}

// Readings returns a copy of the contents, oldest first.
func (r *Ring) Readings() []sensor.Reading {
	out := make([]sensor.Reading, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}

	return out
}

// Last returns the newest reading.
func (r *Ring) Last() (sensor.Reading, bool) {
	if r.size == 0 {
		return sensor.Reading{}, false
	}

	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

func (r *Ring) Len() int {
	return r.size
}

func (r *Ring) Cap() int {
	return len(r.buf)
}

func (r *Ring) Clear() {
	clear(r.buf)
	r.start = 0
	r.size = 0
}
