package history

import (
	"sync"

	"codeberg.org/mutker/sensorhub/internal/sensor"
)

// DefaultCapacity is the number of readings kept per sensor.
const DefaultCapacity = 100

type window struct {
	mu   sync.Mutex
	ring *Ring
}

// Store keeps one ring per sensor, all with the same capacity.
type Store struct {
	mu       sync.RWMutex
	windows  map[string]*window
	capacity int
}

func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	return &Store{
		windows:  make(map[string]*window),
		capacity: capacity,
	}
}

func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) window(id string, create bool) *window {
	s.mu.RLock()
	w, ok := s.windows[id]
	s.mu.RUnlock()
	if ok || !create {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.windows[id]; ok {
		return w
	}
	w = &window{ring: NewRing(s.capacity)}
	s.windows[id] = w

	return w
}

// Append adds a reading to the sensor's window and returns the window
// contents after the append, oldest first.
func (s *Store) Append(id string, reading sensor.Reading) []sensor.Reading {
	w := s.window(id, true)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.ring.Append(reading)

	return w.ring.Readings()
}

// Get returns a copy of the sensor's window. Unknown sensors yield nil.
func (s *Store) Get(id string) []sensor.Reading {
	w := s.window(id, false)
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.ring.Readings()
}

// Latest returns the newest reading for the sensor.
func (s *Store) Latest(id string) (sensor.Reading, bool) {
	w := s.window(id, false)
	if w == nil {
		return sensor.Reading{}, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.ring.Last()
}

// Clear empties the sensor's window but keeps it registered.
func (s *Store) Clear(id string) {
	if w := s.window(id, false); w != nil {
		w.mu.Lock()
		w.ring.Clear()
		w.mu.Unlock()
	}
}

// Remove drops the sensor's window entirely.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, id)
}

// IDs returns the sensors that currently have a window.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}

	return ids
}
