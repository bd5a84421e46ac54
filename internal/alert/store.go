package alert

import "sync"

// Store keeps alerts newest first. The unread counter always equals the
// number of unacknowledged alerts held.
type Store struct {
	mu     sync.RWMutex
	alerts []Alert
	unread int
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Add(alerts ...Alert) {
	if len(alerts) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prepended := make([]Alert, 0, len(alerts)+len(s.alerts))
	for i := len(alerts) - 1; i >= 0; i-- {
		prepended = append(prepended, alerts[i])
		if !alerts[i].Acknowledged {
			s.unread++
		}
	}
	s.alerts = append(prepended, s.alerts...)
}

// Acknowledge marks an alert as read. It reports whether the id exists;
// acknowledging twice is a no-op.
func (s *Store) Acknowledge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if !s.alerts[i].Acknowledged {
			s.alerts[i].Acknowledged = true
			s.unread = max(0, s.unread-1)
		}
		return true
	}

	return false
}

// Clear removes one alert. Unknown ids are ignored.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if !s.alerts[i].Acknowledged {
			s.unread = max(0, s.unread-1)
		}
		s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
		return true
	}

	return false
}

// RemoveBySensor drops every alert raised for the sensor and returns how
// many were removed.
func (s *Store) RemoveBySensor(sensorID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	removed := 0
	for _, a := range s.alerts {
		if a.SensorID != sensorID {
			kept = append(kept, a)
			continue
		}
		removed++
		if !a.Acknowledged {
			s.unread = max(0, s.unread-1)
		}
	}
	clear(s.alerts[len(kept):])
	s.alerts = kept

	return removed
}

func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = nil
	s.unread = 0
}

// List returns a copy of the matching alerts, newest first.
func (s *Store) List(filter Filter) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if filter.matches(a) {
			out = append(out, a)
		}
	}

	return out
}

func (s *Store) Get(id string) (Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts {
		if a.ID == id {
			return a, true
		}
	}

	return Alert{}, false
}

func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.unread
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Counts{
		Total:      len(s.alerts),
		Unread:     s.unread,
		BySeverity: make(map[Severity]int),
	}
	for _, a := range s.alerts {
		c.BySeverity[a.Severity]++
	}

	return c
}
