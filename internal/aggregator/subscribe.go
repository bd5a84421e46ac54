package aggregator

import (
	"slices"

	"codeberg.org/mutker/sensorhub/internal/alert"
)

// OnUpdate registers fn for one sensor's updates. The subscription ends
// when the returned func is called or the sensor disconnects.
func (s *Service) OnUpdate(sensorID string, fn UpdateFunc) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	subs, ok := s.sensorSubs[sensorID]
	if !ok {
		subs = make(map[uint64]UpdateFunc)
		s.sensorSubs[sensorID] = subs
	}
	subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if subs, ok := s.sensorSubs[sensorID]; ok {
			delete(subs, id)
		}
	}
}

// Subscribe registers fn for updates from every sensor.
func (s *Service) Subscribe(fn UpdateFunc) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.globalSubs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.globalSubs, id)
	}
}

// OnAlert registers fn for every newly raised alert.
func (s *Service) OnAlert(fn AlertFunc) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.alertSubs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.alertSubs, id)
	}
}

// OnAlertChange registers fn for alerts whose state changed after they
// were raised, such as an acknowledgement.
func (s *Service) OnAlertChange(fn AlertFunc) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.changeSubs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.changeSubs, id)
	}
}

func (s *Service) publish(u Update) {
	s.subMu.RLock()
	fns := make([]UpdateFunc, 0, len(s.sensorSubs[u.SensorID])+len(s.globalSubs))
	for _, fn := range s.sensorSubs[u.SensorID] {
		fns = append(fns, fn)
	}
	for _, fn := range s.globalSubs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		cp := u
		cp.History = slices.Clone(u.History)
		s.call(func() { fn(cp) })
	}
}

func (s *Service) publishAlerts(alerts []alert.Alert) {
	s.notifyAlerts(s.alertSubs, alerts)
}

func (s *Service) publishAlertChange(a alert.Alert) {
	s.notifyAlerts(s.changeSubs, []alert.Alert{a})
}

// notifyAlerts copies subs under subMu before calling out.
func (s *Service) notifyAlerts(subs map[uint64]AlertFunc, alerts []alert.Alert) {
	if len(alerts) == 0 {
		return
	}

	s.subMu.RLock()
	fns := make([]AlertFunc, 0, len(subs))
	for _, fn := range subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, a := range alerts {
		for _, fn := range fns {
			s.call(func() { fn(a) })
		}
	}
}

// call isolates the ingestion path from a panicking subscriber.
func (s *Service) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Interface("panic", r).
				Msg("Subscriber panicked")
		}
	}()

	fn()
}
