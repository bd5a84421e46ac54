// Package aggregator coordinates ingestion: every accepted reading is
// appended to its sensor's window, summarized, checked against the alert
// thresholds and published to subscribers as one atomic step.
package aggregator

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/history"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	"codeberg.org/mutker/sensorhub/internal/stats"
	"github.com/google/uuid"
)

type options struct {
	capacity   int
	thresholds alert.Thresholds
	profiles   sensor.Profiles
	now        func() time.Time
	newID      func() string
	recorder   Recorder
	log        logger.Logger
}

type Option func(*options)

func WithCapacity(capacity int) Option {
	return func(o *options) {
		o.capacity = capacity
	}
}

func WithThresholds(t alert.Thresholds) Option {
	return func(o *options) {
		o.thresholds = t
	}
}

func WithProfiles(p sensor.Profiles) Option {
	return func(o *options) {
		o.profiles = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator replaces the uuid generator used for alert ids.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newID = fn
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

type sensorState struct {
	// mu serializes append, recompute, evaluate and publish
	mu       sync.Mutex
	device   atomic.Pointer[sensor.Device]
	snapshot atomic.Pointer[Update]
}

func (st *sensorState) load() sensor.Device {
	return *st.device.Load()
}

func (st *sensorState) store(d sensor.Device) {
	st.device.Store(&d)
}

type Service struct {
	profiles  sensor.Profiles
	history   *history.Store
	evaluator *alert.ThresholdEvaluator
	alerts    *alert.Store
	recorder  Recorder
	now       func() time.Time
	newID     func() string
	log       logger.Logger

	mu      sync.RWMutex
	sensors map[string]*sensorState

	subMu      sync.RWMutex
	nextSub    uint64
	sensorSubs map[string]map[uint64]UpdateFunc
	globalSubs map[uint64]UpdateFunc
	alertSubs  map[uint64]AlertFunc
	changeSubs map[uint64]AlertFunc
}

func New(opts ...Option) (*Service, error) {
	errFactory := errors.New()

	o := &options{
		capacity:   history.DefaultCapacity,
		thresholds: alert.DefaultThresholds(),
		profiles:   sensor.DefaultProfiles(),
		now:        time.Now,
		newID:      uuid.NewString,
		log:        logger.New("aggregator"),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.capacity < 1 {
		return nil, errFactory.WithData(errors.ErrInvalidHistoryCapacity, o.capacity)
	}
	if err := o.thresholds.Validate(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidThresholds, err)
	}
	if err := o.profiles.Validate(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return &Service{
		profiles:   o.profiles,
		history:    history.NewStore(o.capacity),
		evaluator:  alert.NewEvaluator(o.thresholds, alert.WithClock(o.now), alert.WithIDGenerator(o.newID)),
		alerts:     alert.NewStore(),
		recorder:   o.recorder,
		now:        o.now,
		newID:      o.newID,
		log:        o.log,
		sensors:    make(map[string]*sensorState),
		sensorSubs: make(map[string]map[uint64]UpdateFunc),
		globalSubs: make(map[uint64]UpdateFunc),
		alertSubs:  make(map[uint64]AlertFunc),
		changeSubs: make(map[uint64]AlertFunc),
	}, nil
}

func (s *Service) state(id string) *sensorState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sensors[id]
}

// Connect registers a device and makes it ready to ingest. Reconnecting a
// disconnected or failed device is allowed.
func (s *Service) Connect(device sensor.Device) error {
	errFactory := errors.New()

	if device.ID == "" || !device.Type.IsValid() {
		return errFactory.WithData(ErrInvalidDevice, device.ID)
	}
	if device.ConnectionType != "" && !device.ConnectionType.IsValid() {
		return errFactory.WithData(ErrInvalidDevice, device.ID)
	}

	s.mu.Lock()
	st, exists := s.sensors[device.ID]
	if !exists {
		st = &sensorState{}
		pending := device
		pending.Status = sensor.StatusConnecting
		st.store(pending)
		s.sensors[device.ID] = st
	}
	s.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	if exists {
		prev := st.load()
		if prev.Status.Ingesting() || prev.Status == sensor.StatusConnecting {
			return errFactory.WithData(ErrAlreadyConnected, device.ID)
		}
		if prev.Type != device.Type {
			s.history.Remove(device.ID)
			st.snapshot.Store(nil)
		}
		if device.BatteryLevel == nil {
			device.BatteryLevel = prev.BatteryLevel
		}
	}

	// Leaving the disconnected state happens under s.mu so Remove either
	// sees the device connecting or has already dropped it, in which case
	// this state is registered again.
	s.mu.Lock()
	if cur, ok := s.sensors[device.ID]; ok && cur != st {
		s.mu.Unlock()
		return errFactory.WithData(ErrAlreadyConnected, device.ID)
	}
	s.sensors[device.ID] = st
	device.Status = sensor.StatusConnecting
	st.store(device)
	s.mu.Unlock()

	device.Status = sensor.StatusConnected
	device.LastSeen = s.now()
	st.store(device)

	s.log.Info().
		Str("sensor", device.ID).
		Str("type", device.Type.String()).
		Str("connection", string(device.ConnectionType)).
		Msg("Sensor connected")

	return nil
}

// SetStatus moves a device to a new connection status. Entering the error
// state raises a connection_lost alert.
func (s *Service) SetStatus(id string, status sensor.Status) error {
	errFactory := errors.New()

	if status == sensor.StatusDisconnected {
		return s.Disconnect(id)
	}

	st := s.state(id)
	if st == nil {
		return errFactory.WithData(ErrUnknownSensor, id)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	device := st.load()
	if !device.Status.CanTransition(status) {
		return errFactory.WithData(sensor.ErrInvalidTransition, fmt.Sprintf("%s -> %s", device.Status, status))
	}

	prev := device.Status
	device.Status = status
	st.store(device)

	if status == sensor.StatusError && prev != sensor.StatusError {
		a := s.evaluator.ConnectionLost(device)
		s.alerts.Add(a)
		s.publishAlerts([]alert.Alert{a})

		s.log.Warn().
			Str("sensor", id).
			Msg("Sensor connection lost")
	}

	return nil
}

// Disconnect stops ingestion for the sensor, drops its window, statistics
// and per-sensor subscriptions. Its alerts are kept.
func (s *Service) Disconnect(id string) error {
	st := s.state(id)
	if st == nil {
		return errors.New().WithData(ErrUnknownSensor, id)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	device := st.load()
	device.Status = sensor.StatusDisconnected
	st.store(device)
	st.snapshot.Store(nil)
	s.history.Remove(id)

	s.subMu.Lock()
	delete(s.sensorSubs, id)
	s.subMu.Unlock()

	s.log.Info().
		Str("sensor", id).
		Msg("Sensor disconnected")

	return nil
}

// Remove disconnects the sensor, forgets it and drops its alerts. A
// device reconnected in the meantime is kept and ErrAlreadyConnected is
// returned.
func (s *Service) Remove(id string) error {
	if err := s.Disconnect(id); err != nil {
		return err
	}

	s.mu.Lock()
	if st, ok := s.sensors[id]; ok && st.load().Status != sensor.StatusDisconnected {
		s.mu.Unlock()
		return errors.New().WithData(ErrAlreadyConnected, id)
	}
	delete(s.sensors, id)
	s.mu.Unlock()

	s.alerts.RemoveBySensor(id)

	return nil
}

// ClearData empties the sensor's window and resets its statistics.
func (s *Service) ClearData(id string) error {
	st := s.state(id)
	if st == nil {
		return errors.New().WithData(ErrUnknownSensor, id)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	s.history.Clear(id)
	st.snapshot.Store(nil)

	return nil
}

// Ingest validates a reading and, if accepted, appends it, recomputes the
// statistics, evaluates alerts and publishes the new snapshot.
func (s *Service) Ingest(ctx context.Context, sensorID string, typ sensor.Type, reading sensor.Reading) error {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(errors.ErrOperationFailed, err)
	}

	st := s.state(sensorID)
	if st == nil {
		return s.reject(sensorID, errFactory.WithData(ErrUnknownSensor, sensorID))
	}

	if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
		return s.reject(sensorID, errFactory.WithData(ErrInvalidValue, reading.Value))
	}
	if reading.SensorID != "" && reading.SensorID != sensorID {
		return s.reject(sensorID, errFactory.WithData(ErrSensorMismatch, reading.SensorID))
	}

	st.mu.Lock()
	device, accepted, err := s.apply(st, sensorID, typ, reading)
	st.mu.Unlock()

	if err != nil {
		return s.reject(sensorID, err)
	}

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, sensor.NewRecord(device, accepted)); err != nil {
			s.log.ErrorWithCode(errFactory.Wrap(errors.ErrRecordArchive, err)).
				Str("sensor", sensorID).
				Send()
		}
	}

	return nil
}

// apply runs the critical section. The caller holds st.mu.
func (s *Service) apply(st *sensorState, sensorID string, typ sensor.Type, reading sensor.Reading) (sensor.Device, sensor.Reading, errors.Error) {
	errFactory := errors.New()

	device := st.load()
	if !device.Status.Ingesting() {
		return device, reading, errFactory.WithData(ErrNotIngesting, fmt.Sprintf("%s is %s", sensorID, device.Status))
	}
	if typ != device.Type {
		return device, reading, errFactory.WithData(ErrTypeMismatch, fmt.Sprintf("%s is %s, got %s", sensorID, device.Type, typ))
	}

	profile, _ := s.profiles.Lookup(device.Type)
	if !profile.Declared.Contains(reading.Value) {
		return device, reading, errFactory.WithData(ErrOutOfRange, reading.Value)
	}

	reading.SensorID = sensorID
	if reading.Unit == "" {
		reading.Unit = profile.Unit
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = s.now()
	}

	window := s.history.Append(sensorID, reading)
	update := Update{
		SensorID:   sensorID,
		Current:    reading,
		History:    window,
		Statistics: stats.Compute(window),
	}
	st.snapshot.Store(&update)

	device.Status = sensor.StatusReading
	device.LastSeen = reading.Timestamp
	st.store(device)

	raised := s.evaluator.Evaluate(device, reading)
	s.alerts.Add(raised...)

	s.publish(update)
	s.publishAlerts(raised)

	return device, reading, nil
}

func (s *Service) reject(sensorID string, err errors.Error) error {
	event := s.log.Warn()
	if err.Code() == ErrNotIngesting || err.Code() == ErrUnknownSensor {
		event = s.log.Debug()
	}
	event.
		Str("sensor", sensorID).
		Str("error_code", string(err.Code())).
		Msg(err.Error())

	return err
}

// ReportBattery records a battery level in percent and raises a
// low_battery alert when it drops below LowBatteryLevel.
func (s *Service) ReportBattery(id string, level int) error {
	errFactory := errors.New()

	if level < 0 || level > 100 {
		return errFactory.WithData(ErrInvalidBattery, level)
	}

	st := s.state(id)
	if st == nil {
		return errFactory.WithData(ErrUnknownSensor, id)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	device := st.load()
	prev := device.BatteryLevel
	device.BatteryLevel = &level
	st.store(device)

	if level < LowBatteryLevel && (prev == nil || *prev >= LowBatteryLevel) {
		a := alert.Alert{
			ID:        s.newID(),
			SensorID:  id,
			Kind:      alert.KindLowBattery,
			Severity:  alert.SeverityMedium,
			Message:   fmt.Sprintf("%s: battery %d%%", device.Name, level),
			Timestamp: s.now(),
		}
		s.alerts.Add(a)
		s.publishAlerts([]alert.Alert{a})
	}

	return nil
}

// Device returns the current record for a sensor.
func (s *Service) Device(id string) (sensor.Device, bool) {
	st := s.state(id)
	if st == nil {
		return sensor.Device{}, false
	}

	return st.load(), true
}

// Devices returns every known device ordered by id.
func (s *Service) Devices() []sensor.Device {
	s.mu.RLock()
	states := make([]*sensorState, 0, len(s.sensors))
	for _, st := range s.sensors {
		states = append(states, st)
	}
	s.mu.RUnlock()

	devices := make([]sensor.Device, 0, len(states))
	for _, st := range states {
		if d := st.device.Load(); d != nil {
			devices = append(devices, *d)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ID < devices[j].ID
	})

	return devices
}

// History returns a copy of the sensor's window, oldest first.
func (s *Service) History(id string) ([]sensor.Reading, bool) {
	st := s.state(id)
	if st == nil {
		return nil, false
	}

	snap := st.snapshot.Load()
	if snap == nil {
		return []sensor.Reading{}, true
	}

	return slices.Clone(snap.History), true
}

func (s *Service) Statistics(id string) (sensor.Statistics, bool) {
	st := s.state(id)
	if st == nil {
		return sensor.Statistics{}, false
	}

	snap := st.snapshot.Load()
	if snap == nil {
		return stats.Compute(nil), true
	}

	return snap.Statistics, true
}

// Current returns the newest reading. ok is false for unknown sensors and
// empty windows.
func (s *Service) Current(id string) (sensor.Reading, bool) {
	st := s.state(id)
	if st == nil {
		return sensor.Reading{}, false
	}

	snap := st.snapshot.Load()
	if snap == nil {
		return sensor.Reading{}, false
	}

	return snap.Current, true
}

// Snapshot returns the last published update for the sensor.
func (s *Service) Snapshot(id string) (Update, bool) {
	st := s.state(id)
	if st == nil {
		return Update{}, false
	}

	snap := st.snapshot.Load()
	if snap == nil {
		return Update{SensorID: id, History: []sensor.Reading{}, Statistics: stats.Compute(nil)}, true
	}

	u := *snap
	u.History = slices.Clone(snap.History)

	return u, true
}

func (s *Service) Profiles() sensor.Profiles {
	return s.profiles
}
