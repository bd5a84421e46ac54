package simulator

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"codeberg.org/mutker/sensorhub/internal/sensor"
)

// Ingester receives generated readings.
type Ingester interface {
	Ingest(ctx context.Context, sensorID string, typ sensor.Type, reading sensor.Reading) error
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Runner drives one ticker goroutine per simulated sensor.
type Runner struct {
	gen      *Generator
	ingester Ingester
	log      logger.Logger

	mu    sync.Mutex
	tasks map[string]*task
}

func NewRunner(gen *Generator, ingester Ingester) *Runner {
	return &Runner{
		gen:      gen,
		ingester: ingester,
		log:      logger.New("simulator"),
		tasks:    make(map[string]*task),
	}
}

// Start begins producing readings for the device every interval. A zero
// interval uses the profile cadence.
func (r *Runner) Start(ctx context.Context, device sensor.Device, interval time.Duration) error {
	if interval <= 0 {
		interval = r.gen.Interval(device.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, running := r.tasks[device.ID]; running {
		return errors.New().WithData(errors.ErrResourceBusy, device.ID)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	r.tasks[device.ID] = t

	go r.run(taskCtx, t, device, interval)

	r.log.Debug().
		Str("sensor", device.ID).
		Dur("interval", interval).
		Msg("Simulation started")

	return nil
}

func (r *Runner) run(ctx context.Context, t *task, device sensor.Device, interval time.Duration) {
	defer close(t.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var previous *float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reading := r.gen.Next(device.ID, device.Type, previous)
			if err := r.ingester.Ingest(ctx, device.ID, device.Type, reading); err != nil {
				r.log.Debug().
					Err(err).
					Str("sensor", device.ID).
					Msg("Simulated reading rejected")
				continue
			}
			v := reading.Value
			previous = &v
		}
	}
}

// Stop cancels the sensor's task and waits for it to exit.
func (r *Runner) Stop(id string) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	delete(r.tasks, id)
	r.mu.Unlock()

	if !ok {
		return
	}
	t.cancel()
	<-t.done
}

// StopAll cancels every task and waits for them.
func (r *Runner) StopAll() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = make(map[string]*task)
	r.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
}

// Running reports whether the sensor has an active task.
func (r *Runner) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tasks[id]
	return ok
}
