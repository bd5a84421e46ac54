// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"github.com/robfig/cron/v3"
)

const ErrInvalidSchedule = errors.ErrorCode("scheduler_invalid_schedule")

// Job describes a registered job.
type Job struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type entry struct {
	id   cron.EntryID
	spec string
}

// Scheduler wraps a cron runner with named jobs.
type Scheduler struct {
	cron   *cron.Cron
	log    logger.Logger
	mu     sync.RWMutex
	jobMap map[string]entry
}

func New(log logger.Logger) *Scheduler {
	adapter := cronLogger{log: log}

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		log:    log,
		jobMap: make(map[string]entry),
	}
}

// Add schedules fn under name, replacing any job with the same name.
func (s *Scheduler) Add(name, spec string, fn func()) error {
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return errors.New().Wrap(ErrInvalidSchedule, err).WithMessage(name + ": " + spec)
	}

	s.mu.Lock()
	old, replaced := s.jobMap[name]
	s.jobMap[name] = entry{id: id, spec: spec}
	s.mu.Unlock()

	if replaced {
		s.cron.Remove(old.id)
	}

	s.log.Debug().
		Str("job", name).
		Str("spec", spec).
		Msg("Job scheduled")

	return nil
}

func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	e, ok := s.jobMap[name]
	delete(s.jobMap, name)
	s.mu.Unlock()

	if ok {
		s.cron.Remove(e.id)
	}
}

// Jobs returns the registered jobs ordered by name.
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobMap))
	for name, e := range s.jobMap {
		ce := s.cron.Entry(e.id)
		jobs = append(jobs, Job{Name: name, Spec: e.spec, Next: ce.Next, Prev: ce.Prev})
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Name < jobs[j].Name
	})

	return jobs
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.Jobs())).Msg("Scheduler started")
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// cronLogger adapts the component logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
