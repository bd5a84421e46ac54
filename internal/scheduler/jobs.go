package scheduler

import (
	"context"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"codeberg.org/mutker/sensorhub/internal/sensor"
)

const (
	RetentionJobName = "archive-retention"
	SummaryJobName   = "alert-summary"

	jobTimeout = time.Minute
)

// Purger deletes archived data older than a cutoff.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Summarizer exposes the state logged by the summary job.
type Summarizer interface {
	AlertCounts() alert.Counts
	Devices() []sensor.Device
}

// RetentionJob purges archive rows older than retentionDays. Zero keeps
// everything.
func RetentionJob(p Purger, retentionDays int, now func() time.Time, log logger.Logger) func() {
	return func() {
		if retentionDays <= 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		cutoff := now().AddDate(0, 0, -retentionDays)
		n, err := p.Purge(ctx, cutoff)
		if err != nil {
			log.Error().Err(err).Msg("Archive retention purge failed")
			return
		}

		log.Info().
			Int64("rows", n).
			Time("cutoff", cutoff).
			Msg("Archive retention purge completed")
	}
}

// SummaryJob logs alert counts and device status totals.
func SummaryJob(s Summarizer, log logger.Logger) func() {
	return func() {
		counts := s.AlertCounts()

		statuses := make(map[sensor.Status]int)
		for _, d := range s.Devices() {
			statuses[d.Status]++
		}

		log.Info().
			Int("alerts", counts.Total).
			Int("unread", counts.Unread).
			Int("critical", counts.BySeverity[alert.SeverityCritical]).
			Int("warning", counts.BySeverity[alert.SeverityWarning]).
			Int("reading", statuses[sensor.StatusReading]).
			Int("connected", statuses[sensor.StatusConnected]).
			Int("failed", statuses[sensor.StatusError]).
			Msg("Sensor summary")
	}
}
