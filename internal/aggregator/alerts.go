package aggregator

import (
	"context"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/errors"
)

func (s *Service) Alerts(filter alert.Filter) []alert.Alert {
	return s.alerts.List(filter)
}

// AcknowledgeAlert marks an alert as read. Repeating it is harmless;
// OnAlertChange subscribers hear about the first acknowledgement only.
func (s *Service) AcknowledgeAlert(id string) error {
	before, ok := s.alerts.Get(id)
	if !ok || !s.alerts.Acknowledge(id) {
		return errors.New().WithData(ErrAlertNotFound, id)
	}

	if !before.Acknowledged {
		before.Acknowledged = true
		s.publishAlertChange(before)
	}

	return nil
}

// ClearAlert removes an alert. Unknown ids are ignored.
func (s *Service) ClearAlert(id string) {
	s.alerts.Clear(id)
}

func (s *Service) ClearAllAlerts() {
	s.alerts.ClearAll()
}

func (s *Service) UnreadAlerts() int {
	return s.alerts.UnreadCount()
}

func (s *Service) AlertCounts() alert.Counts {
	return s.alerts.Counts()
}

// ArchivedAlerts returns archived alerts raised in [from, to], newest
// first. The archive keeps alerts cleared from memory.
func (s *Service) ArchivedAlerts(ctx context.Context, from, to time.Time) ([]alert.Alert, error) {
	archive, ok := s.recorder.(AlertArchive)
	if !ok {
		return nil, errors.New().New(ErrArchiveDisabled)
	}

	return archive.Alerts(ctx, from, to)
}
