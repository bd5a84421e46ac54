package aggregator

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/sensor"
)

// Export flattens the in-memory windows into records ordered by time.
func (s *Service) Export(req ExportRequest) []sensor.Record {
	ids := req.SensorIDs
	if len(ids) == 0 {
		for _, d := range s.Devices() {
			ids = append(ids, d.ID)
		}
	}

	var records []sensor.Record
	for _, id := range ids {
		st := s.state(id)
		if st == nil {
			continue
		}
		device := st.load()
		snap := st.snapshot.Load()
		if snap == nil {
			continue
		}
		for _, r := range snap.History {
			if req.includes(r.Timestamp) {
				records = append(records, sensor.NewRecord(device, r))
			}
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records
}

// ExportArchive answers the request from the archive, reaching past the
// rolling window.
func (s *Service) ExportArchive(ctx context.Context, req ExportRequest) ([]sensor.Record, error) {
	archive, ok := s.recorder.(Archive)
	if !ok {
		return nil, errors.New().New(ErrArchiveDisabled)
	}

	return archive.Query(ctx, req.SensorIDs, req.From, req.To)
}

// Import ingests exported records in time order. Rejected records are
// skipped; the returned error carries the first rejection.
func (s *Service) Import(ctx context.Context, records []sensor.Record) (int, error) {
	errFactory := errors.New()

	sorted := slices.Clone(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	imported, failed := 0, 0
	var firstErr error
	for _, rec := range sorted {
		if err := ctx.Err(); err != nil {
			return imported, errFactory.Wrap(ErrImportFailed, err)
		}
		if err := s.Ingest(ctx, rec.SensorID, rec.SensorType, rec.Reading()); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		imported++
	}

	if failed > 0 {
		return imported, errFactory.Wrap(ErrImportFailed, firstErr).WithMessage(
			fmt.Sprintf("%d of %d records rejected", failed, len(sorted)))
	}

	return imported, nil
}
