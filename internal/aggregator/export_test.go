package aggregator_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/sensorhub/internal/aggregator"
	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryArchive struct {
	records []sensor.Record
	alerts  []alert.Alert
}

func (m *memoryArchive) Record(_ context.Context, rec sensor.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryArchive) Query(_ context.Context, ids []string, from, to time.Time) ([]sensor.Record, error) {
	var out []sensor.Record
	for _, r := range m.records {
		if len(ids) > 0 && r.SensorID != ids[0] {
			continue
		}
		if (!from.IsZero() && r.Timestamp.Before(from)) || (!to.IsZero() && r.Timestamp.After(to)) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func TestExport(t *testing.T) {
	svc := newService(t)
	connect(t, svc, "t1", sensor.Temperature)
	connect(t, svc, "h1", sensor.Humidity)

	ctx := context.Background()
	for i, v := range []float64{20, 21, 22} {
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, svc.Ingest(ctx, "t1", sensor.Temperature, sensor.Reading{Value: v, Timestamp: ts}))
		require.NoError(t, svc.Ingest(ctx, "h1", sensor.Humidity, sensor.Reading{Value: v + 30, Timestamp: ts.Add(time.Second)}))
	}

	all := svc.Export(aggregator.ExportRequest{})
	require.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Timestamp.Before(all[i-1].Timestamp))
	}
	assert.Equal(t, sensor.Record{
		SensorID:   "t1",
		SensorName: "Sensor t1",
		SensorType: sensor.Temperature,
		Timestamp:  base,
		Value:      20,
		Unit:       "°C",
	}, all[0])

	onlyT1 := svc.Export(aggregator.ExportRequest{SensorIDs: []string{"t1", "missing"}})
	assert.Len(t, onlyT1, 3)

	ranged := svc.Export(aggregator.ExportRequest{
		From: base.Add(time.Minute),
		To:   base.Add(2 * time.Minute),
	})
	require.Len(t, ranged, 3)
	assert.Equal(t, 21.0, ranged[0].Value)
	assert.Equal(t, 51.0, ranged[1].Value)
	assert.Equal(t, 22.0, ranged[2].Value)
}

func TestExportImportRoundTrip(t *testing.T) {
	svc := newService(t)
	connect(t, svc, "t1", sensor.Temperature)
	connect(t, svc, "p1", sensor.Pressure)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, svc.Ingest(ctx, "t1", sensor.Temperature, sensor.Reading{Value: 20 + float64(i)/10, Timestamp: ts}))
		require.NoError(t, svc.Ingest(ctx, "p1", sensor.Pressure, sensor.Reading{Value: 1000.25, Timestamp: ts}))
	}

	exported := svc.Export(aggregator.ExportRequest{})
	require.NoError(t, svc.ClearData("t1"))
	require.NoError(t, svc.ClearData("p1"))

	n, err := svc.Import(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, len(exported), n)

	assert.Equal(t, exported, svc.Export(aggregator.ExportRequest{}))
}

func TestImportSkipsRejected(t *testing.T) {
	svc := newService(t)
	connect(t, svc, "t1", sensor.Temperature)

	records := []sensor.Record{
		{SensorID: "t1", SensorType: sensor.Temperature, Timestamp: base, Value: 20, Unit: "°C"},
		{SensorID: "ghost", SensorType: sensor.Temperature, Timestamp: base, Value: 20, Unit: "°C"},
		{SensorID: "t1", SensorType: sensor.Temperature, Timestamp: base.Add(time.Second), Value: 500, Unit: "°C"},
	}

	n, err := svc.Import(context.Background(), records)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, errors.HasCode(err, aggregator.ErrImportFailed))
	assert.True(t, errors.HasCode(err, aggregator.ErrUnknownSensor))
	assert.Contains(t, err.Error(), "2 of 3 records rejected")
}

func (m *memoryArchive) RecordAlert(_ context.Context, a alert.Alert) error {
	for i := range m.alerts {
		if m.alerts[i].ID == a.ID {
			m.alerts[i] = a
			return nil
		}
	}
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *memoryArchive) Alerts(_ context.Context, _, _ time.Time) ([]alert.Alert, error) {
	return m.alerts, nil
}

func TestRecorderAndArchiveExport(t *testing.T) {
	archive := &memoryArchive{}
	svc := newService(t, aggregator.WithRecorder(archive), aggregator.WithCapacity(2))
	connect(t, svc, "t1", sensor.Temperature)

	ctx := context.Background()
	for i, v := range []float64{20, 21, 22, 23} {
		require.NoError(t, svc.Ingest(ctx, "t1", sensor.Temperature, sensor.Reading{Value: v, Timestamp: base.Add(time.Duration(i) * time.Second)}))
	}
	_ = svc.Ingest(ctx, "t1", sensor.Temperature, sensor.Reading{Value: 1000})

	require.Len(t, archive.records, 4)
	assert.Len(t, svc.Export(aggregator.ExportRequest{}), 2)

	archived, err := svc.ExportArchive(ctx, aggregator.ExportRequest{SensorIDs: []string{"t1"}})
	require.NoError(t, err)
	assert.Len(t, archived, 4)
}

func TestExportArchiveDisabled(t *testing.T) {
	svc := newService(t)

	_, err := svc.ExportArchive(context.Background(), aggregator.ExportRequest{})
	assert.True(t, errors.HasCode(err, aggregator.ErrArchiveDisabled))
}

func TestAlertChangesReachArchive(t *testing.T) {
	archive := &memoryArchive{}
	svc := newService(t, aggregator.WithRecorder(archive))
	ctx := context.Background()

	record := func(a alert.Alert) { assert.NoError(t, archive.RecordAlert(ctx, a)) }
	svc.OnAlert(record)
	changes := 0
	svc.OnAlertChange(func(a alert.Alert) {
		changes++
		record(a)
	})

	connect(t, svc, "t1", sensor.Temperature)
	ingest(t, svc, "t1", sensor.Temperature, 36)

	raised := svc.Alerts(alert.Filter{})
	require.Len(t, raised, 1)
	require.NoError(t, svc.AcknowledgeAlert(raised[0].ID))
	require.NoError(t, svc.AcknowledgeAlert(raised[0].ID))
	assert.Equal(t, 1, changes)

	svc.ClearAlert(raised[0].ID)
	assert.Empty(t, svc.Alerts(alert.Filter{}))

	archived, err := svc.ArchivedAlerts(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, raised[0].ID, archived[0].ID)
	assert.True(t, archived[0].Acknowledged)
}

func TestArchivedAlertsDisabled(t *testing.T) {
	svc := newService(t)

	_, err := svc.ArchivedAlerts(context.Background(), time.Time{}, time.Time{})
	assert.True(t, errors.HasCode(err, aggregator.ErrArchiveDisabled))
}
