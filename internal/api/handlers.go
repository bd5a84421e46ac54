package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/sensorhub/internal/aggregator"
	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	"codeberg.org/mutker/sensorhub/internal/stats"
	"github.com/gin-gonic/gin"
)

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now(),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"version":   h.version,
		"sensors":   len(h.sensors.Devices()),
	})
}

func (h *handler) listSensors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sensors": h.sensors.Devices()})
}

func (h *handler) getSensor(c *gin.Context) {
	device, ok := h.sensors.Device(c.Param("id"))
	if !ok {
		fail(c, errors.New().WithData(aggregator.ErrUnknownSensor, c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, device)
}

func (h *handler) connectSensor(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IntervalMS < 0 || (req.IntervalMS > 0 && req.IntervalMS < minIntervalMS) {
		fail(c, errors.New().WithData(ErrBadRequest, fmt.Sprintf("interval_ms=%d, minimum is %d", req.IntervalMS, minIntervalMS)))
		return
	}
	if req.Simulate && h.simulator == nil {
		fail(c, errors.New().WithMessage(errors.ErrUnavailable, "simulation is not available"))
		return
	}

	_, known := h.sensors.Device(req.ID)
	if err := h.sensors.Connect(req.Device); err != nil {
		fail(c, err)
		return
	}

	if req.Simulate {
		// Connect only succeeds for an idle device, so any task still
		// registered for it is stale.
		h.simulator.Stop(req.ID)

		// The task outlives the request; StopAll ends it on shutdown.
		ctx := context.WithoutCancel(c.Request.Context())
		if err := h.simulator.Start(ctx, req.Device, time.Duration(req.IntervalMS)*time.Millisecond); err != nil {
			h.undoConnect(req.ID, known)
			fail(c, err)
			return
		}
	}

	device, _ := h.sensors.Device(req.ID)
	c.JSON(http.StatusCreated, device)
}

// undoConnect returns a device to its state before a failed connect.
func (h *handler) undoConnect(id string, known bool) {
	var err error
	if known {
		err = h.sensors.Disconnect(id)
	} else {
		err = h.sensors.Remove(id)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("sensor", id).Msg("Failed to undo connect")
	}
}

// disconnectSensor stops ingestion. With ?remove=true the sensor and its
// alerts are forgotten.
func (h *handler) disconnectSensor(c *gin.Context) {
	id := c.Param("id")
	if h.simulator != nil {
		h.simulator.Stop(id)
	}

	var err error
	if remove, _ := strconv.ParseBool(c.Query("remove")); remove {
		err = h.sensors.Remove(id)
	} else {
		err = h.sensors.Disconnect(id)
	}
	if err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) setStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	if req.Status == sensor.StatusDisconnected && h.simulator != nil {
		h.simulator.Stop(id)
	}
	if err := h.sensors.SetStatus(id, req.Status); err != nil {
		fail(c, err)
		return
	}

	device, _ := h.sensors.Device(id)
	c.JSON(http.StatusOK, device)
}

func (h *handler) reportBattery(c *gin.Context) {
	var req batteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	if err := h.sensors.ReportBattery(id, *req.Level); err != nil {
		fail(c, err)
		return
	}

	device, _ := h.sensors.Device(id)
	c.JSON(http.StatusOK, device)
}

func (h *handler) ingest(c *gin.Context) {
	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	reading := sensor.Reading{
		SensorID:  id,
		Timestamp: req.Timestamp,
		Value:     *req.Value,
		Unit:      req.Unit,
		Quality:   req.Quality,
	}
	if err := h.sensors.Ingest(c.Request.Context(), id, req.Type, reading); err != nil {
		fail(c, err)
		return
	}

	current, _ := h.sensors.Current(id)
	c.JSON(http.StatusAccepted, current)
}

func (h *handler) clearData(c *gin.Context) {
	if err := h.sensors.ClearData(c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// history returns the window, optionally smoothed (?smooth=N) and
// downsampled (?max_points=N).
func (h *handler) history(c *gin.Context) {
	id := c.Param("id")
	readings, ok := h.sensors.History(id)
	if !ok {
		fail(c, errors.New().WithData(aggregator.ErrUnknownSensor, id))
		return
	}

	if n, err := intQuery(c, "smooth"); err != nil {
		badRequest(c, err)
		return
	} else if n > 0 {
		readings = stats.Smooth(readings, n)
	}
	if n, err := intQuery(c, "max_points"); err != nil {
		badRequest(c, err)
		return
	} else if n > 0 {
		readings = stats.Downsample(readings, n)
	}

	c.JSON(http.StatusOK, gin.H{
		"sensor_id": id,
		"readings":  readings,
	})
}

func (h *handler) statistics(c *gin.Context) {
	id := c.Param("id")
	readings, ok := h.sensors.History(id)
	if !ok {
		fail(c, errors.New().WithData(aggregator.ErrUnknownSensor, id))
		return
	}
	st, _ := h.sensors.Statistics(id)

	summary := stats.Summarize(readings)
	summary.Statistics = st

	c.JSON(http.StatusOK, summary)
}

func (h *handler) current(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.sensors.Device(id); !ok {
		fail(c, errors.New().WithData(aggregator.ErrUnknownSensor, id))
		return
	}

	reading, ok := h.sensors.Current(id)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, reading)
}

func (h *handler) anomalies(c *gin.Context) {
	id := c.Param("id")
	readings, ok := h.sensors.History(id)
	if !ok {
		fail(c, errors.New().WithData(aggregator.ErrUnknownSensor, id))
		return
	}

	threshold := stats.DefaultZThreshold
	if raw := c.Query("z"); raw != "" {
		z, err := strconv.ParseFloat(raw, 64)
		if err != nil || z <= 0 {
			fail(c, errors.New().WithData(ErrBadRequest, "z="+raw))
			return
		}
		threshold = z
	}

	c.JSON(http.StatusOK, gin.H{
		"sensor_id": id,
		"threshold": threshold,
		"anomalies": stats.Anomalies(readings, threshold),
	})
}

func (h *handler) listAlerts(c *gin.Context) {
	var filter alert.Filter

	if raw := c.Query("severity"); raw != "" {
		severity := alert.Severity(raw)
		if !severity.IsValid() {
			fail(c, errors.New().WithData(ErrBadRequest, "severity="+raw))
			return
		}
		filter.Severity = &severity
	}
	if raw := c.Query("acknowledged"); raw != "" {
		ack, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Acknowledged = &ack
	}

	c.JSON(http.StatusOK, gin.H{"alerts": h.sensors.Alerts(filter)})
}

func (h *handler) alertCounts(c *gin.Context) {
	c.JSON(http.StatusOK, h.sensors.AlertCounts())
}

func (h *handler) acknowledgeAlert(c *gin.Context) {
	if err := h.sensors.AcknowledgeAlert(c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) clearAlert(c *gin.Context) {
	h.sensors.ClearAlert(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *handler) clearAllAlerts(c *gin.Context) {
	h.sensors.ClearAllAlerts()
	c.Status(http.StatusNoContent)
}

// archivedAlerts reads alert history from the archive, including alerts
// cleared from memory. from and to are RFC 3339.
func (h *handler) archivedAlerts(c *gin.Context) {
	from, err := timeQuery(c, "from")
	if err != nil {
		badRequest(c, err)
		return
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		badRequest(c, err)
		return
	}

	alerts, err := h.sensors.ArchivedAlerts(c.Request.Context(), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	if alerts == nil {
		alerts = []alert.Alert{}
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// export returns flat records. ?sensor may repeat; from and to are
// RFC 3339; ?source=archive reads the archive instead of the windows.
func (h *handler) export(c *gin.Context) {
	req := aggregator.ExportRequest{SensorIDs: c.QueryArray("sensor")}

	var err error
	if req.From, err = timeQuery(c, "from"); err != nil {
		badRequest(c, err)
		return
	}
	if req.To, err = timeQuery(c, "to"); err != nil {
		badRequest(c, err)
		return
	}

	var records []sensor.Record
	switch source := c.DefaultQuery("source", "memory"); source {
	case "memory":
		records = h.sensors.Export(req)
	case "archive":
		records, err = h.sensors.ExportArchive(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
	default:
		fail(c, errors.New().WithData(ErrBadRequest, "source="+source))
		return
	}

	if records == nil {
		records = []sensor.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"records": records,
	})
}

func (h *handler) importRecords(c *gin.Context) {
	var records []sensor.Record
	if err := c.ShouldBindJSON(&records); err != nil {
		badRequest(c, err)
		return
	}

	imported, err := h.sensors.Import(c.Request.Context(), records)
	if err != nil {
		c.AbortWithStatusJSON(StatusOf(err), gin.H{
			"error":    err.Error(),
			"code":     errors.CodeOf(err),
			"imported": imported,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"imported": imported})
}

func (h *handler) listJobs(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []any{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": h.jobs.Jobs()})
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New().WithData(ErrBadRequest, key+"="+raw)
	}

	return n, nil
}

func timeQuery(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errors.New().WithData(ErrBadRequest, key+"="+raw)
	}

	return t, nil
}
