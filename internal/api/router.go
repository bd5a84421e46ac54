// Package api exposes the aggregation service over HTTP.
package api

import (
	"net/http"
	"time"

	"codeberg.org/mutker/sensorhub/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

type handler struct {
	sensors   Sensors
	simulator Simulator
	jobs      Jobs
	version   string
	started   time.Time
	now       func() time.Time
	log       logger.Logger
}

// NewRouter builds the gin engine serving the REST API and, when
// deps.Stream is set, the websocket endpoint at /ws.
func NewRouter(cfg Config, deps Deps, log logger.Logger) *gin.Engine {
	h := &handler{
		sensors:   deps.Sensors,
		simulator: deps.Simulator,
		jobs:      deps.Jobs,
		version:   cfg.Version,
		started:   time.Now(),
		now:       time.Now,
		log:       log,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(corsMiddleware(cfg.AllowOrigins))

	router.GET("/health", h.health)

	api := router.Group("/api")
	{
		api.GET("/sensors", h.listSensors)
		api.POST("/sensors", h.connectSensor)
		api.GET("/sensors/:id", h.getSensor)
		api.DELETE("/sensors/:id", h.disconnectSensor)
		api.PUT("/sensors/:id/status", h.setStatus)
		api.PUT("/sensors/:id/battery", h.reportBattery)
		api.POST("/sensors/:id/readings", h.ingest)
		api.DELETE("/sensors/:id/data", h.clearData)
		api.GET("/sensors/:id/history", h.history)
		api.GET("/sensors/:id/statistics", h.statistics)
		api.GET("/sensors/:id/current", h.current)
		api.GET("/sensors/:id/anomalies", h.anomalies)

		api.GET("/alerts", h.listAlerts)
		api.GET("/alerts/counts", h.alertCounts)
		api.GET("/alerts/archive", h.archivedAlerts)
		api.PUT("/alerts/:id/acknowledge", h.acknowledgeAlert)
		api.DELETE("/alerts/:id", h.clearAlert)
		api.DELETE("/alerts", h.clearAllAlerts)

		api.GET("/export", h.export)
		api.POST("/import", h.importRecords)

		api.GET("/jobs", h.listJobs)
	}

	if deps.Stream != nil {
		router.GET("/ws", gin.WrapH(deps.Stream))
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Debug()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}
