package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/sensorhub/internal/aggregator"
	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/api"
	"codeberg.org/mutker/sensorhub/internal/archive"
	"codeberg.org/mutker/sensorhub/internal/config"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"codeberg.org/mutker/sensorhub/internal/mqtt"
	"codeberg.org/mutker/sensorhub/internal/notify"
	"codeberg.org/mutker/sensorhub/internal/pid"
	"codeberg.org/mutker/sensorhub/internal/scheduler"
	"codeberg.org/mutker/sensorhub/internal/simulator"
	"codeberg.org/mutker/sensorhub/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

var version = "dev"

type app struct {
	cfg       *config.Config
	archive   archive.Archive
	sensors   *aggregator.Service
	runner    *simulator.Runner
	hub       *websocket.Hub
	mqtt      *mqtt.Subscriber
	redis     *redis.Client
	publisher *notify.Publisher
	scheduler *scheduler.Scheduler
	server    *http.Server
}

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load(config.WithArgs(os.Args[1:]))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().
		Str("config_file", cfg.ConfigFile).
		Msg("Config loaded")
}

func main() {
	if err := pid.Write(pid.DefaultPath()); err != nil {
		if coded, ok := err.(errors.Error); ok {
			logger.FatalWithCode(coded).Send()
		}
		logger.Fatal().Err(err).Msg("Failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(pid.DefaultPath()); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	a, err := newApp(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return
	}

	if err := a.run(ctx); err != nil {
		logger.ErrorWithCode(errors.New().Wrap(errors.ErrMainLoop, err)).Send()
	}
	a.cleanup()
}

func newApp(cfg *config.Config) (*app, error) {
	errFactory := errors.New()
	a := &app{cfg: cfg}

	var err error
	a.archive, err = archive.NewService(archive.Config{
		Enabled:       cfg.Archive.Enabled,
		DBPath:        cfg.Archive.DBPath,
		BatchSize:     cfg.Archive.BatchSize,
		BatchTimeout:  cfg.Archive.BatchTimeout,
		RetentionDays: cfg.Archive.RetentionDays,
	}, logger.New("archive"))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	opts := []aggregator.Option{
		aggregator.WithCapacity(cfg.HistoryCapacity),
		aggregator.WithThresholds(cfg.Thresholds),
		aggregator.WithLogger(logger.New("aggregator")),
	}
	if cfg.Archive.Enabled {
		opts = append(opts, aggregator.WithRecorder(a.archive))
	}
	a.sensors, err = aggregator.New(opts...)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	a.hub = websocket.NewHub(cfg.HTTP.AllowOrigins, logger.New("websocket"))
	a.sensors.Subscribe(a.hub.BroadcastUpdate)

	if cfg.Redis.Enabled {
		a.redis = notify.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.publisher = notify.NewPublisher(a.redis, notify.Config{
			Stream: cfg.Redis.Stream,
			MaxLen: cfg.Redis.MaxLen,
		}, logger.New("notify"))
	}

	a.sensors.OnAlert(a.onAlert)
	if cfg.Archive.Enabled {
		a.sensors.OnAlertChange(a.archiveAlert)
	}

	a.runner = simulator.NewRunner(simulator.NewGenerator(), a.sensors)

	if cfg.MQTT.Enabled {
		a.mqtt = mqtt.NewSubscriber(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			QoS:      byte(cfg.MQTT.QoS),
		}, a.sensors, logger.New("mqtt"))
	}

	a.scheduler = scheduler.New(logger.New("scheduler"))
	if cfg.Archive.Enabled && cfg.Scheduler.RetentionSchedule != "" {
		job := scheduler.RetentionJob(a.archive, cfg.Archive.RetentionDays, time.Now, logger.New("retention"))
		if err := a.scheduler.Add(scheduler.RetentionJobName, cfg.Scheduler.RetentionSchedule, job); err != nil {
			return nil, errFactory.Wrap(errors.ErrInitApp, err)
		}
	}
	if cfg.Scheduler.SummarySchedule != "" {
		job := scheduler.SummaryJob(a.sensors, logger.New("summary"))
		if err := a.scheduler.Add(scheduler.SummaryJobName, cfg.Scheduler.SummarySchedule, job); err != nil {
			return nil, errFactory.Wrap(errors.ErrInitApp, err)
		}
	}

	if logger.ParseLevel(cfg.LogLevel) != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(
		api.Config{AllowOrigins: cfg.HTTP.AllowOrigins, Version: version},
		api.Deps{
			Sensors:   a.sensors,
			Simulator: a.runner,
			Jobs:      a.scheduler,
			Stream:    a.hub,
		},
		logger.New("http"),
	)
	a.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// onAlert runs inside the raising sensor's critical section, so every
// consumer here must return quickly.
func (a *app) onAlert(al alert.Alert) {
	a.hub.BroadcastAlert(al)

	if a.cfg.Archive.Enabled {
		a.archiveAlert(al)
	}
	if a.publisher != nil {
		a.publisher.Notify(al)
	}
}

// archiveAlert upserts by id, so an acknowledgement overwrites the raised row.
func (a *app) archiveAlert(al alert.Alert) {
	if err := a.archive.RecordAlert(context.Background(), al); err != nil {
		logger.Warn().Err(err).Str("alert", al.ID).Msg("Failed to archive alert")
	}
}

func (a *app) run(ctx context.Context) error {
	errFactory := errors.New()

	go a.hub.Run(ctx)
	if a.publisher != nil {
		go a.publisher.Run(ctx)
	}

	for _, device := range a.cfg.Devices() {
		if err := a.sensors.Connect(device); err != nil {
			return err
		}
		if err := a.runner.Start(ctx, device, a.cfg.SimulationInterval(device.ID)); err != nil {
			return err
		}
	}

	if a.mqtt != nil {
		if err := a.mqtt.Start(); err != nil {
			return err
		}
	}

	a.scheduler.Start()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", a.server.Addr).
			Str("version", version).
			Msg("HTTP server listening")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- errFactory.Wrap(errors.ErrStartHTTP, err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErr:
		return err
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func (a *app) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to shut down HTTP server")
	}

	a.scheduler.Stop()
	a.runner.StopAll()

	if a.mqtt != nil {
		if err := a.mqtt.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close MQTT subscriber")
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close Redis client")
		}
	}

	if err := a.archive.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close archive")
	}

	logger.Info().Msg("Exiting...")
}
