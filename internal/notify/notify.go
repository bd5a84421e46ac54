// Package notify fans alerts out to a Redis stream for downstream consumers.
package notify

import (
	"context"
	"strconv"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultQueueSize = 256
	publishTimeout   = 2 * time.Second
)

const ErrPublish = errors.ErrorCode("notify_publish_failed")

// Streamer is the part of a Redis client the publisher needs.
type Streamer interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type Config struct {
	Stream    string
	MaxLen    int64
	QueueSize int
}

// Publisher appends alerts to a capped stream from a background worker so
// callers never wait on the network.
type Publisher struct {
	client Streamer
	cfg    Config
	queue  chan alert.Alert
	log    logger.Logger
}

func NewPublisher(client Streamer, cfg Config, log logger.Logger) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	return &Publisher{
		client: client,
		cfg:    cfg,
		queue:  make(chan alert.Alert, cfg.QueueSize),
		log:    log,
	}
}

// NewClient opens a go-redis client for addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Notify queues a for publishing. A full queue drops the alert.
func (p *Publisher) Notify(a alert.Alert) {
	select {
	case p.queue <- a:
	default:
		p.log.Warn().
			Str("alert", a.ID).
			Str("sensor", a.SensorID).
			Msg("Notification queue full, dropping alert")
	}
}

// Run publishes queued alerts until ctx is done, then drains what is left.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case a := <-p.queue:
			p.send(ctx, a)
		case <-ctx.Done():
			for {
				select {
				case a := <-p.queue:
					p.send(context.Background(), a)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) send(ctx context.Context, a alert.Alert) {
	if err := p.Publish(ctx, a); err != nil {
		p.log.Error().
			Err(err).
			Str("alert", a.ID).
			Str("stream", p.cfg.Stream).
			Send()
	}
}

// Publish writes one alert to the stream.
func (p *Publisher) Publish(ctx context.Context, a alert.Alert) error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: p.cfg.Stream,
		Values: Values(a),
	}
	if p.cfg.MaxLen > 0 {
		args.MaxLen = p.cfg.MaxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return errFactory.Wrap(ErrPublish, err)
	}

	p.log.Debug().
		Str("alert", a.ID).
		Str("entry", id).
		Msg("Alert published")

	return nil
}

// Values flattens an alert into stream fields.
func Values(a alert.Alert) map[string]any {
	return map[string]any{
		"id":           a.ID,
		"sensor_id":    a.SensorID,
		"type":         string(a.Kind),
		"severity":     string(a.Severity),
		"message":      a.Message,
		"timestamp":    a.Timestamp.UTC().Format(time.RFC3339Nano),
		"acknowledged": strconv.FormatBool(a.Acknowledged),
	}
}
