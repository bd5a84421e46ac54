// Package mqtt ingests readings published by devices to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"codeberg.org/mutker/sensorhub/internal/aggregator"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250
	ingestTimeout     = 5 * time.Second
)

type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// Ingester is the part of the aggregation service the subscriber drives.
type Ingester interface {
	Connect(device sensor.Device) error
	Ingest(ctx context.Context, sensorID string, typ sensor.Type, reading sensor.Reading) error
	ReportBattery(id string, level int) error
}

type Subscriber struct {
	cfg      Config
	ingester Ingester
	client   paho.Client
	log      logger.Logger
}

func NewSubscriber(cfg Config, ingester Ingester, log logger.Logger) *Subscriber {
	return &Subscriber{
		cfg:      cfg,
		ingester: ingester,
		log:      log,
	}
}

// Start connects to the broker and subscribes. The subscription is
// renewed on every reconnect.
func (s *Subscriber) Start() error {
	errFactory := errors.New()

	opts := paho.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(false).
		SetOnConnectHandler(func(c paho.Client) {
			token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.onMessage)
			if token.Wait() && token.Error() != nil {
				s.log.ErrorWithCode(errFactory.Wrap(ErrSubscribe, token.Error())).
					Str("topic", s.cfg.Topic).
					Send()
				return
			}
			s.log.Info().
				Str("broker", s.cfg.Broker).
				Str("topic", s.cfg.Topic).
				Msg("Subscribed to device readings")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			s.log.Warn().Err(err).Msg("MQTT connection lost")
		})
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username).SetPassword(s.cfg.Password)
	}

	s.client = paho.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return errFactory.Wrap(ErrConnect, token.Error())
	}

	return nil
}

func (s *Subscriber) onMessage(_ paho.Client, msg paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if err := s.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
		s.log.Debug().
			Err(err).
			Str("topic", msg.Topic()).
			Msg("Device message dropped")
	}
}

// Handle decodes one publication and feeds it to the ingester. Devices
// seen for the first time are connected automatically.
func (s *Subscriber) Handle(ctx context.Context, topic string, body []byte) error {
	m, err := Decode(s.cfg.Topic, topic, body)
	if err != nil {
		return err
	}

	err = s.ingester.Ingest(ctx, m.SensorID, m.Type, m.Reading)
	if errors.HasCode(err, aggregator.ErrUnknownSensor) {
		name := m.Name
		if name == "" {
			name = m.SensorID
		}
		if cerr := s.ingester.Connect(sensor.Device{
			ID:             m.SensorID,
			Name:           name,
			Type:           m.Type,
			ConnectionType: sensor.WiFi,
		}); cerr != nil {
			return cerr
		}
		err = s.ingester.Ingest(ctx, m.SensorID, m.Type, m.Reading)
	}
	if err != nil {
		return err
	}

	if m.Battery != nil {
		return s.ingester.ReportBattery(m.SensorID, *m.Battery)
	}

	return nil
}

func (s *Subscriber) Close() error {
	if s.client == nil || !s.client.IsConnected() {
		return nil
	}

	if token := s.client.Unsubscribe(s.cfg.Topic); token.WaitTimeout(connectTimeout) && token.Error() != nil {
		s.log.Warn().Err(token.Error()).Msg("Failed to unsubscribe")
	}
	s.client.Disconnect(disconnectQuiesce)
	s.log.Info().Msg("MQTT subscriber closed")

	return nil
}
