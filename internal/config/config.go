package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/history"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel          = "info"
	DefaultEnvPrefix         = "SENSORHUB"
	DefaultEnvFile           = ".env"
	DefaultHTTPAddr          = ":8080"
	DefaultDBPath            = "/var/lib/sensorhub/readings.db"
	DefaultBatchSize         = 100
	DefaultBatchTimeout      = 5 * time.Second
	DefaultRetentionDays     = 30
	DefaultMQTTBroker        = "tcp://localhost:1883"
	DefaultMQTTClientID      = "sensorhub"
	DefaultMQTTTopic         = "sensors/+/readings"
	DefaultMQTTQoS           = 1
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisStream       = "sensorhub:alerts"
	DefaultRedisMaxLen       = 1000
	DefaultRetentionSchedule = "0 3 * * *"
	DefaultSummarySchedule   = "@every 1m"
)

type Config struct {
	LogLevel         string            `mapstructure:"log_level"`
	HistoryCapacity  int               `mapstructure:"history_capacity"`
	Simulate         bool              `mapstructure:"simulate"`
	SimulatedSensors []SimulatedSensor `mapstructure:"simulated_sensors"`
	HTTP             HTTPConfig        `mapstructure:"http"`
	Archive          ArchiveConfig     `mapstructure:"archive"`
	MQTT             MQTTConfig        `mapstructure:"mqtt"`
	Redis            RedisConfig       `mapstructure:"redis"`
	Scheduler        SchedulerConfig   `mapstructure:"scheduler"`
	Thresholds       alert.Thresholds  `mapstructure:"-"`
	ConfigFile       string            `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("history_capacity", history.DefaultCapacity)
	v.SetDefault("simulate", false)
	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.allow_origins", []string{"*"})
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.db_path", DefaultDBPath)
	v.SetDefault("archive.batch_size", DefaultBatchSize)
	v.SetDefault("archive.batch_timeout", DefaultBatchTimeout)
	v.SetDefault("archive.retention_days", DefaultRetentionDays)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", DefaultMQTTBroker)
	v.SetDefault("mqtt.client_id", DefaultMQTTClientID)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("mqtt.qos", DefaultMQTTQoS)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", DefaultRedisStream)
	v.SetDefault("redis.max_len", DefaultRedisMaxLen)
	v.SetDefault("scheduler.retention_schedule", DefaultRetentionSchedule)
	v.SetDefault("scheduler.summary_schedule", DefaultSummarySchedule)
}

func newFlagSet(v *viper.Viper) (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet("sensorhub", pflag.ContinueOnError)
	fs.String("config", "", "Path to the TOML configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Int("history-capacity", history.DefaultCapacity, "Readings kept per sensor")
	fs.Bool("simulate", false, "Drive configured sensors with simulated readings")
	fs.String("http-addr", DefaultHTTPAddr, "HTTP listen address")

	bindings := map[string]string{
		"log_level":        "log-level",
		"history_capacity": "history-capacity",
		"simulate":         "simulate",
		"http.addr":        "http-addr",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, err
		}
	}

	return fs, nil
}

func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix: DefaultEnvPrefix,
		envFile:   DefaultEnvFile,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !os.IsNotExist(err) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	fs, err := newFlagSet(v)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit option wins over the flag, the flag over the environment
	configPath := o.configPath
	if configPath == "" {
		configPath, _ = fs.GetString("config")
	}
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	thresholds, err := loadThresholds(v)
	if err != nil {
		return nil, err
	}
	config.Thresholds = thresholds

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName("sensorhub")
	v.AddConfigPath("/etc/sensorhub")
	v.AddConfigPath("/etc")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// loadThresholds applies thresholds.<type>.<tier>.min|max overrides to the
// built-in table.
func loadThresholds(v *viper.Viper) (alert.Thresholds, error) {
	errFactory := errors.New()
	thresholds := alert.DefaultThresholds()

	for _, typ := range sensor.Types() {
		tiers := thresholds[typ]
		for _, tier := range []string{alert.TierCritical, alert.TierWarning, alert.TierInfo} {
			band, _ := tiers.Band(tier)
			prefix := "thresholds." + string(typ) + "." + tier
			if v.IsSet(prefix + ".min") {
				band.Min = v.GetFloat64(prefix + ".min")
			}
			if v.IsSet(prefix + ".max") {
				band.Max = v.GetFloat64(prefix + ".max")
			}
			if err := tiers.SetBand(tier, band); err != nil {
				return nil, errFactory.Wrap(errors.ErrInvalidThresholds, err)
			}
		}
		thresholds[typ] = tiers
	}

	for key := range v.GetStringMap("thresholds") {
		if !sensor.Type(key).IsValid() {
			return nil, errFactory.WithData(errors.ErrInvalidThresholds, key)
		}
	}

	return thresholds, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.HistoryCapacity <= 0 {
		return errFactory.WithData(errors.ErrInvalidHistoryCapacity, c.HistoryCapacity)
	}

	if err := c.Thresholds.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidThresholds, err)
	}

	if c.Archive.Enabled {
		if c.Archive.DBPath == "" || c.Archive.BatchSize <= 0 || c.Archive.BatchTimeout <= 0 {
			return errFactory.WithData(errors.ErrInvalidConfig, "archive")
		}
		if c.Archive.RetentionDays < 0 {
			return errFactory.WithData(errors.ErrInvalidConfig, "archive.retention_days")
		}
	}

	if c.MQTT.Enabled && (c.MQTT.Broker == "" || c.MQTT.Topic == "") {
		return errFactory.WithData(errors.ErrInvalidConfig, "mqtt")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errFactory.WithData(errors.ErrInvalidConfig, "mqtt.qos")
	}

	if c.Redis.Enabled && (c.Redis.Addr == "" || c.Redis.Stream == "") {
		return errFactory.WithData(errors.ErrInvalidConfig, "redis")
	}

	seen := make(map[string]struct{}, len(c.SimulatedSensors))
	for _, s := range c.SimulatedSensors {
		if s.ID == "" || !sensor.Type(s.Type).IsValid() {
			return errFactory.WithData(errors.ErrInvalidConfig, "simulated_sensors: "+s.ID)
		}
		if s.Connection != "" && !sensor.ConnectionType(s.Connection).IsValid() {
			return errFactory.WithData(errors.ErrInvalidConfig, "simulated_sensors: "+s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return errFactory.WithData(errors.ErrInvalidConfig, "simulated_sensors: duplicate "+s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	return nil
}

// Devices returns the simulated sensors as devices. When simulation is on
// and none are configured, one device per sensor type is created.
func (c *Config) Devices() []sensor.Device {
	if !c.Simulate {
		return nil
	}

	if len(c.SimulatedSensors) == 0 {
		devices := make([]sensor.Device, 0, len(sensor.Types()))
		for _, typ := range sensor.Types() {
			devices = append(devices, sensor.Device{
				ID:             "sim-" + string(typ),
				Name:           "Simulated " + strings.ReplaceAll(string(typ), "_", " "),
				Type:           typ,
				ConnectionType: sensor.WiFi,
				Status:         sensor.StatusDisconnected,
			})
		}
		return devices
	}

	devices := make([]sensor.Device, 0, len(c.SimulatedSensors))
	for _, s := range c.SimulatedSensors {
		conn := sensor.ConnectionType(s.Connection)
		if conn == "" {
			conn = sensor.WiFi
		}
		name := s.Name
		if name == "" {
			name = s.ID
		}
		devices = append(devices, sensor.Device{
			ID:             s.ID,
			Name:           name,
			Type:           sensor.Type(s.Type),
			ConnectionType: conn,
			Status:         sensor.StatusDisconnected,
		})
	}

	return devices
}

// SimulationInterval returns the configured cadence for a simulated sensor,
// or zero to use the profile default.
func (c *Config) SimulationInterval(id string) time.Duration {
	for _, s := range c.SimulatedSensors {
		if s.ID == id {
			return s.Interval
		}
	}

	return 0
}
