package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/config"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sensorhub.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func load(t *testing.T, opts ...config.Option) (*config.Config, error) {
	t.Helper()

	// Keep the test environment from picking up stray dotenv files
	return config.Load(append([]config.Option{config.WithEnvFile("")}, opts...)...)
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
log_level = "debug"
history_capacity = 50
simulate = true

[http]
addr = ":9090"
allow_origins = ["http://localhost:3000"]

[archive]
enabled = true
db_path = "/tmp/readings.db"
batch_size = 10
batch_timeout = "2s"
retention_days = 7

[mqtt]
enabled = true
broker = "tcp://broker:1883"
topic = "lab/+/readings"
qos = 0

[[simulated_sensors]]
id = "lab-temp"
name = "Lab"
type = "temperature"
connection = "usb"
interval = "250ms"
`)

	t.Setenv("SENSORHUB_CONFIG", configPath)

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 50, cfg.HistoryCapacity)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowOrigins)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "/tmp/readings.db", cfg.Archive.DBPath)
	assert.Equal(t, 10, cfg.Archive.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Archive.BatchTimeout)
	assert.Equal(t, 7, cfg.Archive.RetentionDays)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "lab/+/readings", cfg.MQTT.Topic)
	assert.Equal(t, 0, cfg.MQTT.QoS)
	assert.Equal(t, configPath, cfg.ConfigFile)

	devices := cfg.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, "lab-temp", devices[0].ID)
	assert.Equal(t, sensor.Temperature, devices[0].Type)
	assert.Equal(t, sensor.USB, devices[0].ConnectionType)
	assert.Equal(t, 250*time.Millisecond, cfg.SimulationInterval("lab-temp"))
}

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file is used
	t.Setenv("SENSORHUB_CONFIG", "")

	cfg, err := load(t)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, 100, cfg.HistoryCapacity)
	assert.False(t, cfg.Simulate)
	assert.Equal(t, config.DefaultHTTPAddr, cfg.HTTP.Addr)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, config.DefaultBatchSize, cfg.Archive.BatchSize)
	assert.Equal(t, config.DefaultBatchTimeout, cfg.Archive.BatchTimeout)
	assert.Equal(t, config.DefaultMQTTTopic, cfg.MQTT.Topic)
	assert.Equal(t, config.DefaultRedisStream, cfg.Redis.Stream)
	assert.Equal(t, alert.DefaultThresholds(), cfg.Thresholds)
	assert.Empty(t, cfg.Devices())
}

func TestDefaultSimulatedDevices(t *testing.T) {
	t.Setenv("SENSORHUB_CONFIG", "")

	cfg, err := load(t, config.WithArgs([]string{"--simulate"}))
	require.NoError(t, err)

	devices := cfg.Devices()
	require.Len(t, devices, len(sensor.Types()))
	assert.Equal(t, "sim-air_quality", devices[6].ID)
	assert.Equal(t, "Simulated air quality", devices[6].Name)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("SENSORHUB_CONFIG", configPath)

	_, err := load(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := load(t, config.WithConfigFile(filepath.Join(t.TempDir(), "missing.toml")))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestInvalidLogLevel(t *testing.T) {
	configPath := writeConfig(t, `
log_level = "invalid"
`)
	t.Setenv("SENSORHUB_CONFIG", configPath)

	_, err := load(t)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestInvalidHistoryCapacity(t *testing.T) {
	t.Setenv("SENSORHUB_CONFIG", "")

	_, err := load(t, config.WithArgs([]string{"--history-capacity", "0"}))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidHistoryCapacity))
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("SENSORHUB_CONFIG", "")

	cfg, err := load(t, config.WithArgs([]string{"--log-level", "debug"}))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}

func TestFlagOverridesFile(t *testing.T) {
	configPath := writeConfig(t, `
log_level = "error"
`)

	cfg, err := load(t, config.WithArgs([]string{"--config", configPath, "--log-level", "warning"}))
	require.NoError(t, err)
	assert.Equal(t, "warning", cfg.LogLevel)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SENSORHUB_CONFIG", "")
	t.Setenv("SENSORHUB_HISTORY_CAPACITY", "25")
	t.Setenv("SENSORHUB_REDIS_ADDR", "redis:6380")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.HistoryCapacity)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestEnvFile(t *testing.T) {
	t.Setenv("SENSORHUB_CONFIG", "")

	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SENSORHUB_LOG_LEVEL=error\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SENSORHUB_LOG_LEVEL") })

	cfg, err := config.Load(config.WithEnvFile(envPath))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestThresholdOverrides(t *testing.T) {
	configPath := writeConfig(t, `
[thresholds.temperature.critical]
min = -10
max = 35

[thresholds.temperature.warning]
max = 30
`)
	t.Setenv("SENSORHUB_CONFIG", configPath)

	cfg, err := load(t)
	require.NoError(t, err)

	tiers := cfg.Thresholds[sensor.Temperature]
	assert.Equal(t, alert.Band{Min: -10, Max: 35}, tiers.Critical)
	assert.Equal(t, alert.Band{Min: 0, Max: 30}, tiers.Warning)
	assert.Equal(t, alert.DefaultThresholds()[sensor.Humidity], cfg.Thresholds[sensor.Humidity])
}

func TestInvalidThresholds(t *testing.T) {
	tests := map[string]string{
		"inverted band": `
[thresholds.humidity.warning]
min = 90
max = 10
`,
		"unknown type": `
[thresholds.radiation.critical]
max = 5
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SENSORHUB_CONFIG", writeConfig(t, content))

			_, err := load(t)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrInvalidThresholds))
		})
	}
}

func TestInvalidSimulatedSensor(t *testing.T) {
	configPath := writeConfig(t, `
[[simulated_sensors]]
id = "x"
type = "radiation"
`)
	t.Setenv("SENSORHUB_CONFIG", configPath)

	_, err := load(t)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}
