// Package config loads the YAML configuration for the stream pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"ais_parser/internal/api"
	"ais_parser/internal/metrics"
	"ais_parser/internal/publish"
	"ais_parser/internal/source"
	"ais_parser/internal/storage"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the stream pipeline configuration.
type Config struct {
	LogLevel       string          `yaml:"log_level"`
	Sources        []source.Config `yaml:"sources"`
	VerifyChecksum bool            `yaml:"verify_checksum"`
	Layout         string          `yaml:"layout"`      // Optional layout JSON replacing the built-in table.
	StateDB        string          `yaml:"state_db"`    // Vessel tracker database; empty keeps state in memory.
	PruneAfter     time.Duration   `yaml:"prune_after"` // Forget vessels not heard from for this long; 0 disables.
	Storage        storage.Config  `yaml:"storage"`
	NATS           struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
		Format  string `yaml:"format"`
	} `yaml:"nats"`
	MQTT struct {
		Enabled            bool   `yaml:"enabled"`
		Format             string `yaml:"format"`
		publish.MQTTConfig `yaml:",inline"`
	} `yaml:"mqtt"`
	InfluxDB metrics.Config `yaml:"influxdb"`
	API      struct {
		Enabled    bool `yaml:"enabled"`
		api.Config `yaml:",inline"`
	} `yaml:"api"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() Config {
	var c Config
	c.LogLevel = "info"
	c.Storage = storage.DefaultConfig()
	c.NATS.URL = "nats://localhost:4222"
	c.NATS.Subject = "ais"
	c.NATS.Format = "json"
	c.MQTT.Format = "json"
	c.MQTT.Broker = "localhost:1883"
	c.MQTT.Topic = "ais/vessels"
	c.InfluxDB.Interval = 10 * time.Second
	c.API.Port = 8080
	return c
}

// Load reads a YAML file over the defaults and applies environment
// overrides.
func Load(path string) (Config, error) {
	c := Default()

	contents, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// applyEnv overrides credentials and endpoints from the environment.
func (c *Config) applyEnv() {
	pg := &c.Storage.Postgres
	pg.Host = envOrDefault("POSTGRES_HOST", pg.Host)
	pg.Port = envOrDefaultInt("POSTGRES_PORT", pg.Port)
	pg.User = envOrDefault("POSTGRES_USER", pg.User)
	pg.Password = envOrDefault("POSTGRES_PASSWORD", pg.Password)
	pg.Database = envOrDefault("POSTGRES_DATABASE", pg.Database)

	ch := &c.Storage.ClickHouse
	ch.Host = envOrDefault("CLICKHOUSE_HOST", ch.Host)
	ch.Port = envOrDefaultInt("CLICKHOUSE_PORT", ch.Port)
	ch.User = envOrDefault("CLICKHOUSE_USER", ch.User)
	ch.Password = envOrDefault("CLICKHOUSE_PASSWORD", ch.Password)
	ch.Database = envOrDefault("CLICKHOUSE_DATABASE", ch.Database)

	c.NATS.URL = envOrDefault("NATS_URL", c.NATS.URL)
	c.MQTT.Broker = envOrDefault("MQTT_BROKER", c.MQTT.Broker)
	c.InfluxDB.Host = envOrDefault("INFLUX_HOST", c.InfluxDB.Host)
	c.InfluxDB.Token = envOrDefault("INFLUX_TOKEN", c.InfluxDB.Token)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: no sources", ErrInvalid)
	}
	for i, s := range c.Sources {
		if s.Address == "" {
			return fmt.Errorf("%w: source %d has no address", ErrInvalid, i)
		}
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	if c.NATS.Enabled {
		if _, err := publish.NewEncoder(c.NATS.Format); err != nil {
			return fmt.Errorf("%w: nats: %v", ErrInvalid, err)
		}
	}
	if c.MQTT.Enabled {
		if _, err := publish.NewEncoder(c.MQTT.Format); err != nil {
			return fmt.Errorf("%w: mqtt: %v", ErrInvalid, err)
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("%w: mqtt qos %d", ErrInvalid, c.MQTT.QoS)
		}
	}
	if c.PruneAfter < 0 {
		return fmt.Errorf("%w: negative prune_after", ErrInvalid)
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(c.LogLevel)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
