package di

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/goliatone/go-entity-store/cache"
	"github.com/goliatone/go-entity-store/notify"
	"github.com/goliatone/go-entity-store/pkg/logging"
)

// DatabaseConfig holds the connection and pool settings for the backing
// store.
type DatabaseConfig struct {
	// Driver is postgres or sqlite.
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite"`

	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn" validate:"required"`

	MaxOpenConns    int           `yaml:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`

	// QueryLog enables the bundebug hook, printing every query.
	QueryLog bool `yaml:"query_log"`
}

// NotifyConfig wires the optional created-event publisher. Disabled means
// the nop publisher.
type NotifyConfig struct {
	Enabled bool          `yaml:"enabled"`
	NATS    notify.Config `yaml:"nats"`
}

// MetricsConfig controls the optional Prometheus cache instrumentation.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the full container configuration.
type Config struct {
	Logger   logging.Config `yaml:"logger"`
	Database DatabaseConfig `yaml:"database"`
	Cache    cache.Config   `yaml:"cache"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DefaultConfig returns a configuration that runs without any external
// service: sqlite in memory, in-process cache, no publisher.
func DefaultConfig() Config {
	return Config{
		Logger: logging.DefaultConfig(),
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file::memory:?cache=shared",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Cache: cache.DefaultConfig(),
		Notify: NotifyConfig{
			Enabled: false,
			NATS:    notify.DefaultConfig(),
		},
	}
}

// Validate checks the configuration, delegating to the cache package for
// its section.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("di: invalid config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads a yaml file over the defaults, so a config file only
// needs the values it changes. Durations accept Go syntax ("30s", "5m").
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("di: read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return Config{}, fmt.Errorf("di: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
