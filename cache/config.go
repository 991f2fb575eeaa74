package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-entity-store/internal/cacheinfra"
)

// Backend selection values for Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Codec selection values for Config.Codec.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// CompressionConfig controls the opportunistic zstd compression applied to
// cached payloads.
type CompressionConfig struct {
	// Enabled turns compression on for writes. Reads always detect and
	// decompress compressed entries regardless of this flag.
	Enabled bool `yaml:"enabled"`

	// Threshold is the serialized size in bytes at which a payload is
	// compressed. Smaller payloads are stored raw. Default: 1024.
	Threshold int `yaml:"threshold"`

	// Level is the zstd compression level (1-22). Level 3 balances speed
	// and ratio for JSON payloads.
	Level int `yaml:"level"`
}

// Config exposes cache configuration options for consumers of the cache
// package. It selects the backend, codec, and compression behavior; backend
// specific settings live in the Memory and Redis sections.
type Config struct {
	// Backend selects the cache tier: "memory" (in-process sturdyc) or
	// "redis" (networked).
	Backend string `yaml:"backend"`

	// DefaultTTL is the expiry handed to Set calls that pass a zero ttl.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// Codec selects the value serialization: "json" (default) or "msgpack".
	Codec string `yaml:"codec"`

	Compression CompressionConfig        `yaml:"compression"`
	Memory      cacheinfra.SturdycConfig `yaml:"memory"`
	Redis       cacheinfra.RedisConfig   `yaml:"redis"`
}

// DefaultConfig returns a Config populated with sensible defaults: memory
// backend, JSON codec, compression on at the 1KB threshold.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendMemory,
		DefaultTTL: 5 * time.Minute,
		Codec:      CodecJSON,
		Compression: CompressionConfig{
			Enabled:   true,
			Threshold: 1024,
			Level:     3,
		},
		Memory: cacheinfra.DefaultSturdycConfig(),
		Redis:  cacheinfra.DefaultRedisConfig(),
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		if err := c.Memory.Validate(); err != nil {
			return err
		}
	case BackendRedis:
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cache: unknown backend %q", c.Backend)
	}

	switch c.Codec {
	case CodecJSON, CodecMsgpack:
	default:
		return fmt.Errorf("cache: unknown codec %q", c.Codec)
	}

	if c.Compression.Enabled {
		if c.Compression.Threshold < 0 {
			return fmt.Errorf("cache: compression threshold must be non-negative")
		}
		if c.Compression.Level < 1 || c.Compression.Level > 22 {
			return fmt.Errorf("cache: compression level must be between 1 and 22")
		}
	}

	return nil
}

func (c Config) codec() Codec {
	if c.Codec == CodecMsgpack {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

// New constructs the cache service for the configured backend. logger may
// be nil.
func New(cfg Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var backend cacheinfra.Backend
	var err error
	switch cfg.Backend {
	case BackendRedis:
		backend, err = cacheinfra.NewRedisBackend(cfg.Redis)
	default:
		backend, err = cacheinfra.NewSturdycBackend(cfg.Memory)
	}
	if err != nil {
		return nil, err
	}

	return NewService(backend, cfg, logger)
}
