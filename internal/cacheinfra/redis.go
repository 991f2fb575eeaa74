package cacheinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the configuration for the networked redis backend.
type RedisConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Password           string        `yaml:"password"`
	DB                 int           `yaml:"db"`
	PoolSize           int           `yaml:"pool_size"`
	MinIdleConnections int           `yaml:"min_idle_connections"`
	DialTimeout        time.Duration `yaml:"dial_timeout"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`

	// KeyPrefix namespaces every key written through this backend so
	// multiple applications can share one redis instance.
	KeyPrefix string `yaml:"key_prefix"`
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults for a
// local redis instance.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:               "localhost",
		Port:               6379,
		DB:                 0,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
	}
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	if c.Host == "" {
		return &ConfigError{Field: "Host", Message: "must not be empty"}
	}

	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigError{Field: "Port", Message: "must be a valid port number"}
	}

	if c.DB < 0 {
		return &ConfigError{Field: "DB", Message: "must be non-negative"}
	}

	if c.PoolSize <= 0 {
		return &ConfigError{Field: "PoolSize", Message: "must be greater than 0"}
	}

	return nil
}

// RedisBackend is a Backend backed by a pooled go-redis client. Payloads are
// stored as raw byte strings, so compressed and uncompressed entries coexist
// without the backend knowing the difference.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend validates the configuration and builds a redis client.
// Connectivity is not checked here; call Ping to verify the instance is
// reachable before serving traffic.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConnections,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	return &RedisBackend{client: client, prefix: cfg.KeyPrefix}, nil
}

// Get implements Backend. A redis.Nil reply is reported as ErrKeyNotFound.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return value, nil
}

// Set implements Backend.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.fullKey(key), value, ttl).Err()
}

// Delete implements Backend.
func (r *RedisBackend) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := r.client.Del(ctx, r.fullKey(key)).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// DeletePattern implements Backend using a cursor SCAN instead of KEYS, so
// large keyspaces are walked without blocking the server.
func (r *RedisBackend) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.fullKey(pattern), 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// Ping implements Backend.
func (r *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Close implements Backend.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) fullKey(key string) string {
	if r.prefix != "" {
		return r.prefix + ":" + key
	}
	return key
}
