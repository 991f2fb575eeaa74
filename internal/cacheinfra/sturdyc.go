package cacheinfra

import (
	"context"
	"path"
	"time"

	"github.com/viccon/sturdyc"
)

// SturdycConfig holds the configuration for the in-process sturdyc backend.
type SturdycConfig struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int `yaml:"capacity"`

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int `yaml:"num_shards"`

	// TTL is the time-to-live applied to every cached entry. sturdyc fixes
	// the TTL at construction, so per-entry ttl arguments passed to Set are
	// ignored by this backend. Must be greater than 0.
	TTL time.Duration `yaml:"ttl"`

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int `yaml:"eviction_percentage"`

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the sturdyc default interval.
	EvictionInterval time.Duration `yaml:"eviction_interval"`
}

// DefaultSturdycConfig returns a SturdycConfig with sensible defaults for
// most use cases.
func DefaultSturdycConfig() SturdycConfig {
	return SturdycConfig{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
// Returns an error if any configuration parameter is invalid.
func (c SturdycConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

func (c SturdycConfig) toSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// SturdycBackend is an in-process Backend backed by a sharded sturdyc store.
// It is the backend of choice for tests and single-process deployments where
// a networked cache tier is not worth its round trips.
type SturdycBackend struct {
	client *sturdyc.Client[[]byte]
}

// NewSturdycBackend validates the configuration and initializes a sturdyc
// client with the provided settings. Capacity, NumShards, TTL, and
// EvictionPercentage are passed directly to sturdyc.New; the remaining
// options are applied via toSturdycOptions.
func NewSturdycBackend(cfg SturdycConfig) (*SturdycBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.toSturdycOptions()...,
	)

	return &SturdycBackend{client: client}, nil
}

// Get implements Backend.
func (s *SturdycBackend) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := s.client.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

// Set implements Backend. The ttl argument is ignored: sturdyc applies the
// TTL fixed at construction time.
func (s *SturdycBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.client.Set(key, value)
	return nil
}

// Delete implements Backend.
func (s *SturdycBackend) Delete(_ context.Context, key string) (bool, error) {
	_, existed := s.client.Get(key)
	s.client.Delete(key)
	return existed, nil
}

// DeletePattern implements Backend by scanning every key and matching the
// glob pattern with path.Match, mirroring the SCAN-based pattern delete of
// the networked backends.
func (s *SturdycBackend) DeletePattern(_ context.Context, pattern string) (int, error) {
	count := 0
	for _, key := range s.client.ScanKeys() {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return count, err
		}
		if ok {
			s.client.Delete(key)
			count++
		}
	}
	return count, nil
}

// Ping implements Backend. The in-process store is always reachable.
func (s *SturdycBackend) Ping(context.Context) error { return nil }

// Close implements Backend.
func (s *SturdycBackend) Close() error { return nil }
