package cacheinfra

import (
	"errors"
	"testing"
)

func TestRedisConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RedisConfig)
		wantField string
	}{
		{"defaults are valid", func(*RedisConfig) {}, ""},
		{"empty host", func(c *RedisConfig) { c.Host = "" }, "Host"},
		{"zero port", func(c *RedisConfig) { c.Port = 0 }, "Port"},
		{"port out of range", func(c *RedisConfig) { c.Port = 70000 }, "Port"},
		{"negative db", func(c *RedisConfig) { c.DB = -1 }, "DB"},
		{"zero pool", func(c *RedisConfig) { c.PoolSize = 0 }, "PoolSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRedisConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Validate() field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestRedisBackendKeyPrefix(t *testing.T) {
	backend := &RedisBackend{prefix: "entity-store"}
	if got := backend.fullKey("user:1"); got != "entity-store:user:1" {
		t.Errorf("fullKey() = %q, want %q", got, "entity-store:user:1")
	}

	backend = &RedisBackend{}
	if got := backend.fullKey("user:1"); got != "user:1" {
		t.Errorf("fullKey() without prefix = %q, want %q", got, "user:1")
	}
}

func TestNewRedisBackendRejectsBadConfig(t *testing.T) {
	cfg := DefaultRedisConfig()
	cfg.Port = -1

	if _, err := NewRedisBackend(cfg); err == nil {
		t.Fatal("NewRedisBackend() error = nil, want config error")
	}
}
