// Package config loads the YAML configuration shared by the callapi command
// and builds the configured cache backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/illmade-knight/go-callapi/pkg/callapi"
	"github.com/illmade-knight/go-callapi/pkg/kvstore"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Backend names a kvstore implementation.
type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendLRU       Backend = "lru"
	BackendSturdy    Backend = "sturdyc"
	BackendRedis     Backend = "redis"
	BackendFirestore Backend = "firestore"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LRUConfig sizes the lru backend.
type LRUConfig struct {
	MaxSize int `yaml:"max_size"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend   Backend                 `yaml:"backend"`
	Namespace string                  `yaml:"namespace"`
	Version   int                     `yaml:"version"`
	LRU       LRUConfig               `yaml:"lru"`
	Sturdy    kvstore.SturdyConfig    `yaml:"sturdyc"`
	Redis     kvstore.RedisConfig     `yaml:"redis"`
	Firestore kvstore.FirestoreConfig `yaml:"firestore"`
}

// HTTPConfig configures the HTTP API client.
type HTTPConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Config is the root configuration document.
type Config struct {
	LogLevel string      `yaml:"log_level"`
	Cache    CacheConfig `yaml:"cache"`
	HTTP     HTTPConfig  `yaml:"http"`
}

// Default returns a configuration using the in-memory backend.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Cache: CacheConfig{
			Backend:   BackendMemory,
			Namespace: callapi.DefaultNamespace,
			Version:   callapi.DefaultVersion,
			LRU:       LRUConfig{MaxSize: 1000},
			Sturdy:    kvstore.DefaultSturdyConfig(),
			Redis:     kvstore.RedisConfig{Addr: "localhost:6379"},
		},
		HTTP: HTTPConfig{Timeout: 30 * time.Second},
	}
}

// Load reads the YAML file at path over the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the selected backend depends on.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Cache.Namespace) == "" {
		return fmt.Errorf("%w: cache.namespace must not be empty", ErrInvalidConfig)
	}
	if c.Cache.Version < 1 {
		return fmt.Errorf("%w: cache.version must be at least 1", ErrInvalidConfig)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("%w: http.timeout must not be negative", ErrInvalidConfig)
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendLRU:
		if c.Cache.LRU.MaxSize <= 0 {
			return fmt.Errorf("%w: cache.lru.max_size must be greater than 0", ErrInvalidConfig)
		}
	case BackendSturdy:
		if err := c.Cache.Sturdy.Validate(); err != nil {
			return fmt.Errorf("%w: cache.sturdyc: %w", ErrInvalidConfig, err)
		}
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("%w: cache.redis.addr is required", ErrInvalidConfig)
		}
	case BackendFirestore:
		if c.Cache.Firestore.ProjectID == "" {
			return fmt.Errorf("%w: cache.firestore.project_id is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache.backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	return nil
}

// Level parses LogLevel. An empty level means info.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}
	return level, nil
}
