package kvstore

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/viccon/sturdyc"
)

// SturdyConfig holds the sizing options passed to sturdyc.New.
type SturdyConfig struct {
	// Capacity is the maximum number of entries across all shards.
	Capacity int `yaml:"capacity"`
	// NumShards is the number of independently locked shards.
	NumShards int `yaml:"num_shards"`
	// TTL is how long an entry lives before sturdyc drops it.
	TTL time.Duration `yaml:"ttl"`
	// EvictionPercentage is the share of a full shard evicted at once (1-100).
	EvictionPercentage int `yaml:"eviction_percentage"`
}

// DefaultSturdyConfig returns a SturdyConfig suitable for a single process.
func DefaultSturdyConfig() SturdyConfig {
	return SturdyConfig{
		Capacity:           10000,
		NumShards:          256,
		TTL:                24 * time.Hour,
		EvictionPercentage: 10,
	}
}

// Validate checks whether the configuration values are valid.
func (c SturdyConfig) Validate() error {
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
	return nil
}

// ConfigError represents a backend configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Sturdy is a sharded in-process backend built on sturdyc. Unlike InMemory it
// bounds memory use and expires entries after the configured TTL.
type Sturdy struct {
	client *sturdyc.Client[[]byte]
}

// NewSturdy validates cfg and creates the sturdyc client.
func NewSturdy(cfg SturdyConfig) (*Sturdy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[[]byte](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage)
	return &Sturdy{client: client}, nil
}

// Open returns a session on the given namespace.
func (s *Sturdy) Open(_ context.Context, namespace string, version int) (Store, error) {
	if err := validateOpen(namespace, version); err != nil {
		return nil, err
	}
	return &sturdyStore{client: s.client, prefix: Qualify(namespace, version) + ":"}, nil
}

// Close is a no-op; sturdyc has no connection to release.
func (s *Sturdy) Close() error {
	return nil
}

type sturdyStore struct {
	client *sturdyc.Client[[]byte]
	prefix string
	closed atomic.Bool
}

func (s *sturdyStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	value, ok := s.client.Get(s.prefix + key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *sturdyStore) Set(_ context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.client.Set(s.prefix+key, append([]byte(nil), value...))
	return nil
}

func (s *sturdyStore) Close() error {
	s.closed.Store(true)
	return nil
}
