package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"ttl"`
}

// Redis is a backend that keeps every namespace under a key prefix in one
// Redis database. A zero CacheTTL stores entries without expiry.
type Redis struct {
	redisClient *redis.Client
	logger      zerolog.Logger
	ttl         time.Duration
}

// NewRedis creates and connects a Redis backend.
// It pings the Redis server to ensure connectivity before returning.
func NewRedis(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")

	return &Redis{
		redisClient: rdb,
		logger:      logger.With().Str("component", "RedisStore").Logger(),
		ttl:         cfg.CacheTTL,
	}, nil
}

// Open returns a session on the given namespace. Sessions share the client's
// connection pool but are closed independently.
func (r *Redis) Open(_ context.Context, namespace string, version int) (Store, error) {
	if err := validateOpen(namespace, version); err != nil {
		return nil, err
	}
	prefix := Qualify(namespace, version) + ":"
	return &redisStore{
		backend: r,
		prefix:  prefix,
		logger:  r.logger.With().Str("namespace", prefix).Logger(),
	}, nil
}

// Close closes the Redis client connection.
func (r *Redis) Close() error {
	if r.redisClient != nil {
		r.logger.Info().Msg("Closing Redis client connection...")
		return r.redisClient.Close()
	}
	return nil
}

type redisStore struct {
	backend *Redis
	prefix  string
	logger  zerolog.Logger
	closed  atomic.Bool
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	stringKey := s.prefix + key
	value, err := s.backend.redisClient.Get(ctx, stringKey).Bytes()
	if err != nil {
		// A redis.Nil error is a normal cache miss. Any other error is a genuine problem.
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed for key %s: %w", stringKey, err)
	}
	s.logger.Debug().Str("key", stringKey).Msg("Redis cache hit.")
	return value, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	stringKey := s.prefix + key
	if err := s.backend.redisClient.Set(ctx, stringKey, value, s.backend.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis for key %s: %w", stringKey, err)
	}
	s.logger.Debug().Str("key", stringKey).Msg("Successfully stored data in Redis cache.")
	return nil
}

// Close releases the session only; the shared client stays open.
func (s *redisStore) Close() error {
	s.closed.Store(true)
	return nil
}
