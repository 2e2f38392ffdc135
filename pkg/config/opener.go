package config

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-callapi/pkg/kvstore"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Backends satisfy both interfaces.
type openCloser interface {
	kvstore.Opener
	io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewOpener builds the cache backend cfg selects. The returned Closer
// releases the backend and any client it created.
func NewOpener(ctx context.Context, cfg *Config, logger zerolog.Logger) (kvstore.Opener, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger = logger.With().Str("cache_backend", string(cfg.Cache.Backend)).Logger()

	var backend openCloser
	switch cfg.Cache.Backend {
	case BackendMemory:
		backend = kvstore.NewInMemory()
	case BackendLRU:
		lru, err := kvstore.NewLRU(cfg.Cache.LRU.MaxSize)
		if err != nil {
			return nil, nil, err
		}
		backend = lru
	case BackendSturdy:
		sturdy, err := kvstore.NewSturdy(cfg.Cache.Sturdy)
		if err != nil {
			return nil, nil, err
		}
		backend = sturdy
	case BackendRedis:
		rdb, err := kvstore.NewRedis(ctx, &cfg.Cache.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		backend = rdb
	case BackendFirestore:
		return newFirestoreOpener(ctx, &cfg.Cache.Firestore, logger)
	}

	logger.Debug().Msg("Cache backend ready.")
	return backend, backend, nil
}

func newFirestoreOpener(ctx context.Context, cfg *kvstore.FirestoreConfig, logger zerolog.Logger) (kvstore.Opener, io.Closer, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	store, err := kvstore.NewFirestore(cfg, client, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closer := closerFunc(func() error {
		return errors.Join(store.Close(), client.Close())
	})
	return store, closer, nil
}
