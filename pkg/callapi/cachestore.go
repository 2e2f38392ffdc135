package callapi

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/illmade-knight/go-callapi/pkg/document"
	"github.com/illmade-knight/go-callapi/pkg/kvstore"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// KeyLocks serializes cache read-merge-write cycles per key within a process.
// Share one instance across tasks with WithKeyLocks. Without it, concurrent
// writes to the same key are last-writer-wins.
type KeyLocks struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

// NewKeyLocks creates an empty lock table.
func NewKeyLocks() *KeyLocks {
	return &KeyLocks{locks: xsync.NewMapOf[string, *sync.Mutex]()}
}

// Lock acquires the lock for key and returns its release function.
func (k *KeyLocks) Lock(key string) func() {
	mu, _ := k.locks.LoadOrCompute(key, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	return mu.Unlock
}

// cacheStore guards a kvstore session: blank keys bypass the store, and every
// storage or merge failure is traced and absorbed here.
type cacheStore struct {
	store   kvstore.Store // nil when no session could be opened
	merger  Merger
	locks   *KeyLocks
	logger  zerolog.Logger
	onError func(error)
}

func usableKey(key string) bool {
	return strings.TrimSpace(key) != ""
}

// get returns the cached payload, or nil on a miss or any failure.
func (c *cacheStore) get(ctx context.Context, key string) document.Document {
	if !usableKey(key) || c.store == nil {
		return nil
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			c.fail(&StorageReadError{Key: key, Err: err})
		}
		return nil
	}

	doc, err := document.Decode(data)
	if err != nil {
		c.fail(&StorageReadError{Key: key, Err: err})
		return nil
	}
	return doc
}

// save writes result under key according to mode. Failures drop the write.
func (c *cacheStore) save(ctx context.Context, what int, key string, result document.Document, mode CacheMode) {
	if !usableKey(key) || result == nil || mode == CacheIgnore || c.store == nil {
		return
	}

	if c.locks != nil {
		unlock := c.locks.Lock(key)
		defer unlock()
	}

	var existing document.Document
	if mode == CacheAppend || mode == CachePrepend {
		existing = c.get(ctx, key)
	}

	merged, err := c.merger.Merge(what, mode, result, existing)
	if err != nil {
		c.fail(&MergeError{Key: key, Mode: mode, Err: err})
		return
	}

	data, err := document.Encode(merged)
	if err != nil {
		c.fail(&StorageWriteError{Key: key, Err: err})
		return
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		c.fail(&StorageWriteError{Key: key, Err: err})
		return
	}
	c.logger.Debug().Str("key", key).Str("cache_mode", mode.String()).Msg("Result cached.")
}

func (c *cacheStore) close() {
	if c.store == nil {
		return
	}
	if err := c.store.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to close cache store.")
	}
}

func (c *cacheStore) fail(err error) {
	var readErr *StorageReadError
	switch {
	case errors.As(err, &readErr):
		c.logger.Error().Err(err).Str("key", readErr.Key).Msg("Cache read failed, treating as miss.")
	default:
		c.logger.Error().Err(err).Msg("Cache write abandoned.")
	}
	if c.onError != nil {
		c.onError(err)
	}
}
