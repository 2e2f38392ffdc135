// Package kvstore provides the namespaced key-value persistence that backs the
// API result cache. A backend implements Opener; each Open call hands out a
// Store session owned by exactly one task.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotFound is returned by Store.Get on a miss.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrClosed is returned by any Store operation after Close.
	ErrClosed = errors.New("kvstore: store is closed")
)

// Store is a session over one namespace of a backend.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	io.Closer
}

// Opener opens Store sessions on a backend.
type Opener interface {
	Open(ctx context.Context, namespace string, version int) (Store, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, namespace string, version int) (Store, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, namespace string, version int) (Store, error) {
	return f(ctx, namespace, version)
}

// Qualify builds the backend-level prefix for a namespace and schema version.
func Qualify(namespace string, version int) string {
	return fmt.Sprintf("%s:v%d", namespace, version)
}

func validateOpen(namespace string, version int) error {
	if namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	if version < 1 {
		return fmt.Errorf("version must be at least 1, got %d", version)
	}
	return nil
}
