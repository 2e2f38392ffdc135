package kvstore

import (
	"context"
	"sync"
	"sync/atomic"
)

// InMemory is a thread-safe, process-local backend. Namespaces are isolated
// from each other; sessions on the same namespace share data.
type InMemory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewInMemory creates an empty in-memory backend.
func NewInMemory() *InMemory {
	return &InMemory{
		data: make(map[string]map[string][]byte),
	}
}

// Open returns a session on the given namespace.
func (m *InMemory) Open(_ context.Context, namespace string, version int) (Store, error) {
	if err := validateOpen(namespace, version); err != nil {
		return nil, err
	}
	return &inMemoryStore{backend: m, prefix: Qualify(namespace, version)}, nil
}

// Len returns the number of entries held for a namespace.
func (m *InMemory) Len(namespace string, version int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[Qualify(namespace, version)])
}

// Close is a no-op for the in-memory backend.
func (m *InMemory) Close() error {
	return nil
}

type inMemoryStore struct {
	backend *InMemory
	prefix  string
	closed  atomic.Bool
}

func (s *inMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	value, ok := s.backend.data[s.prefix][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *inMemoryStore) Set(_ context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	ns, ok := s.backend.data[s.prefix]
	if !ok {
		ns = make(map[string][]byte)
		s.backend.data[s.prefix] = ns
	}
	ns[key] = append([]byte(nil), value...)
	return nil
}

func (s *inMemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}
