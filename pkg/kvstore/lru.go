package kvstore

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// lruItem is the internal structure stored in the linked list.
type lruItem struct {
	key   string
	value []byte
}

// LRU is a thread-safe, in-memory backend with a fixed number of entries and a
// Least Recently Used eviction policy. The limit is shared by all namespaces.
type LRU struct {
	maxSize int

	mu    sync.Mutex
	ll    *list.List               // Used to track the order of items (recency).
	items map[string]*list.Element // Used for fast key lookups.
}

// NewLRU creates a new size-limited LRU backend. maxSize must be > 0.
func NewLRU(maxSize int) (*LRU, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("maxSize must be greater than 0")
	}
	return &LRU{
		maxSize: maxSize,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
	}, nil
}

// Open returns a session on the given namespace.
func (c *LRU) Open(_ context.Context, namespace string, version int) (Store, error) {
	if err := validateOpen(namespace, version); err != nil {
		return nil, err
	}
	return &lruStore{backend: c, prefix: Qualify(namespace, version) + ":"}, nil
}

// Len returns the number of entries across all namespaces.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Close is a no-op for the LRU backend.
func (c *LRU) Close() error {
	return nil
}

func (c *LRU) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(elem)
	return append([]byte(nil), elem.Value.(*lruItem).value...), true
}

func (c *LRU) set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value = append([]byte(nil), value...)
	if elem, ok := c.items[key]; ok {
		elem.Value.(*lruItem).value = value
		c.ll.MoveToFront(elem)
		return
	}

	c.items[key] = c.ll.PushFront(&lruItem{key: key, value: value})
	if c.ll.Len() > c.maxSize {
		c.evict()
	}
}

// evict removes the least recently used item. It must be called with mu held.
func (c *LRU) evict() {
	elem := c.ll.Back()
	if elem != nil {
		item := c.ll.Remove(elem).(*lruItem)
		delete(c.items, item.key)
	}
}

type lruStore struct {
	backend *LRU
	prefix  string
	closed  atomic.Bool
}

func (s *lruStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	value, ok := s.backend.get(s.prefix + key)
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *lruStore) Set(_ context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.backend.set(s.prefix+key, value)
	return nil
}

func (s *lruStore) Close() error {
	s.closed.Store(true)
	return nil
}
