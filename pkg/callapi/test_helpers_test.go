package callapi_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/illmade-knight/go-callapi/pkg/callapi"
	"github.com/illmade-knight/go-callapi/pkg/document"
	"github.com/illmade-knight/go-callapi/pkg/kvstore"
	"github.com/stretchr/testify/require"
)

// mockStore is a test double for kvstore.Store that records every call.
type mockStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	getCalls int
	setCalls int
	closed   bool

	GetFunc func(key string) ([]byte, error)
	SetFunc func(key string, value []byte) error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.GetFunc != nil {
		return m.GetFunc(key)
	}
	value, ok := m.data[key]
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return value, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.SetFunc != nil {
		return m.SetFunc(key, value)
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *mockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockStore) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = []byte(value)
}

func (m *mockStore) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return string(v), ok
}

func (m *mockStore) calls() (gets, sets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls, m.setCalls
}

func (m *mockStore) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// openerFor returns an Opener that always hands out the same mock session.
func openerFor(store *mockStore) kvstore.Opener {
	return kvstore.OpenerFunc(func(context.Context, string, int) (kvstore.Store, error) {
		return store, nil
	})
}

const testWhat = 7

func testKey(what int, _ callapi.CacheMode, params ...any) string {
	return fmt.Sprintf("what:%d:%v", what, params)
}

// fakeAPI builds a Listener whose API returns result, or fails with err.
type fakeAPI struct {
	result document.Document
	err    error
	calls  atomic.Int32
}

func (f *fakeAPI) listener() callapi.Listener {
	return callapi.Listener{
		API: func(int, ...any) callapi.API {
			return callapi.APIFunc(func(context.Context) (document.Document, error) {
				f.calls.Add(1)
				if f.err != nil {
					return nil, f.err
				}
				return f.result.Clone(), nil
			})
		},
		CacheKey: testKey,
	}
}

var errOffline = errors.New("network is unreachable")

// runToCompletion starts a task and collects everything it produced.
func runToCompletion(t *testing.T, task *callapi.Task) ([]callapi.Notification, []error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	exec, err := task.Start(ctx)
	require.NoError(t, err)
	results, errs, err := exec.Wait(ctx)
	require.NoError(t, err)
	return results, errs
}

// payloads renders notifications as "payload/final/source" strings.
func payloads(ns []callapi.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, fmt.Sprintf("%s/%t/%s", n.Payload.String(), n.Final, n.Source))
	}
	return out
}
