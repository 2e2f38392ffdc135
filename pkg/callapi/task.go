package callapi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-callapi/pkg/document"
	"github.com/illmade-knight/go-callapi/pkg/kvstore"
	"github.com/rs/zerolog"
)

const (
	// DefaultNamespace is the store namespace used unless WithNamespace overrides it.
	DefaultNamespace = "ydhlcache"
	// DefaultVersion is the store schema version used unless WithNamespace overrides it.
	DefaultVersion = 1
)

// State is a task's position in its single-use lifecycle.
type State int32

const (
	// StateCreated is a task that has not been started.
	StateCreated State = iota
	// StatePreCheck reads the cache before the API call.
	StatePreCheck
	// StateExecuting performs the cache read or API call that produces the final result.
	StateExecuting
	// StatePostExecute delivers the final result.
	StatePostExecute
	// StateTerminal is a finished task whose store session is closed.
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePreCheck:
		return "pre-check"
	case StateExecuting:
		return "executing"
	case StatePostExecute:
		return "post-execute"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type options struct {
	logger    zerolog.Logger
	namespace string
	version   int
	locks     *KeyLocks
	onFailure func(error)
}

// Option configures a Task.
type Option func(*options)

// WithLogger sets the logger that receives the task's trace.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNamespace sets the store namespace and schema version the task opens.
func WithNamespace(namespace string, version int) Option {
	return func(o *options) {
		o.namespace = namespace
		o.version = version
	}
}

// WithKeyLocks serializes cache writes per key using the shared lock table.
func WithKeyLocks(locks *KeyLocks) Option {
	return func(o *options) { o.locks = locks }
}

// WithFailureHook receives every absorbed StorageReadError, StorageWriteError
// and MergeError after it has been logged. It runs on the task's goroutine.
func WithFailureHook(fn func(error)) Option {
	return func(o *options) { o.onFailure = fn }
}

// Task runs one Request through its Strategy. A Task is single-use: build a
// new one for every call.
type Task struct {
	id       string
	req      Request
	plan     Plan
	listener Listener
	cache    *cacheStore
	logger   zerolog.Logger

	state     atomic.Int32
	cancelled atomic.Bool
}

// NewTask validates req and opens the task's own store session on opener. A
// nil opener, or a failure to open, leaves the task without a cache: reads
// miss and writes are dropped.
func NewTask(ctx context.Context, opener kvstore.Opener, listener Listener, req Request, opts ...Option) (*Task, error) {
	o := options{
		logger:    zerolog.Nop(),
		namespace: DefaultNamespace,
		version:   DefaultVersion,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if !req.CacheMode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCacheMode, int(req.CacheMode))
	}
	plan, err := PlanFor(req.Strategy)
	if err != nil {
		return nil, err
	}

	req.Params = append([]any(nil), req.Params...)
	id := uuid.NewString()
	logger := o.logger.With().
		Str("component", "CallAPITask").
		Str("task_id", id).
		Int("what", req.What).
		Str("strategy", req.Strategy.String()).
		Str("cache_mode", req.CacheMode.String()).
		Logger()

	cache := &cacheStore{
		merger:  Merger{Append: listener.Append, Prepend: listener.Prepend},
		locks:   o.locks,
		logger:  logger,
		onError: o.onFailure,
	}
	if opener != nil {
		store, err := opener.Open(ctx, o.namespace, o.version)
		if err != nil {
			logger.Error().Err(err).Str("namespace", o.namespace).Int("version", o.version).Msg("Failed to open cache store, continuing without cache.")
		} else {
			cache.store = store
		}
	}

	return &Task{
		id:       id,
		req:      req,
		plan:     plan,
		listener: listener,
		cache:    cache,
		logger:   logger,
	}, nil
}

// ID returns the task's unique identifier, as used in its logs.
func (t *Task) ID() string {
	return t.id
}

// State returns the current lifecycle state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Cancelled reports whether the task has finished and released its store.
// It is a cleanup signal; it never interrupts a running call.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

// Start runs the task on a new goroutine and returns immediately. Calling
// Start again returns ErrTaskAlreadyStarted and produces nothing.
func (t *Task) Start(ctx context.Context) (*Execution, error) {
	if !t.state.CompareAndSwap(int32(StateCreated), int32(StatePreCheck)) {
		t.logger.Error().Str("state", t.State().String()).Msg("Task started more than once.")
		return nil, fmt.Errorf("%w: task %s is %s", ErrTaskAlreadyStarted, t.id, t.State())
	}

	exec := newExecution()
	go t.run(ctx, exec)
	return exec, nil
}

func (t *Task) run(ctx context.Context, exec *Execution) {
	defer exec.finish()

	key := t.listener.cacheKey(t.req.What, t.req.CacheMode, t.req.Params)
	t.logger.Debug().Str("key", key).Msg("Task started.")

	var (
		cached       document.Document
		result       document.Document
		resultSource = SourceAPI
		apiFailed    bool
	)

	steps := t.plan.Decide(false).Steps
	for i := 0; i < len(steps); i++ {
		step := steps[i]
		switch step.Action {
		case ActionReadCache:
			if !t.plan.ReadBeforeExecute {
				t.state.Store(int32(StateExecuting))
			}
			cached = t.cache.get(ctx, key)
			if cached != nil {
				// Steps before and including the first read do not depend on presence.
				steps = t.plan.Decide(true).Steps
			}
		case ActionInvokeAPI:
			t.state.Store(int32(StateExecuting))
			result, apiFailed = t.invoke(ctx, key, exec)
		case ActionReadCacheOnFailure:
			if apiFailed {
				result, resultSource = t.cache.get(ctx, key), SourceCache
			}
		case ActionDeliver:
			payload, source := result, resultSource
			if step.Delivery.Source == SourceCache {
				payload, source = cached, SourceCache
			}
			if step.Delivery.Final && i == len(steps)-1 {
				t.state.Store(int32(StatePostExecute))
			}
			exec.deliver(t.notification(payload, step.Delivery.Final, source))
		}
	}

	if t.State() != StatePostExecute {
		t.logger.Debug().Bool("has_payload", result != nil).Msg("Background refresh finished, result not delivered.")
		t.state.Store(int32(StatePostExecute))
	}

	t.release()
	t.logger.Debug().Msg("Task finished.")
}

// invoke calls the API and caches a successful result. It reports whether
// the call failed with a network error.
func (t *Task) invoke(ctx context.Context, key string, exec *Execution) (document.Document, bool) {
	api := t.listener.api(t.req.What, t.req.Params)
	if api == nil {
		t.logger.Debug().Msg("No API for request.")
		return nil, false
	}

	result, err := api.Invoke(ctx)
	if err != nil {
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			netErr = &NetworkError{What: t.req.What, Err: err}
		}
		t.logger.Warn().Err(netErr).Msg("API call failed.")
		exec.reportNetworkError(netErr)
		return nil, true
	}

	if t.req.CacheMode != CacheIgnore && t.listener.isSuccess(result) {
		t.cache.save(ctx, t.req.What, key, result, t.req.CacheMode)
	}
	return result, false
}

// release closes the store session and marks the task terminal.
func (t *Task) release() {
	t.cache.close()
	t.cancelled.Store(true)
	t.state.Store(int32(StateTerminal))
}

// Close releases the store session of a task that was never started and
// makes any later Start fail. Once a task has started, its session is
// released when it finishes and Close does nothing.
func (t *Task) Close() error {
	if t.state.CompareAndSwap(int32(StateCreated), int32(StateTerminal)) {
		t.release()
		t.logger.Debug().Msg("Task closed before start.")
	}
	return nil
}

func (t *Task) notification(payload document.Document, final bool, source Source) Notification {
	return Notification{
		What:    t.req.What,
		Payload: payload,
		Final:   final,
		Source:  source,
		Params:  t.req.Params,
	}
}
