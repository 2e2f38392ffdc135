package callapi

import (
	"context"

	"github.com/illmade-knight/go-callapi/pkg/document"
)

// Request describes one API call: which call (What), its parameters, and the
// cache policy applied to it. A zero CacheMode and Strategy mean CacheIgnore
// and FetchAPI.
type Request struct {
	What      int
	Params    []any
	CacheMode CacheMode
	Strategy  Strategy
}

// Source tells where a notification's payload came from.
type Source int

const (
	// SourceCache marks a payload read from the cache.
	SourceCache Source = iota + 1
	// SourceAPI marks the outcome of the API call, including a failed one.
	SourceAPI
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceAPI:
		return "api"
	default:
		return "unknown"
	}
}

// Notification is one result delivered to the caller. A task produces at most
// two; a non-final one is always followed by a final one.
type Notification struct {
	What    int
	Payload document.Document // nil when no payload is available
	Final   bool
	Source  Source
	Params  []any
}

// API is one ready-to-run invocation of a remote call.
type API interface {
	Invoke(ctx context.Context) (document.Document, error)
}

// APIFunc adapts a function to the API interface.
type APIFunc func(ctx context.Context) (document.Document, error)

// Invoke calls f.
func (f APIFunc) Invoke(ctx context.Context) (document.Document, error) {
	return f(ctx)
}

// MergeFunc combines a fresh payload with the existing cached payload.
type MergeFunc func(what int, fresh, existing document.Document) (document.Document, error)

// Combine adapts a document.CombineFunc, which ignores the call discriminator.
func Combine(fn document.CombineFunc) MergeFunc {
	return func(_ int, fresh, existing document.Document) (document.Document, error) {
		return fn(fresh, existing)
	}
}

// Listener bundles the capabilities the embedding application supplies.
// A single Listener may serve many concurrent tasks and its functions must be
// safe for concurrent use. They run on the task's goroutine.
type Listener struct {
	// API returns the invocation for (what, params), or nil if there is none.
	// A nil API function behaves as if it always returned nil.
	API func(what int, params ...any) API
	// IsSuccess reports whether a result may be cached. If nil, any non-nil
	// result counts as a success.
	IsSuccess func(result document.Document) bool
	// CacheKey derives the cache key. An empty or blank key, or a nil
	// function, disables caching for the request.
	CacheKey func(what int, mode CacheMode, params ...any) string
	// Append is used by CacheAppend writes when a payload is already cached.
	Append MergeFunc
	// Prepend is used by CachePrepend writes when a payload is already cached.
	Prepend MergeFunc
}

func (l Listener) api(what int, params []any) API {
	if l.API == nil {
		return nil
	}
	return l.API(what, params...)
}

func (l Listener) isSuccess(result document.Document) bool {
	if l.IsSuccess == nil {
		return result != nil
	}
	return l.IsSuccess(result)
}

func (l Listener) cacheKey(what int, mode CacheMode, params []any) string {
	if l.CacheKey == nil {
		return ""
	}
	return l.CacheKey(what, mode, params...)
}
