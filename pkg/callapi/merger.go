package callapi

import (
	"fmt"

	"github.com/illmade-knight/go-callapi/pkg/document"
)

// Merger combines a freshly fetched payload with the cached one according to
// a CacheMode.
type Merger struct {
	Append  MergeFunc
	Prepend MergeFunc
}

// Merge returns the payload to store. existing may be nil. A panic in a
// combine function is returned as an error.
func (m Merger) Merge(what int, mode CacheMode, fresh, existing document.Document) (document.Document, error) {
	switch mode {
	case CacheIgnore:
		return nil, fmt.Errorf("merge called with %s mode", mode)
	case CacheReplace:
		return fresh, nil
	case CacheAppend:
		if existing == nil {
			return fresh, nil
		}
		return m.combine(m.Append, what, fresh, existing)
	case CachePrepend:
		if existing == nil {
			return fresh, nil
		}
		return m.combine(m.Prepend, what, fresh, existing)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCacheMode, int(mode))
	}
}

func (m Merger) combine(fn MergeFunc, what int, fresh, existing document.Document) (merged document.Document, err error) {
	if fn == nil {
		return nil, ErrNoMergeFunc
	}
	defer func() {
		if r := recover(); r != nil {
			merged, err = nil, fmt.Errorf("combine function panicked: %v", r)
		}
	}()

	merged, err = fn(what, fresh, existing)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return nil, fmt.Errorf("combine function returned no document")
	}
	return merged, nil
}
