package callapi

import (
	"fmt"
	"strings"
)

// Strategy decides the order in which the cache and the API are consulted and
// how many results the caller receives. The zero value is FetchAPI.
type Strategy int

const (
	// FetchAPI always calls the API and never reads the cache first.
	FetchAPI Strategy = iota
	// FetchCacheThenAPI delivers a cached payload as a provisional result, then
	// calls the API and delivers its outcome as the final result.
	FetchCacheThenAPI
	// FetchAPIElseCache calls the API and falls back to the cache on a network error.
	FetchAPIElseCache
	// FetchCache reads the cache only.
	FetchCache
	// FetchCacheElseAPI returns the cached payload if present and calls the API otherwise.
	FetchCacheElseAPI
	// FetchCacheAlwaysAPI delivers a cached payload as the final result and
	// still calls the API to refresh the cache, without reporting its outcome.
	// On a miss the API result is delivered instead.
	FetchCacheAlwaysAPI
)

// Strategies lists every Strategy value.
func Strategies() []Strategy {
	return []Strategy{FetchAPI, FetchCacheThenAPI, FetchAPIElseCache, FetchCache, FetchCacheElseAPI, FetchCacheAlwaysAPI}
}

func (s Strategy) String() string {
	switch s {
	case FetchAPI:
		return "FETCH_API"
	case FetchCacheThenAPI:
		return "FETCH_CACHE_THEN_API"
	case FetchAPIElseCache:
		return "FETCH_API_ELSE_CACHE"
	case FetchCache:
		return "FETCH_CACHE"
	case FetchCacheElseAPI:
		return "FETCH_CACHE_ELSE_API"
	case FetchCacheAlwaysAPI:
		return "FETCH_CACHE_ALWAYS_API"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Valid reports whether s is one of the declared strategies.
func (s Strategy) Valid() bool {
	return s >= FetchAPI && s <= FetchCacheAlwaysAPI
}

// ParseStrategy parses the upper snake case name of a strategy. The legacy
// spelling FETCH_CACHE_AWAYS_API is accepted.
func ParseStrategy(name string) (Strategy, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	if normalized == "FETCH_CACHE_AWAYS_API" {
		return FetchCacheAlwaysAPI, nil
	}
	for _, s := range Strategies() {
		if s.String() == normalized {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// CacheMode decides how a freshly fetched payload combines with the cached
// one. The zero value is CacheIgnore.
type CacheMode int

const (
	// CacheIgnore never writes the cache.
	CacheIgnore CacheMode = iota
	// CacheReplace overwrites the cached payload.
	CacheReplace
	// CacheAppend places the fresh payload after the cached one.
	CacheAppend
	// CachePrepend places the fresh payload before the cached one.
	CachePrepend
)

// CacheModes lists every CacheMode value.
func CacheModes() []CacheMode {
	return []CacheMode{CacheIgnore, CacheReplace, CacheAppend, CachePrepend}
}

func (m CacheMode) String() string {
	switch m {
	case CacheIgnore:
		return "IGNORE"
	case CacheReplace:
		return "REPLACE"
	case CacheAppend:
		return "APPEND"
	case CachePrepend:
		return "PREPEND"
	default:
		return fmt.Sprintf("CacheMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared modes.
func (m CacheMode) Valid() bool {
	return m >= CacheIgnore && m <= CachePrepend
}

// ParseCacheMode parses a mode name, case-insensitively.
func ParseCacheMode(name string) (CacheMode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for _, m := range CacheModes() {
		if m.String() == normalized {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCacheMode, name)
}
