// Package callapi runs an asynchronous API call behind a local result cache.
//
// A Request names the call (What and Params), a CacheMode deciding how a
// fresh result combines with the cached one, and a Strategy deciding whether
// the cache, the API or both are consulted. The embedding application
// supplies its capabilities in a Listener: the API invocation, the success
// predicate, cache key derivation and the append/prepend combine functions.
//
// Each call runs on its own single-use Task:
//
//	task, err := callapi.NewTask(ctx, store, listener, callapi.Request{
//		What:      feedPage,
//		Params:    []any{page},
//		CacheMode: callapi.CacheAppend,
//		Strategy:  callapi.FetchCacheThenAPI,
//	}, callapi.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	exec, err := task.Start(ctx)
//	if err != nil {
//		return err
//	}
//	err = exec.Dispatch(ctx, render, showNetworkError)
//
// Strategies:
//
//	FetchCacheThenAPI    cached result (non-final) if any, then API result (final)
//	FetchAPIElseCache    API result; cached result if the API call fails
//	FetchAPI             API result; the cache is never read
//	FetchCache           cached result; the API is never called
//	FetchCacheElseAPI    cached result if any, otherwise API result
//	FetchCacheAlwaysAPI  cached result if any and the API result is only cached;
//	                     otherwise API result
//
// Storage and merge failures never reach the caller. They are logged on the
// task's zerolog.Logger and passed to the WithFailureHook callback; reads
// that fail count as misses and writes that fail are dropped. API failures
// are reported as *NetworkError on Execution.NetworkErrors.
package callapi
