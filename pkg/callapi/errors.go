package callapi

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskAlreadyStarted is returned when Start is called on a task that
	// has already been started. Every call needs a fresh Task.
	ErrTaskAlreadyStarted = errors.New("callapi: task already started")
	// ErrUnknownStrategy is returned for a Strategy outside the declared set.
	ErrUnknownStrategy = errors.New("callapi: unknown fetch strategy")
	// ErrUnknownCacheMode is returned for a CacheMode outside the declared set.
	ErrUnknownCacheMode = errors.New("callapi: unknown cache mode")
	// ErrNoMergeFunc is returned when an append or prepend write has no combine function.
	ErrNoMergeFunc = errors.New("callapi: no merge function configured")
)

// NetworkError reports that the API invocation failed. It is the only failure
// delivered to the caller, on the execution's network error stream.
type NetworkError struct {
	What int
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api call %d failed: %v", e.What, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StorageReadError reports a cache read that failed for a reason other than a miss.
// It is traced and the read is treated as a miss.
type StorageReadError struct {
	Key string
	Err error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("cache read for key %q failed: %v", e.Key, e.Err)
}

func (e *StorageReadError) Unwrap() error {
	return e.Err
}

// StorageWriteError reports a cache write that failed. It is traced and the
// write is dropped.
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("cache write for key %q failed: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}

// MergeError reports that combining a fresh payload with the cached one
// failed. The cache write is abandoned; the caller's result is unaffected.
type MergeError struct {
	Key  string
	Mode CacheMode
	Err  error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("%s merge for key %q failed: %v", e.Mode, e.Key, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}
