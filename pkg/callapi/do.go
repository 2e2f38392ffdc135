package callapi

import (
	"context"

	"github.com/illmade-knight/go-callapi/pkg/kvstore"
)

// Do builds a fresh Task for req and starts it.
func Do(ctx context.Context, opener kvstore.Opener, listener Listener, req Request, opts ...Option) (*Execution, error) {
	task, err := NewTask(ctx, opener, listener, req, opts...)
	if err != nil {
		return nil, err
	}
	return task.Start(ctx)
}

// DoAPI calls the API once without touching any cache.
func DoAPI(ctx context.Context, listener Listener, what int, params ...any) (*Execution, error) {
	req := Request{What: what, Params: params, CacheMode: CacheIgnore, Strategy: FetchAPI}
	return Do(ctx, nil, listener, req)
}
