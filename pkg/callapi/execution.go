package callapi

import "context"

// maxResults is the most notifications a single task can produce.
const maxResults = 2

// Execution carries the output of one started Task: a result stream holding
// at most two notifications and an independent stream of network errors.
// Both channels are buffered, so a task never blocks on a slow reader, and
// both are closed once the task is terminal.
type Execution struct {
	results       chan Notification
	networkErrors chan error
	done          chan struct{}
}

func newExecution() *Execution {
	return &Execution{
		results: make(chan Notification, maxResults),
		// The API is invoked at most once per task.
		networkErrors: make(chan error, 1),
		done:          make(chan struct{}),
	}
}

// Results delivers the task's notifications in order. A non-final
// notification is always followed by a final one.
func (e *Execution) Results() <-chan Notification {
	return e.results
}

// NetworkErrors delivers every *NetworkError raised by the API call. An error
// is sent before the notification that follows it.
func (e *Execution) NetworkErrors() <-chan error {
	return e.networkErrors
}

// Done is closed once the task is terminal and its store is closed.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the task is terminal and returns everything it produced.
func (e *Execution) Wait(ctx context.Context) ([]Notification, []error, error) {
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	var results []Notification
	for n := range e.results {
		results = append(results, n)
	}
	var errs []error
	for err := range e.networkErrors {
		errs = append(errs, err)
	}
	return results, errs, nil
}

// Dispatch calls onNetworkError and onResult on the calling goroutine in the
// order the task produced them, and returns when the task is terminal.
// Either callback may be nil.
func (e *Execution) Dispatch(ctx context.Context, onResult func(Notification), onNetworkError func(error)) error {
	results := e.results
	for results != nil {
		select {
		case n, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			// Network errors are raised between the provisional and the
			// final notification.
			if n.Final {
				e.drainNetworkErrors(onNetworkError)
			}
			if onResult != nil {
				onResult(n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		select {
		case err, ok := <-e.networkErrors:
			if !ok {
				return nil
			}
			if onNetworkError != nil {
				onNetworkError(err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainNetworkErrors delivers the errors already queued without blocking.
func (e *Execution) drainNetworkErrors(onNetworkError func(error)) {
	for {
		select {
		case err, ok := <-e.networkErrors:
			if !ok {
				return
			}
			if onNetworkError != nil {
				onNetworkError(err)
			}
		default:
			return
		}
	}
}

func (e *Execution) deliver(n Notification) {
	e.results <- n
}

func (e *Execution) reportNetworkError(err error) {
	e.networkErrors <- err
}

func (e *Execution) finish() {
	close(e.results)
	close(e.networkErrors)
	close(e.done)
}
