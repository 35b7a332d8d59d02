// Package dispatch runs request calls asynchronously.
//
// Every call started on a [Queue] gets its own goroutine and a cancellable
// context. There is no concurrency limit. A [Call] reports when its work
// finished, whether a result was delivered, and the error of a delivered
// failure.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrShutdown is handed to the refusal func of calls started after
// [Queue.Shutdown].
var ErrShutdown = errors.New("dispatch queue shut down")

// WorkFunc runs one call. It reports whether a result was delivered to the
// caller and the error that result carried.
type WorkFunc func(ctx context.Context) (delivered bool, err error)

// RefuseFunc delivers a failure for a call the queue will not run.
type RefuseFunc func(err error)

// Queue tracks a group of calls.
type Queue struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown atomic.Bool
	errs     []error
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Wait blocks until all calls in the queue complete.
// Returns the errors of the failures delivered since the previous Wait,
// joined via errors.Join, and clears them.
func (q *Queue) Wait() error {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()

	err := errors.Join(q.errs...)
	q.errs = nil

	return err
}

// Shutdown prevents new calls from executing. Calls already running finish
// normally.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

// IsShutdown reports whether Shutdown was called.
func (q *Queue) IsShutdown() bool {
	return q.shutdown.Load()
}

// Start launches fn in a new goroutine managed by the queue and returns a
// Call for tracking it. The shutdown state is read when Start is called: a
// call started before Shutdown runs normally. After Shutdown fn is never
// run; refuse, when set, receives [ErrShutdown] instead and counts as a
// delivery.
func (q *Queue) Start(ctx context.Context, fn WorkFunc, refuse RefuseFunc) *Call {
	ctx, cancel := context.WithCancel(ctx)
	c := &Call{
		done:   make(chan struct{}),
		cancel: cancel,
		queue:  q,
	}

	refused := q.shutdown.Load()

	q.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			close(c.done)
			q.wg.Done()
		}()

		if refused {
			c.err = ErrShutdown
			q.recordErr(c.err)
			if refuse != nil {
				refuse(c.err)
				c.delivered = true
			}
			return
		}

		c.delivered, c.err = fn(ctx)
		if c.err != nil {
			q.recordErr(c.err)
		}
	}()

	return c
}

// recordErr appends err to the queue's error slice under the mutex.
func (q *Queue) recordErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = append(q.errs, err)
}
