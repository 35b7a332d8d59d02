package dispatch

import (
	"context"
)

// Call represents an in-flight or completed request call.
type Call struct {
	done      chan struct{}
	delivered bool
	err       error
	cancel    context.CancelFunc
	queue     *Queue
}

// Done returns a channel that is closed when the call completes.
func (c *Call) Done() <-chan struct{} { return c.done }

// Err blocks until the call completes and returns the error it delivered.
// A cancelled call delivers nothing and returns nil.
func (c *Call) Err() error {
	<-c.done
	return c.err
}

// Delivered blocks until the call completes and reports whether a result
// reached the completion.
func (c *Call) Delivered() bool {
	<-c.done
	return c.delivered
}

// Wait blocks until all calls in the call's queue complete.
// Returns the errors recorded since the previous queue Wait, joined.
func (c *Call) Wait() error {
	return c.queue.Wait()
}

// Cancel cancels this call's context.
func (c *Call) Cancel() {
	c.cancel()
}
