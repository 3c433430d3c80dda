// Package task holds the single-fire completion token that joins the two
// halves of an asynchronous operation (request now, continue on completion).
package task

import "sync"

// Completion is fired exactly once. Continuations registered before the fire
// run at fire time, in registration order, on the firing goroutine;
// continuations registered afterwards run immediately on the caller's.
type Completion struct {
	mu    sync.Mutex
	fired bool
	err   error
	fns   []func(error)
	done  chan struct{}
}

func New() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Completed returns an already-fired completion carrying err.
func Completed(err error) *Completion {
	c := New()
	c.Fire(err)
	return c
}

// Fire records the outcome and runs pending continuations. Calls after the
// first are ignored and report false.
func (c *Completion) Fire(err error) bool {
	c.mu.Lock()
	if c.fired {
		c.mu.Unlock()
		return false
	}
	c.fired = true
	c.err = err
	fns := c.fns
	c.fns = nil
	close(c.done)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
	return true
}

// OnComplete registers a continuation.
func (c *Completion) OnComplete(fn func(error)) {
	c.mu.Lock()
	if !c.fired {
		c.fns = append(c.fns, fn)
		c.mu.Unlock()
		return
	}
	err := c.err
	c.mu.Unlock()
	fn(err)
}

// Done is closed once the completion has fired.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Fired reports whether Fire has been called.
func (c *Completion) Fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Err returns the fired outcome, or nil while still pending.
func (c *Completion) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
