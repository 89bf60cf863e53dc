package action

import (
	"context"
	"sync"
)

// Pending is a payload that has not resolved yet.
//
// Await blocks until the value is available, the value is rejected, or ctx
// is done. Implementations must return the same result on every call once
// settled: middleware may await a payload the store already resolved.
type Pending interface {
	Await(ctx context.Context) (any, error)
}

// Promise is a settle-once Pending value.
//
// Thread-safety: all methods are safe for concurrent use.
type Promise struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

var _ Pending = (*Promise)(nil)

// NewPromise creates an unsettled promise. Call Settle to complete it.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolve returns a promise already fulfilled with v.
func Resolve(v any) *Promise {
	p := NewPromise()
	p.Settle(v, nil)
	return p
}

// Reject returns a promise already rejected with err.
func Reject(err error) *Promise {
	p := NewPromise()
	p.Settle(nil, err)
	return p
}

// Go runs fn on a new goroutine and settles the promise with its result.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Promise {
	p := NewPromise()
	go func() {
		v, err := fn(ctx)
		p.Settle(v, err)
	}()
	return p
}

// Settle fulfils (err == nil) or rejects the promise. Only the first call
// has any effect; it reports whether this call settled the promise.
func (p *Promise) Settle(v any, err error) bool {
	settled := false
	p.once.Do(func() {
		p.value = v
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// Done returns a channel closed once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await implements Pending.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
