package action

import (
	"context"
	"errors"
	"sync"
)

// ErrReentrantWait is returned by Future.Wait when called from inside the
// dispatch pipeline of the store that owns the future. The store processes
// one action at a time, so such a wait could never finish.
var ErrReentrantWait = errors.New("wait on a queued dispatch from inside the same store's pipeline")

type pipelineKey struct{}

// WithPipeline marks ctx as running inside owner's dispatch pipeline.
// Stores call this before invoking middleware and reducers.
func WithPipeline(ctx context.Context, owner any) context.Context {
	return context.WithValue(ctx, pipelineKey{}, owner)
}

// InPipeline reports whether ctx belongs to owner's dispatch pipeline.
func InPipeline(ctx context.Context, owner any) bool {
	if owner == nil {
		return false
	}
	return ctx.Value(pipelineKey{}) == owner
}

// Future is the outcome of a single dispatch. It settles exactly once, with
// nil on success or the error that aborted the pipeline.
type Future struct {
	once  sync.Once
	done  chan struct{}
	err   error
	owner any
}

// NewFuture creates an unsettled future owned by owner (usually a store).
func NewFuture(owner any) *Future {
	return &Future{done: make(chan struct{}), owner: owner}
}

// Failed returns a future already settled with err.
func Failed(owner any, err error) *Future {
	f := NewFuture(owner)
	f.Complete(err)
	return f
}

// Complete settles the future. Later calls are ignored.
func (f *Future) Complete(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed once the dispatch has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the settled error, or nil while the dispatch is in flight.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the dispatch settles or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	default:
	}

	if InPipeline(ctx, f.owner) {
		return ErrReentrantWait
	}

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
