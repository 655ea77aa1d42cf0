// Package worker provides a small bounded worker pool for dispatching
// blocking calls off the caller's goroutine. The pool exists because the chat
// provider SDK performs a blocking network call: submitting it here keeps a
// slow completion from stalling unrelated tool calls, while the bound keeps
// the number of in-flight provider calls from growing without limit.
package worker

import (
	"context"
	"errors"
)

// ErrPoolClosed is returned by Submit after Close has been called.
var ErrPoolClosed = errors.New("worker: pool is closed")

// DefaultSize is the pool size used when the configured size is not positive.
const DefaultSize = 4

// Pool bounds the number of concurrently executing submitted functions.
// A Pool is safe for concurrent use.
type Pool struct {
	slots  chan struct{}
	closed chan struct{}
}

// NewPool creates a pool that runs at most size functions concurrently.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{
		slots:  make(chan struct{}, size),
		closed: make(chan struct{}),
	}
}

// Close marks the pool closed. Work already submitted keeps running; new
// submissions fail with ErrPoolClosed.
func (p *Pool) Close() {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
}

// Future is a handle to a submitted function's eventual result.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Wait blocks until the function completes or ctx is done. Cancellation does
// not interrupt the running function; a later Wait can still collect its
// result.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit schedules fn on the pool and returns a Future for its result. If all
// slots are busy the function waits for a free slot before running; Submit
// itself never blocks.
func Submit[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	select {
	case <-p.closed:
		f.err = ErrPoolClosed
		close(f.done)
		return f
	default:
	}

	go func() {
		defer close(f.done)
		select {
		case p.slots <- struct{}{}:
			defer func() { <-p.slots }()
		case <-p.closed:
			f.err = ErrPoolClosed
			return
		}
		f.val, f.err = fn()
	}()
	return f
}
