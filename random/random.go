// Package random generates cryptographically strong random bytes without
// blocking the caller. Reading the system entropy source may stall, so
// each request is executed as a one-shot task on a worker pool and its
// result is delivered through a future. Tasks are submitted lazily: a
// future that is never waited on costs the pool nothing.
package random

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
)

// Generator creates random-byte futures backed by a worker pool.
type Generator struct {
	exec   Executor
	pool   *Pool // owned pool, nil when an external executor was supplied
	source io.Reader
}

// New creates a generator backed by an internally owned pool of the given
// number of worker threads. Close releases the pool.
func New(threads int) *Generator {
	pool := NewPool(threads)
	return &Generator{exec: pool, pool: pool, source: rand.Reader}
}

// NewWithExecutor creates a generator backed by a caller-supplied
// executor. The executor may be shared with other generators; its
// lifetime is the caller's concern.
func NewWithExecutor(exec Executor) *Generator {
	return &Generator{exec: exec, source: rand.Reader}
}

// Close shuts down the internally owned pool, if any. Generators created
// with NewWithExecutor leave their executor untouched.
func (g *Generator) Close() error {
	if g.pool != nil {
		return g.pool.Close()
	}
	return nil
}

// RandomBytes requests size random bytes. The returned future has not
// been submitted to the pool yet; the first Wait dispatches it.
func (g *Generator) RandomBytes(size int) *RandomBytes {
	return &RandomBytes{
		size:   size,
		exec:   g.exec,
		source: g.source,
		done:   make(chan struct{}),
	}
}

// RandomBytes is a future resolving to cryptographically strong random
// bytes. Waiting on it after resolution returns the same outcome; dropping
// it after dispatch does not cancel the task, whose result is simply
// discarded.
type RandomBytes struct {
	size   int
	exec   Executor
	source io.Reader

	submit sync.Once
	done   chan struct{}
	buf    []byte
	err    error
}

// Size returns the number of bytes requested.
func (r *RandomBytes) Size() int {
	return r.size
}

// Wait dispatches the request on first call and blocks until the bytes
// are available, the request fails, or ctx is done. An entropy-source
// fault or a pool rejection resolves the future with that error; neither
// is retried.
func (r *RandomBytes) Wait(ctx context.Context) ([]byte, error) {
	r.submit.Do(r.dispatch)
	select {
	case <-r.done:
		return r.buf, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *RandomBytes) dispatch() {
	if r.size < 0 {
		r.err = fmt.Errorf("The requested size %v is negative.", r.size)
		close(r.done)
		return
	}
	err := r.exec.Submit(func() {
		buf := make([]byte, r.size)
		if _, err := io.ReadFull(r.source, buf); err != nil {
			r.err = fmt.Errorf("reading entropy source: %w", err)
		} else {
			r.buf = buf
		}
		close(r.done)
	})
	if err != nil {
		r.err = err
		close(r.done)
	}
}
