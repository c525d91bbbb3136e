package random

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrPoolClosed is returned by Submit once the pool has been closed.
var ErrPoolClosed = fmt.Errorf("The worker pool is closed.")

// Executor runs one-shot blocking tasks. Submit either accepts the task
// for eventual execution or rejects it with an error. A submitted task
// always runs to completion, even if nobody is waiting for its result.
type Executor interface {
	Submit(task func()) error
}

// Pool is a fixed-size worker pool executing submitted tasks. The
// zero value is not usable; create pools with NewPool. A Pool handle may
// be shared by any number of generators.
type Pool struct {
	tasks chan func()
	group errgroup.Group

	mux    sync.Mutex
	closed bool
}

// NewPool creates a pool running the given number of worker goroutines.
// Counts below one are raised to one.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		tasks: make(chan func(), workers),
	}
	for i := 0; i < workers; i++ {
		p.group.Go(p.worker)
	}
	return p
}

func (p *Pool) worker() error {
	for task := range p.tasks {
		task()
	}
	return nil
}

// Submit queues a task for execution. It blocks while the queue is full
// and returns ErrPoolClosed if the pool has been shut down.
func (p *Pool) Submit(task func()) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Close shuts the pool down and waits for the workers to drain every task
// accepted so far. It is safe to call more than once.
func (p *Pool) Close() error {
	p.mux.Lock()
	if p.closed {
		p.mux.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mux.Unlock()

	return p.group.Wait()
}
