package workpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrClosed is returned by Submit once the pool has been closed
var ErrClosed = errors.New("worker pool is closed")

// Pool runs blocking jobs (file reads and writes) on a fixed set of goroutines so
// callers never hold more than the configured number of blocking syscalls at once.
type Pool struct {
	jobs chan func()
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New starts a pool with the given number of workers. Non-positive values fall back
// to the number of CPUs.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Pool{
		jobs: make(chan func()),
		quit: make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			job()
		case <-p.quit:
			return
		}
	}
}

// Submit hands fn to an idle worker. It blocks until a worker accepts the job,
// the context ends or the pool is closed. A job accepted by a worker always runs
// to completion.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	select {
	case <-p.quit:
		return ErrClosed
	default:
	}

	select {
	case p.jobs <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrClosed
	}
}

// Close stops accepting jobs and waits for running jobs to finish
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}
