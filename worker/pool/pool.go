package pool

import (
	"context"
	"sync"
)

// WorkerPool bounds how many conversions run at once.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		sem: make(chan struct{}, maxWorkers),
	}
}

// Run blocks until a slot is free, then calls fn on the caller's goroutine.
// If ctx ends first, fn is not called and ctx.Err() is returned.
func (p *WorkerPool) Run(ctx context.Context, fn func(context.Context) error) error {
	p.wg.Add(1)
	defer p.wg.Done()

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(ctx)
}

// InFlight reports the number of occupied slots.
func (p *WorkerPool) InFlight() int {
	return len(p.sem)
}

func (p *WorkerPool) Size() int {
	return cap(p.sem)
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
