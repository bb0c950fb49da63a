// Package processing runs batches of independent work items on a fixed number
// of goroutines fed from a channel.
package processing

import (
	"context"
	"sync"
)

// DefaultWorkers is used when a pool is built with a non-positive size.
const DefaultWorkers = 4

// Pool bounds how many items of a batch run at once.
type Pool struct {
	workers int
}

// New builds a Pool with the given concurrency.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pool{workers: workers}
}

// Workers reports the pool's concurrency.
func (p *Pool) Workers() int {
	return p.workers
}

// Run calls fn(ctx, i) for every i in [0, n) and returns when all calls have
// finished. Items not yet started when ctx is cancelled are skipped; fn is
// responsible for recording its own result at index i.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}
	workers := p.workers
	if n < workers {
		workers = n
	}

	jobs := make(chan int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(ctx, i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}
