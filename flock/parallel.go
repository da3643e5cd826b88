package flock

import (
	"fmt"
	"runtime"
	"sync"
)

// DefaultParallelThreshold is the minimum work size dispatched to the pool.
// Below this, running inline is faster than waking the workers.
const DefaultParallelThreshold = 64

// ChunkFunc processes the half-open range [start, end) on the given worker.
// worker indexes per-worker scratch and is always < NumWorkers.
type ChunkFunc func(start, end, worker int)

type workChunk struct {
	start, end int
	fn         ChunkFunc
}

// WorkerPool runs parallel-for stages on persistent goroutines.
//
// ParallelFor is a barrier: it returns only after every chunk of the stage
// has finished, so consecutive stages never overlap. A pool is driven by one
// goroutine at a time.
type WorkerPool struct {
	numWorkers int
	threshold  int

	workChan chan workChunk // sends work to workers
	doneChan chan error     // workers report chunk completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup
	running  bool
}

// NewWorkerPool creates a pool. numWorkers <= 0 uses GOMAXPROCS; threshold
// <= 0 uses DefaultParallelThreshold. Workers start on first use.
func NewWorkerPool(numWorkers, threshold int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}
	return &WorkerPool{numWorkers: numWorkers, threshold: threshold}
}

// NumWorkers returns the number of worker slots.
func (p *WorkerPool) NumWorkers() int {
	return p.numWorkers
}

func (p *WorkerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan error, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Close stops the workers and waits for them to exit. The pool restarts on
// the next ParallelFor.
func (p *WorkerPool) Close() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.doneChan <- runChunk(chunk.fn, chunk.start, chunk.end, id)
		}
	}
}

// runChunk converts a panic in fn into an error so one bad agent cannot take
// down the worker goroutine.
func runChunk(fn ChunkFunc, start, end, worker int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in range [%d,%d): %v", start, end, r)
		}
	}()
	fn(start, end, worker)
	return nil
}

// ParallelFor splits [0, n) into one chunk per worker and blocks until all
// chunks are done. The first chunk failure is returned wrapped in
// ErrStageFailed with the stage name.
func (p *WorkerPool) ParallelFor(stage string, n int, fn ChunkFunc) error {
	if n <= 0 {
		return nil
	}

	if n < p.threshold || p.numWorkers == 1 {
		if err := runChunk(fn, 0, n, 0); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrStageFailed, stage, err)
		}
		return nil
	}

	p.start()

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, fn: fn}
		dispatched++
	}

	// Drain every chunk even after a failure so no worker is still writing
	// when the caller discards the tick.
	var firstErr error
	for i := 0; i < dispatched; i++ {
		if err := <-p.doneChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrStageFailed, stage, firstErr)
	}
	return nil
}
