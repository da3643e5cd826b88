package flock

import (
	"fmt"
	"math"
)

// Phase names reported to a PhaseObserver, in execution order.
const (
	PhaseExtract   = "extract"
	PhaseIndex     = "spatial_index"
	PhaseNeighbors = "neighbors"
	PhaseForces    = "forces"
	PhaseWrite     = "write"
)

// PhaseObserver is notified when each pipeline stage begins.
// telemetry.PerfCollector satisfies it.
type PhaseObserver interface {
	StartPhase(name string)
}

// Pipeline runs the per-tick kernel over a flat snapshot:
// index build, then neighbor accumulation, then steering. Each stage is a
// parallel-for with a barrier before the next.
//
// Buffers are kept between ticks as capacity only; nothing computed in one
// tick is read in the next. A Pipeline is not safe for concurrent Run calls.
type Pipeline struct {
	pool     *WorkerPool
	index    *SpatialHash
	accums   []Accumulator
	results  []Result
	scratch  [][]Neighbor
	observer PhaseObserver

	// Per-tick inputs, valid only inside Run.
	states   []AgentState
	settings Settings
	boundary Boundary
	dt       float64

	indexFn    ChunkFunc
	neighborFn ChunkFunc
	forceFn    ChunkFunc
}

// NewPipeline creates a pipeline backed by its own worker pool.
// numWorkers <= 0 uses GOMAXPROCS; threshold <= 0 uses the default.
func NewPipeline(numWorkers, threshold int) *Pipeline {
	pool := NewWorkerPool(numWorkers, threshold)
	p := &Pipeline{
		pool:    pool,
		index:   NewSpatialHash(DefaultSettings().CellSize),
		scratch: make([][]Neighbor, pool.NumWorkers()),
	}
	for i := range p.scratch {
		p.scratch[i] = make([]Neighbor, 0, 64)
	}
	p.indexFn = p.indexChunk
	p.neighborFn = p.neighborChunk
	p.forceFn = p.forceChunk
	return p
}

// SetPhaseObserver installs an observer for stage timings. nil disables it.
func (p *Pipeline) SetPhaseObserver(o PhaseObserver) {
	p.observer = o
}

func (p *Pipeline) phase(name string) {
	if p.observer != nil {
		p.observer.StartPhase(name)
	}
}

// Close stops the worker pool.
func (p *Pipeline) Close() {
	p.pool.Close()
}

// Index exposes the spatial hash built by the last Run.
func (p *Pipeline) Index() *SpatialHash {
	return p.index
}

// Accumulators returns the neighbor sums from the last successful Run,
// index-aligned with its input. The slice is overwritten by the next Run.
func (p *Pipeline) Accumulators() []Accumulator {
	return p.accums
}

// Run computes one result per state. The returned slice is owned by the
// pipeline and valid until the next Run.
//
// Invalid settings or dt fail before any stage starts. A failing stage aborts
// the tick and no results are returned.
func (p *Pipeline) Run(states []AgentState, s Settings, dt float64) ([]Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidDeltaTime, dt)
	}

	n := len(states)
	p.index.Reset(s.CellSize)
	p.accums = resize(p.accums, n)
	p.results = resize(p.results, n)
	if n == 0 {
		return p.results, nil
	}

	p.states = states
	p.settings = s
	p.boundary = NewBoundary(s)
	p.dt = dt
	defer func() { p.states = nil }()

	p.phase(PhaseIndex)
	if err := p.pool.ParallelFor(PhaseIndex, n, p.indexFn); err != nil {
		return nil, err
	}

	p.phase(PhaseNeighbors)
	if err := p.pool.ParallelFor(PhaseNeighbors, n, p.neighborFn); err != nil {
		return nil, err
	}

	p.phase(PhaseForces)
	if err := p.pool.ParallelFor(PhaseForces, n, p.forceFn); err != nil {
		return nil, err
	}

	return p.results, nil
}

func (p *Pipeline) indexChunk(start, end, _ int) {
	for i := start; i < end; i++ {
		p.index.Insert(int32(i), p.states[i].Position)
	}
}

func (p *Pipeline) neighborChunk(start, end, worker int) {
	s := &p.settings
	buf := p.scratch[worker]
	for i := start; i < end; i++ {
		buf = p.index.QueryInto(buf[:0], p.states, i, s.NeighborRadius, s.MaxNeighbors)
		p.accums[i] = Accumulate(p.states, buf)
	}
	p.scratch[worker] = buf
}

func (p *Pipeline) forceChunk(start, end, _ int) {
	for i := start; i < end; i++ {
		p.results[i] = Steer(p.states[i], p.accums[i], &p.settings, p.boundary, p.dt)
	}
}

// resize returns buf with length n, zeroed, reusing capacity when possible.
func resize[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}
