package flock

// Store is the agent storage the kernel reads from and writes back to.
// H is an opaque handle; the kernel never interprets it.
type Store[H any] interface {
	// Snapshot appends every flock member to states and handles, index
	// aligned, and returns the extended slices.
	Snapshot(states []AgentState, handles []H) ([]AgentState, []H)
	// Update writes r to the agent behind h. It returns false, without
	// error, if h no longer refers to a live agent.
	Update(h H, r Result) bool
}

// TickReport summarizes one Tick.
type TickReport struct {
	Agents  int // agents in the snapshot
	Written int // results committed
	Skipped int // handles that died before write-back

	// Relocated counts committed results whose position the boundary moved.
	Relocated int
}

// Ticker runs extract, kernel and write-back against a Store.
// Snapshot buffers are reused between ticks.
type Ticker[H any] struct {
	pipeline *Pipeline
	states   []AgentState
	handles  []H
}

// NewTicker wraps a pipeline. The pipeline's phase observer also receives
// the extract and write phases.
func NewTicker[H any](p *Pipeline) *Ticker[H] {
	return &Ticker[H]{
		pipeline: p,
		states:   make([]AgentState, 0, 512),
		handles:  make([]H, 0, 512),
	}
}

// Pipeline returns the underlying kernel.
func (t *Ticker[H]) Pipeline() *Pipeline {
	return t.pipeline
}

// States returns the snapshot taken by the last Tick.
func (t *Ticker[H]) States() []AgentState {
	return t.states
}

// Tick snapshots the store, runs the kernel and writes every result back by
// handle. If the kernel fails nothing is written.
func (t *Ticker[H]) Tick(store Store[H], s Settings, dt float64) (TickReport, error) {
	p := t.pipeline

	p.phase(PhaseExtract)
	clear(t.handles) // release handles from the previous tick
	t.states, t.handles = store.Snapshot(t.states[:0], t.handles[:0])

	report := TickReport{Agents: len(t.states)}

	results, err := p.Run(t.states, s, dt)
	if err != nil {
		return report, err
	}

	p.phase(PhaseWrite)
	for i, h := range t.handles {
		if store.Update(h, results[i]) {
			report.Written++
			if results[i].Relocated {
				report.Relocated++
			}
		} else {
			report.Skipped++
		}
	}
	return report, nil
}
