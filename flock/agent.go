package flock

import "gonum.org/v1/gonum/spatial/r3"

// AgentState is the per-agent snapshot the kernel reads.
// Direction is a unit vector, Speed is >= 0.
type AgentState struct {
	Position  r3.Vec
	Direction r3.Vec
	Speed     float64
}

// Accumulator holds the neighbor sums for one agent.
// Written once by the neighbor stage, read once by the force stage.
type Accumulator struct {
	Alignment  r3.Vec // sum of neighbor directions
	Cohesion   r3.Vec // sum of neighbor positions
	Separation r3.Vec // sum of (self - neighbor) displacements
	Count      int
}

// Result is the kernel output for one agent.
type Result struct {
	Direction r3.Vec
	Speed     float64
	Velocity  r3.Vec // Direction * Speed, for physics-driven stores

	// Set only when the boundary moved the agent (wrap-around).
	Position  r3.Vec
	Relocated bool
}
