package flock

import "gonum.org/v1/gonum/spatial/r3"

// Accumulate folds a neighbor list into the alignment, cohesion and
// separation sums for one agent.
func Accumulate(states []AgentState, neighbors []Neighbor) Accumulator {
	var acc Accumulator
	for _, n := range neighbors {
		other := &states[n.Index]
		acc.Alignment = r3.Add(acc.Alignment, other.Direction)
		acc.Cohesion = r3.Add(acc.Cohesion, other.Position)
		acc.Separation = r3.Add(acc.Separation, n.Delta)
		acc.Count++
	}
	return acc
}

// Forces are the weighted steering components derived from an Accumulator.
type Forces struct {
	Alignment  r3.Vec
	Cohesion   r3.Vec
	Separation r3.Vec
}

// Acceleration is the sum of the three components.
func (f Forces) Acceleration() r3.Vec {
	return r3.Add(r3.Add(f.Alignment, f.Cohesion), f.Separation)
}

// ComputeForces turns neighbor sums into weighted steering forces for an agent
// at position p. With no neighbors all forces are zero.
func ComputeForces(p r3.Vec, acc Accumulator, s *Settings) Forces {
	if acc.Count == 0 {
		return Forces{}
	}
	inv := 1 / float64(acc.Count)

	avgDir := r3.Scale(inv, acc.Alignment)
	center := r3.Scale(inv, acc.Cohesion)
	avgSep := r3.Scale(inv, acc.Separation)

	return Forces{
		Alignment:  r3.Scale(s.AlignmentWeight, SafeNormalize(avgDir)),
		Cohesion:   r3.Scale(s.CohesionWeight, SafeNormalize(r3.Sub(center, p))),
		Separation: r3.Scale(s.SeparationWeight, SafeNormalize(avgSep)),
	}
}
