package main

import "github.com/pthm-cable/flock/flock"

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable flock weights.
// Defaults are taken from base so the search starts at the loaded config.
func NewParamVector(base flock.Settings) *ParamVector {
	pv := &ParamVector{
		Specs: []ParamSpec{
			{Name: "alignment_weight", Path: "flock.alignment_weight", Min: 0, Max: 4},
			{Name: "cohesion_weight", Path: "flock.cohesion_weight", Min: 0, Max: 4},
			{Name: "separation_weight", Path: "flock.separation_weight", Min: 0, Max: 4},
			{Name: "boundary_weight", Path: "flock.boundary_weight", Min: 1, Max: 40},
		},
	}
	defaults := pv.Clamp(pv.ExtractFromSettings(base))
	for i := range pv.Specs {
		pv.Specs[i].Default = defaults[i]
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Apply returns s with the (clamped) parameter values substituted.
// Order must match Specs order.
func (pv *ParamVector) Apply(s flock.Settings, values []float64) flock.Settings {
	c := pv.Clamp(values)
	s.AlignmentWeight = c[0]
	s.CohesionWeight = c[1]
	s.SeparationWeight = c[2]
	s.BoundaryWeight = c[3]
	return s
}

// ExtractFromSettings reads the current parameter values from s.
func (pv *ParamVector) ExtractFromSettings(s flock.Settings) []float64 {
	return []float64{
		s.AlignmentWeight,
		s.CohesionWeight,
		s.SeparationWeight,
		s.BoundaryWeight,
	}
}
