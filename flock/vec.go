// Package flock implements the per-tick flocking kernel: a spatial hash over
// agent positions, 27-cell neighbor queries, and steering integration.
//
// The kernel works on flat slices only. Reading agents out of an entity store
// and writing results back is done through the Store interface.
package flock

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SafeNormalize returns the unit vector of v.
// Zero-length and non-finite vectors normalize to the zero vector, never NaN.
func SafeNormalize(v r3.Vec) r3.Vec {
	n2 := r3.Norm2(v)
	if n2 == 0 || math.IsNaN(n2) || math.IsInf(n2, 0) {
		return r3.Vec{}
	}
	return r3.Scale(1/math.Sqrt(n2), v)
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v r3.Vec) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mod returns positive modulo (math.Mod can return negative).
func mod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	return m
}
