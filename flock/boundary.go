package flock

import "gonum.org/v1/gonum/spatial/r3"

// Boundary keeps the flock inside a region.
type Boundary interface {
	// Steer returns the steering direction (already weighted, not yet scaled
	// by dt) for an agent at p. Zero when p is inside.
	Steer(p r3.Vec) r3.Vec
	// Wrap returns the relocated position and true if p left the region and
	// must be moved. Soft boundaries always return p, false.
	Wrap(p r3.Vec) (r3.Vec, bool)
}

// NewBoundary builds the strategy selected by s.Boundary.
func NewBoundary(s Settings) Boundary {
	switch s.Boundary {
	case BoundaryBox:
		return BoxBoundary{Center: s.BoundaryCenter, HalfExtent: s.BoundarySize, Weight: s.BoundaryWeight}
	case BoundaryWrap:
		return WrapBoundary{Center: s.BoundaryCenter, Size: s.BoundarySize}
	default:
		return SphereBoundary{Center: s.BoundaryCenter, Radius: s.BoundarySize, Weight: s.BoundaryWeight}
	}
}

// SphereBoundary steers agents back toward Center once they are further than
// Radius from it.
type SphereBoundary struct {
	Center r3.Vec
	Radius float64
	Weight float64
}

func (b SphereBoundary) Steer(p r3.Vec) r3.Vec {
	toCenter := r3.Sub(b.Center, p)
	if r3.Norm2(toCenter) <= b.Radius*b.Radius {
		return r3.Vec{}
	}
	return r3.Scale(b.Weight, SafeNormalize(toCenter))
}

func (SphereBoundary) Wrap(p r3.Vec) (r3.Vec, bool) { return p, false }

// BoxBoundary steers each axis independently back into
// [Center-HalfExtent, Center+HalfExtent].
type BoxBoundary struct {
	Center     r3.Vec
	HalfExtent float64
	Weight     float64
}

func (b BoxBoundary) Steer(p r3.Vec) r3.Vec {
	d := r3.Sub(p, b.Center)
	steer := r3.Vec{
		X: axisSteer(d.X, b.HalfExtent),
		Y: axisSteer(d.Y, b.HalfExtent),
		Z: axisSteer(d.Z, b.HalfExtent),
	}
	return r3.Scale(b.Weight, steer)
}

func axisSteer(offset, half float64) float64 {
	switch {
	case offset > half:
		return -1
	case offset < -half:
		return 1
	}
	return 0
}

func (BoxBoundary) Wrap(p r3.Vec) (r3.Vec, bool) { return p, false }

// WrapBoundary is a toroidal cube of edge Size around Center. Agents leaving
// one face re-enter through the opposite one.
type WrapBoundary struct {
	Center r3.Vec
	Size   float64
}

func (WrapBoundary) Steer(r3.Vec) r3.Vec { return r3.Vec{} }

func (b WrapBoundary) Wrap(p r3.Vec) (r3.Vec, bool) {
	half := b.Size / 2
	minC := r3.Sub(b.Center, r3.Vec{X: half, Y: half, Z: half})
	out := r3.Vec{
		X: wrapAxis(p.X, minC.X, b.Size),
		Y: wrapAxis(p.Y, minC.Y, b.Size),
		Z: wrapAxis(p.Z, minC.Z, b.Size),
	}
	return out, out != p
}

func wrapAxis(v, lo, size float64) float64 {
	if v >= lo && v <= lo+size {
		return v
	}
	return lo + mod(v-lo, size)
}
