// Package camera provides an orbit camera for viewing the flock volume.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Orbit circles a target point at a given distance.
// Yaw turns around the world Y axis, Pitch tilts toward it.
type Orbit struct {
	Target   r3.Vec
	Yaw      float64 // radians
	Pitch    float64 // radians, kept inside (-MaxPitch, MaxPitch)
	Distance float64

	// Distance constraints
	MinDistance, MaxDistance float64
}

// MaxPitch stops the camera short of the poles, where the up vector degenerates.
const MaxPitch = math.Pi/2 - 0.05

// New creates a camera looking at target from distance, slightly above the
// horizon.
func New(target r3.Vec, distance float64) *Orbit {
	o := &Orbit{
		Target:      target,
		Yaw:         math.Pi / 6,
		Pitch:       math.Pi / 8,
		MinDistance: distance / 10,
		MaxDistance: distance * 4,
	}
	o.Distance = o.clampDistance(distance)
	return o
}

// Frame aims at center and backs off far enough to see a sphere of radius.
func (o *Orbit) Frame(center r3.Vec, radius float64) {
	o.Target = center
	o.MinDistance = radius / 4
	o.MaxDistance = radius * 10
	o.Distance = o.clampDistance(radius * 2.5)
}

// Position returns the camera location in world coordinates.
func (o *Orbit) Position() r3.Vec {
	cp := math.Cos(o.Pitch)
	offset := r3.Vec{
		X: o.Distance * cp * math.Sin(o.Yaw),
		Y: o.Distance * math.Sin(o.Pitch),
		Z: o.Distance * cp * math.Cos(o.Yaw),
	}
	return r3.Add(o.Target, offset)
}

// Rotate turns the camera by the given yaw and pitch deltas in radians.
func (o *Orbit) Rotate(dYaw, dPitch float64) {
	o.Yaw = math.Mod(o.Yaw+dYaw, 2*math.Pi)
	o.Pitch = math.Max(-MaxPitch, math.Min(MaxPitch, o.Pitch+dPitch))
}

// Zoom scales the distance by factor (< 1 moves closer).
func (o *Orbit) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	o.Distance = o.clampDistance(o.Distance * factor)
}

func (o *Orbit) clampDistance(d float64) float64 {
	if d < o.MinDistance {
		return o.MinDistance
	}
	if o.MaxDistance > 0 && d > o.MaxDistance {
		return o.MaxDistance
	}
	return d
}
