package flock

import "gonum.org/v1/gonum/spatial/r3"

// Steer integrates one agent for dt seconds. The flocking acceleration is
// applied to the heading and renormalized, then the boundary correction is
// applied and the heading renormalized again. Speed grows by
// |acceleration|*dt and is clamped to the cap.
func Steer(a AgentState, acc Accumulator, s *Settings, b Boundary, dt float64) Result {
	f := ComputeForces(a.Position, acc, s)
	accel := f.Acceleration()

	dir := turn(a.Direction, r3.Scale(dt, accel))
	if steer := b.Steer(a.Position); steer != (r3.Vec{}) {
		dir = turn(dir, r3.Scale(dt, steer))
	}

	speed := clamp(a.Speed+r3.Norm(accel)*dt, 0, s.MoveSpeedCap)
	if !isFinite(speed) {
		speed = 0
	}

	res := Result{
		Direction: dir,
		Speed:     speed,
		Velocity:  r3.Scale(speed, dir),
	}
	if p, moved := b.Wrap(a.Position); moved {
		res.Position = p
		res.Relocated = true
	}
	return res
}

// turn adds delta to the heading dir and renormalizes. If delta cancels the
// heading exactly, the previous heading is kept.
func turn(dir, delta r3.Vec) r3.Vec {
	if next := SafeNormalize(r3.Add(dir, delta)); next != (r3.Vec{}) {
		return next
	}
	return SafeNormalize(dir)
}
