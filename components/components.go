// Package components defines ECS components for the flock simulation.
package components

// Boid tags an entity as a flock member.
type Boid struct {
	ID uint32 // stable spawn sequence number, kept across snapshots
}

// MoveSpeed is the scalar speed along Direction, in units per second.
type MoveSpeed struct {
	Speed float64
}
