package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/components"
)

// MovementSystem advances boid positions along their heading.
type MovementSystem struct {
	filter ecs.Filter3[components.Position, components.Direction, components.MoveSpeed]
}

// NewMovementSystem creates a new movement system.
func NewMovementSystem(w *ecs.World) *MovementSystem {
	return &MovementSystem{
		filter: *ecs.NewFilter3[components.Position, components.Direction, components.MoveSpeed](w),
	}
}

// Update moves every entity by Direction * Speed * dt.
func (s *MovementSystem) Update(dt float64) {
	query := s.filter.Query()
	for query.Next() {
		pos, dir, speed := query.Get()
		step := r3.Scale(speed.Speed*dt, dir.Vec())
		*pos = components.Position(r3.Add(pos.Vec(), step))
	}
}
