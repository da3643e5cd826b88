package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/flock"
)

// BoidStore exposes flock members in the ECS world to the flock kernel.
// Handles are ark entities; stale entities are skipped on write-back.
type BoidStore struct {
	world  *ecs.World
	filter ecs.Filter4[components.Position, components.Direction, components.MoveSpeed, components.Boid]

	posMap   *ecs.Map[components.Position]
	dirMap   *ecs.Map[components.Direction]
	speedMap *ecs.Map[components.MoveSpeed]
	velMap   *ecs.Map[components.Velocity]
	boidMap  *ecs.Map[components.Boid]
}

// NewBoidStore creates a store over w.
func NewBoidStore(w *ecs.World) *BoidStore {
	return &BoidStore{
		world:    w,
		filter:   *ecs.NewFilter4[components.Position, components.Direction, components.MoveSpeed, components.Boid](w),
		posMap:   ecs.NewMap[components.Position](w),
		dirMap:   ecs.NewMap[components.Direction](w),
		speedMap: ecs.NewMap[components.MoveSpeed](w),
		velMap:   ecs.NewMap[components.Velocity](w),
		boidMap:  ecs.NewMap[components.Boid](w),
	}
}

// Snapshot appends every boid's state and entity, index aligned.
func (s *BoidStore) Snapshot(states []flock.AgentState, handles []ecs.Entity) ([]flock.AgentState, []ecs.Entity) {
	query := s.filter.Query()
	for query.Next() {
		pos, dir, speed, _ := query.Get()
		states = append(states, flock.AgentState{
			Position:  pos.Vec(),
			Direction: dir.Vec(),
			Speed:     speed.Speed,
		})
		handles = append(handles, query.Entity())
	}
	return states, handles
}

// Update writes a kernel result to e. Returns false if e was removed since
// the snapshot.
func (s *BoidStore) Update(e ecs.Entity, r flock.Result) bool {
	if !s.world.Alive(e) || !s.dirMap.Has(e) || !s.speedMap.Has(e) {
		return false
	}

	*s.dirMap.Get(e) = components.Direction(r.Direction)
	s.speedMap.Get(e).Speed = r.Speed

	if s.velMap.Has(e) {
		*s.velMap.Get(e) = components.Velocity(r.Velocity)
	}
	if r.Relocated && s.posMap.Has(e) {
		*s.posMap.Get(e) = components.Position(r.Position)
	}
	return true
}

// ID returns the boid id of e, or false if e is not a live boid.
func (s *BoidStore) ID(e ecs.Entity) (uint32, bool) {
	if !s.world.Alive(e) || !s.boidMap.Has(e) {
		return 0, false
	}
	return s.boidMap.Get(e).ID, true
}
