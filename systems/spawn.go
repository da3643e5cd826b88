package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/flock"
)

// SpawnConfig controls where and how new boids appear.
type SpawnConfig struct {
	Population int     // target number of boids
	Origin     r3.Vec  // spawner position
	Spread     float64 // half-width of the spawn cube and of the aim jitter
	AimAt      r3.Vec  // new boids head toward this point (plus jitter)
	MinSpeed   float64
	MaxSpeed   float64
}

// SpawnSystem keeps the boid population at its target size.
type SpawnSystem struct {
	world  *ecs.World
	mapper *ecs.Map5[components.Position, components.Direction, components.MoveSpeed, components.Velocity, components.Boid]
	filter ecs.Filter1[components.Boid]
	rng    *rand.Rand
	cfg    SpawnConfig
	nextID uint32

	surplus []ecs.Entity
}

// NewSpawnSystem creates a spawner drawing from rng.
func NewSpawnSystem(w *ecs.World, rng *rand.Rand, cfg SpawnConfig) *SpawnSystem {
	return &SpawnSystem{
		world: w,
		mapper: ecs.NewMap5[
			components.Position,
			components.Direction,
			components.MoveSpeed,
			components.Velocity,
			components.Boid,
		](w),
		filter: *ecs.NewFilter1[components.Boid](w),
		rng:    rng,
		cfg:    cfg,
	}
}

// SetPopulation changes the target population applied on the next Update.
func (s *SpawnSystem) SetPopulation(n int) {
	if n < 0 {
		n = 0
	}
	s.cfg.Population = n
}

// Population returns the target population.
func (s *SpawnSystem) Population() int {
	return s.cfg.Population
}

// Update spawns boids up to the target or removes the surplus.
func (s *SpawnSystem) Update() (spawned, removed int) {
	count := 0
	s.surplus = s.surplus[:0]
	query := s.filter.Query()
	for query.Next() {
		count++
		if count > s.cfg.Population {
			s.surplus = append(s.surplus, query.Entity())
		}
	}

	// Structural changes only after the query is closed.
	for _, e := range s.surplus {
		s.world.RemoveEntity(e)
	}
	removed = len(s.surplus)

	for ; count < s.cfg.Population; count++ {
		s.Spawn()
		spawned++
	}
	return spawned, removed
}

// Spawn creates one boid.
func (s *SpawnSystem) Spawn() ecs.Entity {
	pos := r3.Add(s.cfg.Origin, s.jitter())
	aim := r3.Add(s.cfg.AimAt, s.jitter())
	dir := flock.SafeNormalize(r3.Sub(aim, pos))
	if dir == (r3.Vec{}) {
		dir = r3.Vec{X: 1}
	}

	speed := s.cfg.MinSpeed
	if s.cfg.MaxSpeed > s.cfg.MinSpeed {
		speed += s.rng.Float64() * (s.cfg.MaxSpeed - s.cfg.MinSpeed)
	}

	p := components.Position(pos)
	d := components.Direction(dir)
	ms := components.MoveSpeed{Speed: speed}
	v := components.Velocity(r3.Scale(speed, dir))
	b := components.Boid{ID: s.nextID}
	s.nextID++

	return s.mapper.NewEntity(&p, &d, &ms, &v, &b)
}

// SpawnState creates a boid with a given id and kernel state, as when
// restoring a snapshot. Later Spawn calls continue numbering after id.
func (s *SpawnSystem) SpawnState(id uint32, st flock.AgentState) ecs.Entity {
	dir := flock.SafeNormalize(st.Direction)
	if dir == (r3.Vec{}) {
		dir = r3.Vec{X: 1}
	}
	p := components.Position(st.Position)
	d := components.Direction(dir)
	ms := components.MoveSpeed{Speed: st.Speed}
	v := components.Velocity(r3.Scale(st.Speed, dir))
	b := components.Boid{ID: id}
	if id >= s.nextID {
		s.nextID = id + 1
	}
	return s.mapper.NewEntity(&p, &d, &ms, &v, &b)
}

// jitter returns a uniform offset in [-Spread, Spread] per axis.
func (s *SpawnSystem) jitter() r3.Vec {
	sp := s.cfg.Spread
	return r3.Vec{
		X: (s.rng.Float64()*2 - 1) * sp,
		Y: (s.rng.Float64()*2 - 1) * sp,
		Z: (s.rng.Float64()*2 - 1) * sp,
	}
}
