package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/flock"
)

func testSpawnConfig(n int) SpawnConfig {
	return SpawnConfig{
		Population: n,
		Origin:     r3.Vec{X: 10, Y: -5, Z: 3},
		Spread:     4,
		AimAt:      r3.Vec{},
		MinSpeed:   1,
		MaxSpeed:   3,
	}
}

func TestSpawnSystemTopsUpAndTrims(t *testing.T) {
	w := ecs.NewWorld()
	spawn := NewSpawnSystem(w, rand.New(rand.NewSource(1)), testSpawnConfig(25))

	spawned, removed := spawn.Update()
	if spawned != 25 || removed != 0 {
		t.Fatalf("first Update = (%d, %d), want (25, 0)", spawned, removed)
	}
	if n := countBoids(w); n != 25 {
		t.Fatalf("boids = %d, want 25", n)
	}

	spawned, removed = spawn.Update()
	if spawned != 0 || removed != 0 {
		t.Errorf("steady Update = (%d, %d), want (0, 0)", spawned, removed)
	}

	spawn.SetPopulation(10)
	spawned, removed = spawn.Update()
	if spawned != 0 || removed != 15 {
		t.Errorf("shrink Update = (%d, %d), want (0, 15)", spawned, removed)
	}
	if n := countBoids(w); n != 10 {
		t.Errorf("boids after shrink = %d, want 10", n)
	}
}

func TestSpawnedBoidsWithinBounds(t *testing.T) {
	w := ecs.NewWorld()
	cfg := testSpawnConfig(200)
	spawn := NewSpawnSystem(w, rand.New(rand.NewSource(2)), cfg)
	spawn.Update()

	filter := ecs.NewFilter4[components.Position, components.Direction, components.MoveSpeed, components.Velocity](w)
	query := filter.Query()
	for query.Next() {
		pos, dir, speed, vel := query.Get()

		d := r3.Sub(pos.Vec(), cfg.Origin)
		if math.Abs(d.X) > cfg.Spread || math.Abs(d.Y) > cfg.Spread || math.Abs(d.Z) > cfg.Spread {
			t.Errorf("position %v outside spawn cube", *pos)
		}
		if l := r3.Norm(dir.Vec()); math.Abs(l-1) > 1e-9 {
			t.Errorf("|direction| = %v, want 1", l)
		}
		if speed.Speed < cfg.MinSpeed || speed.Speed > cfg.MaxSpeed {
			t.Errorf("speed %v outside [%v, %v]", speed.Speed, cfg.MinSpeed, cfg.MaxSpeed)
		}
		want := r3.Scale(speed.Speed, dir.Vec())
		if r3.Norm(r3.Sub(vel.Vec(), want)) > 1e-9 {
			t.Errorf("velocity %v, want %v", *vel, want)
		}
	}
}

func TestBoidStoreSnapshotAndUpdate(t *testing.T) {
	w := ecs.NewWorld()
	spawn := NewSpawnSystem(w, rand.New(rand.NewSource(3)), testSpawnConfig(5))
	spawn.Update()

	// A boid without Velocity still receives heading and speed.
	bare := ecs.NewMap4[components.Position, components.Direction, components.MoveSpeed, components.Boid](w)
	lone := bare.NewEntity(
		&components.Position{X: 1},
		&components.Direction{X: 1},
		&components.MoveSpeed{Speed: 2},
		&components.Boid{ID: 99},
	)

	store := NewBoidStore(w)
	states, handles := store.Snapshot(nil, nil)
	if len(states) != 6 || len(handles) != 6 {
		t.Fatalf("Snapshot returned %d states, %d handles, want 6", len(states), len(handles))
	}

	res := flock.Result{
		Direction: r3.Vec{Y: 1},
		Speed:     4,
		Velocity:  r3.Vec{Y: 4},
		Position:  r3.Vec{Z: 7},
		Relocated: true,
	}
	for _, h := range handles {
		if !store.Update(h, res) {
			t.Fatalf("Update(%v) = false for live entity", h)
		}
	}

	dirMap := ecs.NewMap[components.Direction](w)
	posMap := ecs.NewMap[components.Position](w)
	velMap := ecs.NewMap[components.Velocity](w)
	for _, h := range handles {
		if got := dirMap.Get(h).Vec(); got != res.Direction {
			t.Errorf("direction = %v, want %v", got, res.Direction)
		}
		if got := posMap.Get(h).Vec(); got != res.Position {
			t.Errorf("position = %v, want relocated %v", got, res.Position)
		}
		if h != lone {
			if got := velMap.Get(h).Vec(); got != res.Velocity {
				t.Errorf("velocity = %v, want %v", got, res.Velocity)
			}
		}
	}
	if velMap.Has(lone) {
		t.Error("Update must not add a Velocity component")
	}
}

func TestBoidStoreSkipsRemovedEntities(t *testing.T) {
	w := ecs.NewWorld()
	spawn := NewSpawnSystem(w, rand.New(rand.NewSource(4)), testSpawnConfig(40))
	spawn.Update()

	store := NewBoidStore(w)
	p := flock.NewPipeline(1, 0)
	defer p.Close()
	ticker := flock.NewTicker[ecs.Entity](p)

	// Remove a few boids between snapshot and write-back.
	killing := &killingStore{BoidStore: store, world: w, kill: 3}
	report, err := ticker.Tick(killing, flock.DefaultSettings(), 0.1)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Agents != 40 || report.Skipped != 3 || report.Written != 37 {
		t.Errorf("report = %+v, want 40 agents, 37 written, 3 skipped", report)
	}
}

// killingStore removes the first kill entities right after the snapshot.
type killingStore struct {
	*BoidStore
	world *ecs.World
	kill  int
}

func (k *killingStore) Snapshot(states []flock.AgentState, handles []ecs.Entity) ([]flock.AgentState, []ecs.Entity) {
	states, handles = k.BoidStore.Snapshot(states, handles)
	for _, e := range handles[:k.kill] {
		k.world.RemoveEntity(e)
	}
	return states, handles
}

func TestMovementSystem(t *testing.T) {
	w := ecs.NewWorld()
	mapper := ecs.NewMap3[components.Position, components.Direction, components.MoveSpeed](w)
	e := mapper.NewEntity(
		&components.Position{X: 1, Y: 1, Z: 1},
		&components.Direction{Z: -1},
		&components.MoveSpeed{Speed: 4},
	)

	NewMovementSystem(w).Update(0.5)

	got := ecs.NewMap[components.Position](w).Get(e).Vec()
	if want := (r3.Vec{X: 1, Y: 1, Z: -1}); got != want {
		t.Errorf("position = %v, want %v", got, want)
	}
}

func countBoids(w *ecs.World) int {
	n := 0
	query := ecs.NewFilter1[components.Boid](w).Query()
	for query.Next() {
		n++
	}
	return n
}

func TestSpawnStateRestoresIDs(t *testing.T) {
	w := ecs.NewWorld()
	spawn := NewSpawnSystem(w, rand.New(rand.NewSource(3)), testSpawnConfig(0))
	store := NewBoidStore(w)

	st := flock.AgentState{
		Position:  r3.Vec{X: 2, Y: 3, Z: 4},
		Direction: r3.Vec{Y: 2},
		Speed:     1.5,
	}
	e := spawn.SpawnState(41, st)

	id, ok := store.ID(e)
	if !ok || id != 41 {
		t.Fatalf("ID = (%d, %v), want (41, true)", id, ok)
	}
	if got := ecs.NewMap[components.Direction](w).Get(e).Vec(); got != (r3.Vec{Y: 1}) {
		t.Errorf("direction = %v, want unit +Y", got)
	}

	next := spawn.Spawn()
	if id, _ := store.ID(next); id != 42 {
		t.Errorf("next spawned id = %d, want 42", id)
	}

	w.RemoveEntity(e)
	if _, ok := store.ID(e); ok {
		t.Error("ID reported a removed entity")
	}
}
