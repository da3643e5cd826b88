package game

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
	"github.com/pthm-cable/flock/telemetry"
)

func testConfig(t *testing.T, population int) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	cfg.World.Population = population
	cfg.Physics.Workers = 2
	cfg.Physics.ParallelThreshold = 16
	return cfg
}

func newHeadless(t *testing.T, cfg *config.Config, opts Options) *Game {
	t.Helper()
	opts.Headless = true
	opts.Config = cfg
	g := NewGameWithOptions(opts)
	t.Cleanup(g.Unload)
	return g
}

func TestHeadlessStepping(t *testing.T) {
	cfg := testConfig(t, 120)

	var windows []telemetry.WindowStats
	g := newHeadless(t, cfg, Options{
		Seed:           7,
		StatsWindowSec: 0.5, // 30 ticks at 60 Hz
		StepsPerUpdate: 10,
		StatsCallback: func(s telemetry.WindowStats) {
			windows = append(windows, s)
		},
	})

	for i := 0; i < 6; i++ {
		g.UpdateHeadless()
	}

	if g.Tick() != 60 {
		t.Errorf("Tick() = %d, want 60", g.Tick())
	}
	if g.BoidCount() != 120 {
		t.Errorf("BoidCount() = %d, want 120", g.BoidCount())
	}
	if g.LastError() != nil {
		t.Errorf("LastError() = %v", g.LastError())
	}
	if len(windows) != 2 {
		t.Fatalf("stats windows = %d, want 2", len(windows))
	}
	if windows[0].Spawned != 120 || windows[1].Spawned != 0 {
		t.Errorf("Spawned = %d, %d; want 120, 0", windows[0].Spawned, windows[1].Spawned)
	}
	if windows[1].Boids != 120 {
		t.Errorf("Boids = %d, want 120", windows[1].Boids)
	}
	if p := windows[1].Polarization; p < 0 || p > 1 {
		t.Errorf("Polarization = %v, want within [0, 1]", p)
	}

	for _, b := range g.Snapshot().Boids {
		st := b.AgentState()
		if !flock.IsFinite(st.Position) || !flock.IsFinite(st.Direction) {
			t.Fatalf("boid %d has non-finite state %+v", b.ID, st)
		}
		if st.Speed < 0 || st.Speed > cfg.Flock.MoveSpeedCap {
			t.Errorf("boid %d speed %v outside [0, %v]", b.ID, st.Speed, cfg.Flock.MoveSpeedCap)
		}
	}
}

func TestSetPopulationTrims(t *testing.T) {
	g := newHeadless(t, testConfig(t, 50), Options{Seed: 1})
	g.Step()
	g.SetPopulation(20)
	g.Step()

	if g.BoidCount() != 20 {
		t.Errorf("BoidCount() = %d, want 20", g.BoidCount())
	}
	if g.Population() != 20 {
		t.Errorf("Population() = %d, want 20", g.Population())
	}
}

func TestSetSettingsKeepsPreviousOnError(t *testing.T) {
	g := newHeadless(t, testConfig(t, 10), Options{Seed: 1})
	before := g.Settings()

	bad := before
	bad.NeighborRadius = -1
	if err := g.SetSettings(bad); !errors.Is(err, flock.ErrInvalidSettings) {
		t.Fatalf("SetSettings(bad) = %v, want ErrInvalidSettings", err)
	}
	if g.Settings() != before {
		t.Error("settings changed after rejected update")
	}

	good := before
	good.CohesionWeight = 2.5
	if err := g.SetSettings(good); err != nil {
		t.Fatalf("SetSettings(good): %v", err)
	}
	g.Step()
	if g.LastError() != nil {
		t.Errorf("tick with new settings failed: %v", g.LastError())
	}
	if g.Settings().CohesionWeight != 2.5 {
		t.Errorf("CohesionWeight = %v, want 2.5", g.Settings().CohesionWeight)
	}
}

func TestSetSettingsChangesBoundary(t *testing.T) {
	g := newHeadless(t, testConfig(t, 40), Options{Seed: 5})
	g.Step()

	s := g.Settings()
	s.Boundary = flock.BoundaryWrap
	s.BoundarySize = 30
	s.BoundaryCenter = r3.Vec{X: 5}
	if err := g.SetSettings(s); err != nil {
		t.Fatalf("SetSettings: %v", err)
	}
	g.Step()
	if g.LastError() != nil {
		t.Fatalf("tick after boundary change failed: %v", g.LastError())
	}
	if got := g.Settings(); got.Boundary != flock.BoundaryWrap || got.BoundarySize != 30 || got.BoundaryCenter != s.BoundaryCenter {
		t.Errorf("Settings() = %+v, want wrap boundary of size 30 at %v", got, s.BoundaryCenter)
	}

	bad := s
	bad.Boundary = flock.BoundaryKind(7)
	if err := g.SetSettings(bad); !errors.Is(err, flock.ErrInvalidSettings) {
		t.Errorf("SetSettings(unknown kind) = %v, want ErrInvalidSettings", err)
	}
	if g.Settings().Boundary != flock.BoundaryWrap {
		t.Errorf("Boundary = %v after rejected update, want wrap", g.Settings().Boundary)
	}
}

func TestSnapshotRestore(t *testing.T) {
	cfg := testConfig(t, 40)
	src := newHeadless(t, cfg, Options{Seed: 3})
	for i := 0; i < 25; i++ {
		src.Step()
	}
	snap := src.Snapshot()
	if len(snap.Boids) != 40 || snap.Tick != 25 {
		t.Fatalf("snapshot has %d boids at tick %d, want 40 at 25", len(snap.Boids), snap.Tick)
	}

	dst := newHeadless(t, testConfig(t, 5), Options{Seed: 3})
	if err := dst.RestoreSnapshot(snap); err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if err := dst.RestoreSnapshot(snap); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second RestoreSnapshot = %v, want ErrAlreadyStarted", err)
	}
	if dst.Tick() != 25 || dst.Population() != 40 {
		t.Errorf("restored tick %d population %d, want 25 and 40", dst.Tick(), dst.Population())
	}

	restored := make(map[uint32]telemetry.BoidState, len(snap.Boids))
	for _, b := range dst.Snapshot().Boids {
		restored[b.ID] = b
	}
	for _, b := range snap.Boids {
		got, ok := restored[b.ID]
		if !ok {
			t.Fatalf("boid %d missing after restore", b.ID)
		}
		if got.Position != b.Position || got.Speed != b.Speed {
			t.Errorf("boid %d = %+v, want %+v", b.ID, got, b)
		}
	}

	// Stepping keeps the restored population instead of the config's.
	dst.Step()
	if dst.BoidCount() != 40 {
		t.Errorf("BoidCount() after restore = %d, want 40", dst.BoidCount())
	}
}

func TestRestoreRejectsBadSettings(t *testing.T) {
	g := newHeadless(t, testConfig(t, 5), Options{Seed: 1})
	snap := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Flock:   config.FlockFromSettings(flock.DefaultSettings()),
	}
	snap.Flock.Boundary = "torus"

	if err := g.RestoreSnapshot(snap); !errors.Is(err, flock.ErrInvalidSettings) {
		t.Errorf("RestoreSnapshot = %v, want ErrInvalidSettings", err)
	}
}

func TestUnloadWritesOutputs(t *testing.T) {
	cfg := testConfig(t, 30)
	outDir := t.TempDir()
	snapDir := t.TempDir()

	g := NewGameWithOptions(Options{
		Seed:           2,
		Headless:       true,
		Config:         cfg,
		StatsWindowSec: 0.1,
		OutputDir:      outDir,
		SnapshotDir:    snapDir,
	})
	for i := 0; i < 12; i++ {
		g.Step()
	}
	g.Unload()

	for _, name := range []string{"config.yaml", "flock.csv", "perf.csv"} {
		info, err := os.Stat(filepath.Join(outDir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	snap, err := telemetry.LoadSnapshot(filepath.Join(snapDir, "snapshot_12.json"))
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Boids) != 30 || snap.RNGSeed != 2 {
		t.Errorf("snapshot boids=%d seed=%d, want 30 and 2", len(snap.Boids), snap.RNGSeed)
	}
}

func TestBoidsHeadTowardBoundary(t *testing.T) {
	cfg := testConfig(t, 60)
	cfg.World.Spawner = config.Vec3{X: 200}
	cfg.World.Spread = 2

	g := newHeadless(t, cfg, Options{Seed: 4})
	g.Step()

	center := g.Settings().BoundaryCenter
	for _, b := range g.Snapshot().Boids {
		st := b.AgentState()
		toCenter := r3.Sub(center, st.Position)
		if r3.Dot(toCenter, st.Direction) <= 0 {
			t.Errorf("boid %d at %v heads away from the boundary center", b.ID, st.Position)
		}
	}
}
