package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
)

func TestSnapshotSaveLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}

	state := flock.AgentState{
		Position:  r3.Vec{X: 1.5, Y: -2, Z: 3},
		Direction: r3.Vec{Z: 1},
		Speed:     2.25,
	}
	snap := &Snapshot{
		Version: SnapshotVersion,
		RNGSeed: 7,
		Tick:    120,
		Flock:   cfg.Flock,
		Boids:   []BoidState{NewBoidState(3, state)},
	}

	path, err := SaveSnapshot(snap, dir)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if filepath.Base(path) != "snapshot_120.json" {
		t.Errorf("filename = %s, want snapshot_120.json", filepath.Base(path))
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Tick != 120 || loaded.RNGSeed != 7 {
		t.Errorf("header = tick %d seed %d", loaded.Tick, loaded.RNGSeed)
	}
	if loaded.Flock != cfg.Flock {
		t.Errorf("flock config = %+v, want %+v", loaded.Flock, cfg.Flock)
	}
	if len(loaded.Boids) != 1 || loaded.Boids[0].ID != 3 {
		t.Fatalf("boids = %+v", loaded.Boids)
	}
	if got := loaded.Boids[0].AgentState(); got != state {
		t.Errorf("boid state = %+v, want %+v", got, state)
	}
}

func TestLoadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "boids": []}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}
