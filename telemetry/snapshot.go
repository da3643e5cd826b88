package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the flock state needed to resume a run.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`
	Tick    int32 `json:"tick"`

	Flock config.FlockConfig `json:"flock"`
	Boids []BoidState        `json:"boids"`
}

// BoidState holds one boid.
type BoidState struct {
	ID        uint32     `json:"id"`
	Position  [3]float64 `json:"position"`
	Direction [3]float64 `json:"direction"`
	Speed     float64    `json:"speed"`
}

// NewBoidState converts a kernel state.
func NewBoidState(id uint32, s flock.AgentState) BoidState {
	return BoidState{
		ID:        id,
		Position:  [3]float64{s.Position.X, s.Position.Y, s.Position.Z},
		Direction: [3]float64{s.Direction.X, s.Direction.Y, s.Direction.Z},
		Speed:     s.Speed,
	}
}

// AgentState converts back to a kernel state.
func (b BoidState) AgentState() flock.AgentState {
	return flock.AgentState{
		Position:  r3.Vec{X: b.Position[0], Y: b.Position[1], Z: b.Position[2]},
		Direction: r3.Vec{X: b.Direction[0], Y: b.Direction[1], Z: b.Direction[2]},
		Speed:     b.Speed,
	}
}

// SaveSnapshot writes the snapshot to dir/snapshot_<tick>.json and returns the path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
