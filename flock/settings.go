package flock

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidSettings is wrapped by every settings validation failure.
	ErrInvalidSettings = errors.New("invalid flock settings")
	// ErrInvalidDeltaTime is returned when a tick is requested with dt <= 0.
	ErrInvalidDeltaTime = errors.New("delta time must be positive and finite")
	// ErrStageFailed is wrapped when a pipeline stage aborts the tick.
	ErrStageFailed = errors.New("pipeline stage failed")
)

// BoundaryKind selects the boundary strategy applied after steering.
type BoundaryKind uint8

const (
	BoundarySphere BoundaryKind = iota // soft steer back inside a sphere
	BoundaryBox                        // soft steer back inside an axis-aligned cube
	BoundaryWrap                       // toroidal wrap-around of positions
)

var boundaryNames = [...]string{
	BoundarySphere: "sphere",
	BoundaryBox:    "box",
	BoundaryWrap:   "wrap",
}

func (k BoundaryKind) String() string {
	if int(k) < len(boundaryNames) {
		return boundaryNames[k]
	}
	return fmt.Sprintf("BoundaryKind(%d)", uint8(k))
}

// ParseBoundaryKind maps a config name to a BoundaryKind.
func ParseBoundaryKind(name string) (BoundaryKind, error) {
	for i, n := range boundaryNames {
		if strings.EqualFold(n, name) {
			return BoundaryKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown boundary %q (want sphere, box or wrap)", ErrInvalidSettings, name)
}

// Settings holds the flocking parameters for one tick.
// It is copied into the pipeline and shared read-only by all workers.
type Settings struct {
	// Neighbor query
	NeighborRadius float64
	MaxNeighbors   int
	CellSize       float64

	// Behavior
	MoveSpeedCap     float64
	AlignmentWeight  float64
	CohesionWeight   float64
	SeparationWeight float64

	// Boundary
	Boundary       BoundaryKind
	BoundaryCenter r3.Vec
	BoundarySize   float64
	BoundaryWeight float64
}

// DefaultSettings returns the stock tuning: radius 5, 10 neighbors, 10 unit cells.
func DefaultSettings() Settings {
	return Settings{
		NeighborRadius:   5,
		MaxNeighbors:     10,
		CellSize:         10,
		MoveSpeedCap:     5,
		AlignmentWeight:  1,
		CohesionWeight:   1,
		SeparationWeight: 1,
		Boundary:         BoundarySphere,
		BoundarySize:     50,
		BoundaryWeight:   10,
	}
}

// Validate rejects settings the pipeline cannot run with.
// All problems are reported together.
func (s Settings) Validate() error {
	var problems []string

	if !(s.NeighborRadius > 0) || !isFinite(s.NeighborRadius) {
		problems = append(problems, fmt.Sprintf("neighbor_radius must be > 0 (got %v)", s.NeighborRadius))
	}
	if s.MaxNeighbors <= 0 {
		problems = append(problems, fmt.Sprintf("max_neighbors must be > 0 (got %d)", s.MaxNeighbors))
	}
	if !(s.CellSize > 0) || !isFinite(s.CellSize) {
		problems = append(problems, fmt.Sprintf("cell_size must be > 0 (got %v)", s.CellSize))
	}
	if !(s.MoveSpeedCap >= 0) || !isFinite(s.MoveSpeedCap) {
		problems = append(problems, fmt.Sprintf("move_speed_cap must be >= 0 (got %v)", s.MoveSpeedCap))
	}
	if !(s.BoundarySize > 0) || !isFinite(s.BoundarySize) {
		problems = append(problems, fmt.Sprintf("boundary_size must be > 0 (got %v)", s.BoundarySize))
	}
	for name, w := range map[string]float64{
		"alignment_weight":  s.AlignmentWeight,
		"cohesion_weight":   s.CohesionWeight,
		"separation_weight": s.SeparationWeight,
		"boundary_weight":   s.BoundaryWeight,
	} {
		if !isFinite(w) {
			problems = append(problems, fmt.Sprintf("%s must be finite (got %v)", name, w))
		}
	}
	if !IsFinite(s.BoundaryCenter) {
		problems = append(problems, fmt.Sprintf("boundary_center must be finite (got %v)", s.BoundaryCenter))
	}
	if int(s.Boundary) >= len(boundaryNames) {
		problems = append(problems, fmt.Sprintf("unknown boundary %v", s.Boundary))
	}

	if len(problems) == 0 {
		return nil
	}
	// Map iteration order is random; keep messages stable.
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
}

// CoversRadius reports whether the 27-cell search is guaranteed to see every
// agent within NeighborRadius.
func (s Settings) CoversRadius() bool {
	return s.CellSize >= s.NeighborRadius
}
