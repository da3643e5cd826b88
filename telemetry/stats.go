package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/flock"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Boids int `csv:"boids"`

	// Events during window
	Spawned    int `csv:"spawned"`
	Removed    int `csv:"removed"`
	Skipped    int `csv:"skipped_writes"`
	Relocated  int `csv:"relocated"`
	FailedTick int `csv:"failed_ticks"`

	// Neighborhood (sampled at window end)
	NeighborMean float64 `csv:"neighbor_mean"`
	NeighborP50  float64 `csv:"neighbor_p50"`
	NeighborP90  float64 `csv:"neighbor_p90"`
	Isolated     int     `csv:"isolated"` // boids with no neighbors
	Saturated    int     `csv:"saturated"` // boids that hit max_neighbors

	// Motion (sampled at window end)
	Polarization float64 `csv:"polarization"` // |mean heading|, 1 = fully aligned
	SpeedMean    float64 `csv:"speed_mean"`
	SpeedStd     float64 `csv:"speed_std"`

	// Containment (sampled at window end)
	CenterDistMean float64 `csv:"center_dist_mean"`
	CenterDistP90  float64 `csv:"center_dist_p90"`
	Outside        int     `csv:"outside"` // boids beyond boundary_size
}

// FlockSample is the instantaneous shape of the flock.
type FlockSample struct {
	Boids          int
	NeighborMean   float64
	NeighborP50    float64
	NeighborP90    float64
	Isolated       int
	Saturated      int
	Polarization   float64
	SpeedMean      float64
	SpeedStd       float64
	CenterDistMean float64
	CenterDistP90  float64
	Outside        int
}

// Quantile returns the p-quantile of an ascending slice, 0 if empty.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(clampUnit(p), stat.Empirical, sorted, nil)
}

func clampUnit(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// sampleScratch holds reusable buffers for SampleFlock.
type sampleScratch struct {
	neighbors []float64
	speeds    []float64
	dists     []float64
}

func (s *sampleScratch) reset(n int) {
	s.neighbors = s.neighbors[:0]
	s.speeds = s.speeds[:0]
	s.dists = s.dists[:0]
	if cap(s.neighbors) < n {
		s.neighbors = make([]float64, 0, n)
		s.speeds = make([]float64, 0, n)
		s.dists = make([]float64, 0, n)
	}
}

// SampleFlock measures the flock from a kernel snapshot and the matching
// neighbor accumulators. accums may be shorter than states (or nil) when the
// last tick failed; neighbor figures are then zero.
func SampleFlock(states []flock.AgentState, accums []flock.Accumulator, s flock.Settings) FlockSample {
	var scratch sampleScratch
	return sampleFlock(&scratch, states, accums, s)
}

func sampleFlock(scratch *sampleScratch, states []flock.AgentState, accums []flock.Accumulator, s flock.Settings) FlockSample {
	n := len(states)
	out := FlockSample{Boids: n}
	if n == 0 {
		return out
	}
	scratch.reset(n)

	var heading r3.Vec
	for i := range states {
		st := &states[i]
		heading = r3.Add(heading, st.Direction)
		scratch.speeds = append(scratch.speeds, st.Speed)

		d := r3.Norm(r3.Sub(st.Position, s.BoundaryCenter))
		scratch.dists = append(scratch.dists, d)
		if outside(st.Position, d, s) {
			out.Outside++
		}
	}
	out.Polarization = r3.Norm(heading) / float64(n)
	out.SpeedMean, out.SpeedStd = stat.PopMeanStdDev(scratch.speeds, nil)

	sort.Float64s(scratch.dists)
	out.CenterDistMean = stat.Mean(scratch.dists, nil)
	out.CenterDistP90 = Quantile(scratch.dists, 0.9)

	if len(accums) == n {
		for _, a := range accums {
			scratch.neighbors = append(scratch.neighbors, float64(a.Count))
			if a.Count == 0 {
				out.Isolated++
			}
			if a.Count >= s.MaxNeighbors {
				out.Saturated++
			}
		}
		sort.Float64s(scratch.neighbors)
		out.NeighborMean = stat.Mean(scratch.neighbors, nil)
		out.NeighborP50 = Quantile(scratch.neighbors, 0.5)
		out.NeighborP90 = Quantile(scratch.neighbors, 0.9)
	}
	return out
}

// outside reports whether p lies beyond the configured boundary.
func outside(p r3.Vec, dist float64, s flock.Settings) bool {
	switch s.Boundary {
	case flock.BoundaryBox:
		d := r3.Sub(p, s.BoundaryCenter)
		return math.Abs(d.X) > s.BoundarySize || math.Abs(d.Y) > s.BoundarySize || math.Abs(d.Z) > s.BoundarySize
	case flock.BoundaryWrap:
		half := s.BoundarySize / 2
		d := r3.Sub(p, s.BoundaryCenter)
		return math.Abs(d.X) > half || math.Abs(d.Y) > half || math.Abs(d.Z) > half
	default:
		return dist > s.BoundarySize
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("boids", s.Boids),
		slog.Int("spawned", s.Spawned),
		slog.Int("removed", s.Removed),
		slog.Int("skipped_writes", s.Skipped),
		slog.Int("relocated", s.Relocated),
		slog.Int("failed_ticks", s.FailedTick),
		slog.Float64("neighbor_mean", s.NeighborMean),
		slog.Float64("neighbor_p50", s.NeighborP50),
		slog.Float64("neighbor_p90", s.NeighborP90),
		slog.Int("isolated", s.Isolated),
		slog.Int("saturated", s.Saturated),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("center_dist_mean", s.CenterDistMean),
		slog.Float64("center_dist_p90", s.CenterDistP90),
		slog.Int("outside", s.Outside),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"boids", s.Boids,
		"spawned", s.Spawned,
		"removed", s.Removed,
		"skipped_writes", s.Skipped,
		"failed_ticks", s.FailedTick,
		"neighbor_mean", s.NeighborMean,
		"neighbor_p90", s.NeighborP90,
		"polarization", s.Polarization,
		"speed_mean", s.SpeedMean,
		"center_dist_mean", s.CenterDistMean,
		"outside", s.Outside,
	)
}
