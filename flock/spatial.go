package flock

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// Large odd primes mixing the three cell coordinates into one key.
const (
	hashPrimeX int32 = 73856093
	hashPrimeY int32 = 19349669
	hashPrimeZ int32 = 83492791
)

// numShards must be a power of two.
const numShards = 64

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y, Z int32
}

// CellOf returns the grid cell containing p: floor(p / cellSize) per axis.
func CellOf(p r3.Vec, cellSize float64) Cell {
	return Cell{
		X: int32(math.Floor(p.X / cellSize)),
		Y: int32(math.Floor(p.Y / cellSize)),
		Z: int32(math.Floor(p.Z / cellSize)),
	}
}

// Hash folds the cell into a single key. Arithmetic wraps on overflow, so
// distinct cells may share a key; queries filter by distance anyway.
func (c Cell) Hash() int32 {
	return (c.X * hashPrimeX) ^ (c.Y * hashPrimeY) ^ (c.Z * hashPrimeZ)
}

// Offset returns the cell shifted by (dx, dy, dz).
func (c Cell) Offset(dx, dy, dz int32) Cell {
	return Cell{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// hashShard owns the buckets whose key maps to it.
type hashShard struct {
	mu      sync.Mutex
	buckets map[int32][]int32
}

// SpatialHash is a multi-map from cell hash to agent indices.
//
// It is rebuilt every tick: Reset, then concurrent Insert calls from any
// number of workers, then read-only queries. Inserts lock only the shard that
// owns the key, so writers into different cells rarely contend.
type SpatialHash struct {
	cellSize float64
	shards   [numShards]hashShard
}

// NewSpatialHash creates an empty spatial hash with the given cell size.
func NewSpatialHash(cellSize float64) *SpatialHash {
	h := &SpatialHash{cellSize: cellSize}
	for i := range h.shards {
		h.shards[i].buckets = make(map[int32][]int32)
	}
	return h
}

// Reset removes every entry and sets the cell size for the next build.
// Must not run concurrently with Insert or queries.
func (h *SpatialHash) Reset(cellSize float64) {
	h.cellSize = cellSize
	for i := range h.shards {
		clear(h.shards[i].buckets)
	}
}

// CellSize returns the grid cell edge length.
func (h *SpatialHash) CellSize() float64 {
	return h.cellSize
}

func (h *SpatialHash) shard(hash int32) *hashShard {
	return &h.shards[uint32(hash)&(numShards-1)]
}

// Insert adds agent index at position p. Safe for concurrent use.
func (h *SpatialHash) Insert(index int32, p r3.Vec) {
	hash := CellOf(p, h.cellSize).Hash()
	s := h.shard(hash)
	s.mu.Lock()
	s.buckets[hash] = append(s.buckets[hash], index)
	s.mu.Unlock()
}

// Bucket returns the agent indices stored under hash.
// Only valid once the build has completed; the slice must not be modified.
func (h *SpatialHash) Bucket(hash int32) []int32 {
	return h.shard(hash).buckets[hash]
}

// Len returns the total number of entries.
func (h *SpatialHash) Len() int {
	n := 0
	for i := range h.shards {
		for _, b := range h.shards[i].buckets {
			n += len(b)
		}
	}
	return n
}

// Neighbor is an accepted neighbor with precomputed spatial data.
type Neighbor struct {
	Index  int32
	Delta  r3.Vec  // self position minus neighbor position
	DistSq float64 // squared distance (no sqrt in the filter)
}

// QueryInto appends to dst the neighbors of agent i within radius, scanning
// the 3x3x3 block of cells around it, and stops once maxResults are found.
// Reuse dst across calls to avoid allocations.
//
// Which neighbors are kept when the cap triggers depends on bucket order and
// is not deterministic across builds.
func (h *SpatialHash) QueryInto(dst []Neighbor, states []AgentState, i int, radius float64, maxResults int) []Neighbor {
	self := states[i].Position
	center := CellOf(self, h.cellSize)
	radiusSq := radius * radius
	found := 0

	// Colliding cells share a bucket; visit each key once.
	var seen [27]int32
	nSeen := 0

	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				hash := center.Offset(dx, dy, dz).Hash()
				if containsKey(seen[:nSeen], hash) {
					continue
				}
				seen[nSeen] = hash
				nSeen++

				for _, j := range h.Bucket(hash) {
					if int(j) == i {
						continue
					}
					delta := r3.Sub(self, states[j].Position)
					distSq := r3.Norm2(delta)
					// NaN distances are never neighbors.
					if !(distSq < radiusSq) {
						continue
					}
					dst = append(dst, Neighbor{Index: j, Delta: delta, DistSq: distSq})
					found++
					if found >= maxResults {
						return dst
					}
				}
			}
		}
	}
	return dst
}

func containsKey(keys []int32, k int32) bool {
	for _, v := range keys {
		if v == k {
			return true
		}
	}
	return false
}
