package telemetry

import "github.com/pthm-cable/flock/flock"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	spawned     int
	removed     int
	skipped     int
	relocated   int
	failedTicks int

	scratch sampleScratch
}

// NewCollector creates a new stats collector.
// windowTicks: ticks per stats window (at least 1)
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowTicks int, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: int32(windowTicks),
		dt:                  dt,
	}
}

// RecordSpawns records spawner activity for one tick.
func (c *Collector) RecordSpawns(spawned, removed int) {
	c.spawned += spawned
	c.removed += removed
}

// RecordTick records the outcome of one kernel tick.
func (c *Collector) RecordTick(report flock.TickReport, err error) {
	if err != nil {
		c.failedTicks++
		return
	}
	c.skipped += report.Skipped
	c.relocated += report.Relocated
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// states and accums describe the flock at currentTick.
func (c *Collector) Flush(currentTick int32, states []flock.AgentState, accums []flock.Accumulator, s flock.Settings) WindowStats {
	sample := sampleFlock(&c.scratch, states, accums, s)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Boids: sample.Boids,

		Spawned:    c.spawned,
		Removed:    c.removed,
		Skipped:    c.skipped,
		Relocated:  c.relocated,
		FailedTick: c.failedTicks,

		NeighborMean: sample.NeighborMean,
		NeighborP50:  sample.NeighborP50,
		NeighborP90:  sample.NeighborP90,
		Isolated:     sample.Isolated,
		Saturated:    sample.Saturated,

		Polarization: sample.Polarization,
		SpeedMean:    sample.SpeedMean,
		SpeedStd:     sample.SpeedStd,

		CenterDistMean: sample.CenterDistMean,
		CenterDistP90:  sample.CenterDistP90,
		Outside:        sample.Outside,
	}

	c.Restart(currentTick)
	return stats
}

// Restart drops the current window's counters and opens a new window at
// tick, as after restoring a snapshot.
func (c *Collector) Restart(tick int32) {
	c.windowStartTick = tick
	c.spawned = 0
	c.removed = 0
	c.skipped = 0
	c.relocated = 0
	c.failedTicks = 0
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
