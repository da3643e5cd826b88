package telemetry

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/flock"
)

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(10, 0.5)

	if c.ShouldFlush(9) {
		t.Error("should not flush before the window ends")
	}
	if !c.ShouldFlush(10) {
		t.Error("should flush at the window end")
	}

	c.RecordSpawns(5, 1)
	c.RecordSpawns(2, 0)
	c.RecordTick(flock.TickReport{Agents: 6, Written: 4, Skipped: 2, Relocated: 2}, nil)
	c.RecordTick(flock.TickReport{Relocated: 9}, errors.New("boom"))

	states := []flock.AgentState{{Direction: r3.Vec{X: 1}, Speed: 1}}
	stats := c.Flush(10, states, nil, flock.DefaultSettings())

	if stats.WindowStartTick != 0 || stats.WindowEndTick != 10 {
		t.Errorf("window = [%d, %d], want [0, 10]", stats.WindowStartTick, stats.WindowEndTick)
	}
	if stats.SimTimeSec != 5 {
		t.Errorf("SimTimeSec = %v, want 5", stats.SimTimeSec)
	}
	if stats.Spawned != 7 || stats.Removed != 1 {
		t.Errorf("Spawned/Removed = %d/%d, want 7/1", stats.Spawned, stats.Removed)
	}
	if stats.Skipped != 2 || stats.Relocated != 2 || stats.FailedTick != 1 {
		t.Errorf("Skipped/Relocated/FailedTick = %d/%d/%d, want 2/2/1", stats.Skipped, stats.Relocated, stats.FailedTick)
	}
	if stats.Boids != 1 {
		t.Errorf("Boids = %d, want 1", stats.Boids)
	}

	// Counters reset and the window advances.
	next := c.Flush(20, nil, nil, flock.DefaultSettings())
	if next.WindowStartTick != 10 || next.Spawned != 0 || next.FailedTick != 0 {
		t.Errorf("second window not reset: %+v", next)
	}
	if c.ShouldFlush(25) {
		t.Error("should not flush mid-window")
	}
}

func TestCollectorMinimumWindow(t *testing.T) {
	if got := NewCollector(0, 1).WindowDurationTicks(); got != 1 {
		t.Errorf("WindowDurationTicks = %d, want 1", got)
	}
}

func TestCollectorRestart(t *testing.T) {
	c := NewCollector(10, 1)
	c.RecordSpawns(3, 0)
	c.Restart(500)

	if c.ShouldFlush(505) {
		t.Error("should not flush mid-window after Restart")
	}
	stats := c.Flush(510, nil, nil, flock.DefaultSettings())
	if stats.WindowStartTick != 500 || stats.Spawned != 0 {
		t.Errorf("after Restart: start=%d spawned=%d, want 500 and 0", stats.WindowStartTick, stats.Spawned)
	}
}
