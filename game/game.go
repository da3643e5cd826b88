// Package game wires the flock kernel, the ECS systems and telemetry into a
// fixed-step simulation that runs headless or in a raylib window.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/telemetry"
)

// ErrAlreadyStarted is returned by RestoreSnapshot once the game has stepped.
var ErrAlreadyStarted = errors.New("game already started")

// Options configures a Game.
type Options struct {
	Seed           int64   // RNG seed (0 = world.seed from config)
	LogStats       bool    // log window stats via slog
	StatsWindowSec float64 // stats window length (0 = telemetry.stats_window)
	SnapshotDir    string  // write a snapshot here on Unload (empty = disabled)
	OutputDir      string  // CSV output directory (empty = disabled)
	Headless       bool
	StepsPerUpdate int
	Config         *config.Config // nil = config.Cfg()

	// StatsCallback, if set, receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the complete simulation state.
type Game struct {
	world *ecs.World
	rng   *rand.Rand
	cfg   *config.Config
	seed  int64

	// Systems
	store    *systems.BoidStore
	spawn    *systems.SpawnSystem
	movement *systems.MovementSystem

	// Kernel
	pipeline *flock.Pipeline
	ticker   *flock.Ticker[ecs.Entity]
	settings flock.Settings
	dt       float64
	lastErr  error

	// Telemetry
	perf          *telemetry.PerfCollector
	collector     *telemetry.Collector
	output        *telemetry.OutputManager
	statsCallback func(telemetry.WindowStats)
	lastStats     telemetry.WindowStats
	logStats      bool
	snapshotDir   string

	// State
	tick           int32
	started        bool // stepped or restored
	paused         bool
	stepsPerUpdate int
	headless       bool

	// Rendering (graphics mode only)
	camera      *camera.Orbit
	autoOrbit   bool
	showPanel   bool
	drawStates  []flock.AgentState
	drawHandles []ecs.Entity
}

// NewGameWithOptions creates a game. No boids exist until the first Step,
// which spawns the configured population.
func NewGameWithOptions(opts Options) *Game {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.World.Seed
	}
	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = 1
	}

	windowTicks := cfg.Derived.StatsWindowTicks
	if opts.StatsWindowSec > 0 {
		windowTicks = int(math.Round(opts.StatsWindowSec / cfg.Physics.DT))
	}

	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(seed))

	pipeline := flock.NewPipeline(cfg.Physics.Workers, cfg.Physics.ParallelThreshold)
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	pipeline.SetPhaseObserver(perf)

	settings := cfg.Derived.Flock

	g := &Game{
		world: world,
		rng:   rng,
		cfg:   cfg,
		seed:  seed,

		store:    systems.NewBoidStore(world),
		movement: systems.NewMovementSystem(world),
		spawn: systems.NewSpawnSystem(world, rng, systems.SpawnConfig{
			Population: cfg.World.Population,
			Origin:     cfg.World.Spawner.Vec(),
			Spread:     cfg.World.Spread,
			AimAt:      settings.BoundaryCenter,
			MinSpeed:   cfg.World.MinSpeed,
			MaxSpeed:   cfg.World.MaxSpeed,
		}),

		pipeline: pipeline,
		ticker:   flock.NewTicker[ecs.Entity](pipeline),
		settings: settings,
		dt:       cfg.Physics.DT,

		perf:          perf,
		collector:     telemetry.NewCollector(windowTicks, cfg.Physics.DT),
		statsCallback: opts.StatsCallback,
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,

		stepsPerUpdate: steps,
		headless:       opts.Headless,
		showPanel:      true,
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
	} else {
		g.output = output
		if err := output.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
	}

	if !opts.Headless {
		g.camera = camera.New(settings.BoundaryCenter, settings.BoundarySize*2.5)
		g.camera.Frame(settings.BoundaryCenter, settings.BoundarySize)
		g.autoOrbit = true
	}

	return g
}

// Update processes input and advances the simulation (graphics mode).
func (g *Game) Update() {
	g.handleInput()
	g.perf.RecordFrame()

	if g.paused {
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.Step()
	}
}

// UpdateHeadless advances the simulation without input or rendering.
func (g *Game) UpdateHeadless() {
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.Step()
	}
}

// Step runs one fixed-dt tick: spawn, flock kernel, movement, telemetry.
func (g *Game) Step() {
	g.started = true
	g.perf.StartTick()

	g.perf.StartPhase(telemetry.PhaseSpawn)
	spawned, removed := g.spawn.Update()
	g.collector.RecordSpawns(spawned, removed)

	// The ticker reports extract, kernel and write phases itself.
	report, err := g.ticker.Tick(g.store, g.settings, g.dt)
	g.perf.SetAgents(report.Agents)
	g.collector.RecordTick(report, err)
	if err != nil {
		slog.Error("flock tick failed", "tick", g.tick, "agents", report.Agents, "error", err)
	}
	g.lastErr = err

	g.perf.StartPhase(telemetry.PhaseMovement)
	g.movement.Update(g.dt)

	g.tick++

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perf.EndTick()
}

// flushTelemetry emits a stats window when one is due.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	// Accumulators are only meaningful after a successful kernel run.
	var accums []flock.Accumulator
	if g.lastErr == nil {
		accums = g.pipeline.Accumulators()
	}
	stats := g.collector.Flush(g.tick, g.ticker.States(), accums, g.settings)
	perfStats := g.perf.Stats()
	g.lastStats = stats

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.output.WriteStats(stats); err != nil {
		slog.Error("failed to write stats", "error", err)
	}
	if err := g.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// Settings returns the flock settings used by the next tick.
func (g *Game) Settings() flock.Settings {
	return g.settings
}

// SetSettings replaces the flock settings from the next tick on.
// Invalid settings are rejected and the previous ones stay in effect.
func (g *Game) SetSettings(s flock.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if !s.CoversRadius() && g.settings.CoversRadius() {
		slog.Warn("cell_size smaller than neighbor_radius; some neighbors will be missed",
			"cell_size", s.CellSize,
			"neighbor_radius", s.NeighborRadius,
		)
	}
	g.settings = s
	return nil
}

// SetPopulation changes the target boid count applied on the next tick.
func (g *Game) SetPopulation(n int) {
	g.spawn.SetPopulation(n)
}

// Population returns the target boid count.
func (g *Game) Population() int {
	return g.spawn.Population()
}

// BoidCount returns the number of boids processed by the last tick.
func (g *Game) BoidCount() int {
	return len(g.ticker.States())
}

// LastStats returns the most recently flushed stats window.
func (g *Game) LastStats() telemetry.WindowStats {
	return g.lastStats
}

// LastError returns the error from the last tick, if any.
func (g *Game) LastError() error {
	return g.lastErr
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 {
	return g.tick
}

// Snapshot captures the current boids and settings.
func (g *Game) Snapshot() *telemetry.Snapshot {
	states, handles := g.store.Snapshot(nil, nil)

	snap := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		RNGSeed: g.seed,
		Tick:    g.tick,
		Flock:   config.FlockFromSettings(g.settings),
		Boids:   make([]telemetry.BoidState, 0, len(states)),
	}
	for i, e := range handles {
		id, ok := g.store.ID(e)
		if !ok {
			continue
		}
		snap.Boids = append(snap.Boids, telemetry.NewBoidState(id, states[i]))
	}
	return snap
}

// RestoreSnapshot replaces the initial population with the snapshot's boids
// and adopts its settings and tick. It must be called once, before the first
// Step.
func (g *Game) RestoreSnapshot(snap *telemetry.Snapshot) error {
	if g.started {
		return ErrAlreadyStarted
	}

	s, err := snap.Flock.Settings()
	if err != nil {
		return fmt.Errorf("snapshot flock settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("snapshot flock settings: %w", err)
	}

	for _, b := range snap.Boids {
		g.spawn.SpawnState(b.ID, b.AgentState())
	}
	g.spawn.SetPopulation(len(snap.Boids))
	g.settings = s
	g.tick = snap.Tick
	g.collector.Restart(snap.Tick)
	g.started = true

	slog.Info("snapshot restored", "tick", snap.Tick, "boids", len(snap.Boids), "rng_seed", snap.RNGSeed)
	return nil
}

// saveSnapshot writes a snapshot to the snapshot directory, or under the
// output directory when no snapshot directory is set.
func (g *Game) saveSnapshot() {
	var (
		path string
		err  error
	)
	if g.snapshotDir != "" {
		path, err = telemetry.SaveSnapshot(g.Snapshot(), g.snapshotDir)
	} else {
		path, err = g.output.WriteSnapshot(g.Snapshot())
	}
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", g.tick)
}

// Unload stops the workers, writes the final snapshot and closes outputs.
func (g *Game) Unload() {
	g.pipeline.Close()

	if g.snapshotDir != "" {
		g.saveSnapshot()
	}

	if err := g.output.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
