package main

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/telemetry"
)

// failedFitness is reported for parameter sets whose runs error out.
// Quality-based fitness lies in [-1, 0], so this ranks below every real run.
const failedFitness = 1.0

// Quality component weights.
const (
	qualityWeightPolarization = 0.40
	qualityWeightContainment  = 0.35
	qualityWeightCohesion     = 0.25

	qualityWarmupWindows = 2 // skip the first N windows while the flock forms
)

// FitnessEvaluator runs headless simulations and scores the resulting flocks.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu          sync.Mutex
	lastQuality float64
	lastErr     error
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 2.0,
	}
}

// LastQuality returns the mean quality from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// LastError returns the error from the most recent evaluation, if any.
func (fe *FitnessEvaluator) LastError() error {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastErr
}

// Evaluate computes fitness for raw parameter values (lower = better).
// All seeds run concurrently; the first failing run aborts the evaluation.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	qualities := make([]float64, len(fe.seeds))

	var eg errgroup.Group
	for i, seed := range fe.seeds {
		eg.Go(func() error {
			windows, err := fe.runSimulation(x, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			qualities[i] = computeQuality(windows)
			return nil
		})
	}
	err := eg.Wait()

	quality := 0.0
	if err == nil {
		quality = stat.Mean(qualities, nil)
	}

	fe.mu.Lock()
	fe.lastQuality = quality
	fe.lastErr = err
	fe.mu.Unlock()

	if err != nil {
		return failedFitness
	}
	return -quality
}

// runSimulation executes one headless run and returns its stats windows.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) ([]telemetry.WindowStats, error) {
	cfg := fe.copyConfig()
	cfg.SetFlock(fe.params.Apply(cfg.Derived.Flock, x))

	var windows []telemetry.WindowStats
	g := game.NewGameWithOptions(game.Options{
		Seed:           seed,
		Headless:       true,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
		Config:         cfg,
		StatsCallback: func(stats telemetry.WindowStats) {
			windows = append(windows, stats)
		},
	})
	defer g.Unload()

	if err := g.SetSettings(cfg.Derived.Flock); err != nil {
		return nil, err
	}

	for g.Tick() < fe.maxTicks {
		g.UpdateHeadless()
		if err := g.LastError(); err != nil {
			return nil, err
		}
	}
	return windows, nil
}

// copyConfig returns a copy of the base config that runs can modify.
// Config holds only values, so a struct copy is deep.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeQuality scores a run in [0, 1] from its stats windows: aligned
// headings, boids kept inside the boundary, and few isolated boids.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	var polarization, containment, cohesion []float64
	for _, w := range windows[qualityWarmupWindows:] {
		if w.Boids == 0 {
			continue
		}
		n := float64(w.Boids)
		polarization = append(polarization, w.Polarization)
		containment = append(containment, 1-float64(w.Outside)/n)
		cohesion = append(cohesion, 1-float64(w.Isolated)/n)
	}
	if len(polarization) == 0 {
		return 0
	}

	quality := qualityWeightPolarization*stat.Mean(polarization, nil) +
		qualityWeightContainment*stat.Mean(containment, nil) +
		qualityWeightCohesion*stat.Mean(cohesion, nil)

	return clamp01(quality)
}

// clamp01 clamps x to [0, 1]; NaN maps to 0.
func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
