// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/flock/flock"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed schema.json
var schemaJSON string

// ErrSchema is wrapped when a user config file has the wrong shape.
var ErrSchema = errors.New("config does not match schema")

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Flock     FlockConfig     `yaml:"flock"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// Vec3 is a YAML-friendly 3D vector.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Vec converts to an r3 vector.
func (v Vec3) Vec() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// WorldConfig holds population and spawner parameters.
type WorldConfig struct {
	Population int     `yaml:"population"` // boids kept alive by the spawner
	Seed       int64   `yaml:"seed"`       // RNG seed for spawning
	Spawner    Vec3    `yaml:"spawner"`    // spawner position
	Spread     float64 `yaml:"spread"`     // half-width of the spawn cube
	MinSpeed   float64 `yaml:"min_speed"`
	MaxSpeed   float64 `yaml:"max_speed"`
}

// FlockConfig mirrors flock.Settings.
type FlockConfig struct {
	NeighborRadius   float64 `yaml:"neighbor_radius" json:"neighbor_radius"`
	MaxNeighbors     int     `yaml:"max_neighbors" json:"max_neighbors"`
	CellSize         float64 `yaml:"cell_size" json:"cell_size"`
	MoveSpeedCap     float64 `yaml:"move_speed_cap" json:"move_speed_cap"`
	AlignmentWeight  float64 `yaml:"alignment_weight" json:"alignment_weight"`
	CohesionWeight   float64 `yaml:"cohesion_weight" json:"cohesion_weight"`
	SeparationWeight float64 `yaml:"separation_weight" json:"separation_weight"`
	Boundary         string  `yaml:"boundary" json:"boundary"` // sphere, box or wrap
	BoundaryCenter   Vec3    `yaml:"boundary_center" json:"boundary_center"`
	BoundarySize     float64 `yaml:"boundary_size" json:"boundary_size"`
	BoundaryWeight   float64 `yaml:"boundary_weight" json:"boundary_weight"`
}

// PhysicsConfig holds simulation stepping parameters.
type PhysicsConfig struct {
	DT                float64 `yaml:"dt"`
	Workers           int     `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int     `yaml:"parallel_threshold"` // agents below this run inline
}

// TelemetryConfig holds telemetry collection parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // seconds of sim time per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Flock            flock.Settings // validated kernel settings
	StatsWindowTicks int            // StatsWindow / DT, at least 1
	ScreenW32        float32
	ScreenH32        float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("schema.json", schemaJSON)
})

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse merges the YAML document data over the embedded defaults, checks it
// against the schema and validates the resulting flock settings.
// Empty data yields the defaults.
func Parse(data []byte) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if len(data) > 0 {
		if err := validateSchema(data); err != nil {
			return nil, err
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateSchema(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	if doc == nil {
		// Comment-only file.
		return nil
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	s, err := c.Flock.Settings()
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if !s.CoversRadius() {
		slog.Warn("cell_size smaller than neighbor_radius; some neighbors will be missed",
			"cell_size", s.CellSize,
			"neighbor_radius", s.NeighborRadius,
		)
	}
	c.Derived.Flock = s

	if !(c.Physics.DT > 0) || math.IsInf(c.Physics.DT, 0) {
		return fmt.Errorf("physics.dt: %w: got %v", flock.ErrInvalidDeltaTime, c.Physics.DT)
	}
	if c.World.MaxSpeed < c.World.MinSpeed {
		return fmt.Errorf("world: max_speed %v < min_speed %v", c.World.MaxSpeed, c.World.MinSpeed)
	}

	ticks := int(math.Round(c.Telemetry.StatsWindow / c.Physics.DT))
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.StatsWindowTicks = ticks
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	return nil
}

// Settings converts the YAML section into kernel settings.
func (f FlockConfig) Settings() (flock.Settings, error) {
	kind, err := flock.ParseBoundaryKind(f.Boundary)
	if err != nil {
		return flock.Settings{}, err
	}
	return flock.Settings{
		NeighborRadius:   f.NeighborRadius,
		MaxNeighbors:     f.MaxNeighbors,
		CellSize:         f.CellSize,
		MoveSpeedCap:     f.MoveSpeedCap,
		AlignmentWeight:  f.AlignmentWeight,
		CohesionWeight:   f.CohesionWeight,
		SeparationWeight: f.SeparationWeight,
		Boundary:         kind,
		BoundaryCenter:   f.BoundaryCenter.Vec(),
		BoundarySize:     f.BoundarySize,
		BoundaryWeight:   f.BoundaryWeight,
	}, nil
}

// FlockFromSettings converts kernel settings back into the YAML section.
func FlockFromSettings(s flock.Settings) FlockConfig {
	return FlockConfig{
		NeighborRadius:   s.NeighborRadius,
		MaxNeighbors:     s.MaxNeighbors,
		CellSize:         s.CellSize,
		MoveSpeedCap:     s.MoveSpeedCap,
		AlignmentWeight:  s.AlignmentWeight,
		CohesionWeight:   s.CohesionWeight,
		SeparationWeight: s.SeparationWeight,
		Boundary:         s.Boundary.String(),
		BoundaryCenter:   Vec3{X: s.BoundaryCenter.X, Y: s.BoundaryCenter.Y, Z: s.BoundaryCenter.Z},
		BoundarySize:     s.BoundarySize,
		BoundaryWeight:   s.BoundaryWeight,
	}
}

// SetFlock stores s in both the YAML section and the derived settings, so
// WriteYAML records tuned values.
func (c *Config) SetFlock(s flock.Settings) {
	c.Flock = FlockFromSettings(s)
	c.Derived.Flock = s
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
