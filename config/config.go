// Package config defines the simulator configuration file and turns it into scene and physics
// options.
package config

import (
	"math"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/urdfsim/geometry"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/physics"
	"go.viam.com/urdfsim/scene"
	"go.viam.com/urdfsim/spatialmath"
)

// Defaults filled in by Read for fields left empty.
const (
	DefaultFPS         = 60.
	DefaultFloorRadius = 100.
	DefaultFloorHeight = 0.0001
	DefaultLogMaxSize  = 10
)

// Config is the simulator configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	Robot   string             `json:"robot" jsonschema:"description=path to the robot description file"`
	Base    *BaseConfig        `json:"base,omitempty"`
	Physics PhysicsConfig      `json:"physics"`
	Render  RenderConfig       `json:"render"`
	Joints  map[string]float64 `json:"joints,omitempty" jsonschema:"description=initial joint positions by joint name"`
	Log     LogConfig          `json:"log"`
}

// BaseConfig places the robot in the world.
type BaseConfig struct {
	Translation [3]float64 `json:"translation"`
	// RPY is roll, pitch and yaw in radians, applied intrinsically in X, Y, Z order.
	RPY [3]float64 `json:"rpy"`
}

// Pose returns the base as a pose.
func (b *BaseConfig) Pose() spatialmath.Pose {
	return spatialmath.NewPose(
		r3.Vector{X: b.Translation[0], Y: b.Translation[1], Z: b.Translation[2]},
		&spatialmath.EulerAngles{Roll: b.RPY[0], Pitch: b.RPY[1], Yaw: b.RPY[2]},
	)
}

// PhysicsConfig configures the physics world.
type PhysicsConfig struct {
	Enabled               bool        `json:"enabled"`
	Substeps              int         `json:"substeps,omitempty"`
	ContactThreshold      *float64    `json:"contact_threshold,omitempty"`
	DefaultAngularDamping float64     `json:"default_angular_damping,omitempty"`
	Gravity               *[3]float64 `json:"gravity,omitempty"`
	AnalyticColliders     bool        `json:"analytic_colliders,omitempty"`
	RootBody              string      `json:"root_body,omitempty" jsonschema:"enum=static,enum=kinematic,enum=dynamic"`
	Floor                 FloorConfig `json:"floor"`
}

// FloorConfig configures the static floor cylinder.
type FloorConfig struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Radius  float64 `json:"radius,omitempty"`
	Height  float64 `json:"height,omitempty"`
}

// IsEnabled reports whether a floor should be added. It defaults to true.
func (f FloorConfig) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// RenderConfig configures how geometry is built and how often frames run.
type RenderConfig struct {
	CylinderConvention string  `json:"cylinder_convention,omitempty" jsonschema:"enum=full,enum=half"`
	FPS                float64 `json:"fps,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	File      string `json:"file,omitempty"`
	MaxSizeMB int    `json:"max_size_mb,omitempty"`
}

// NewDefaultConfig returns a config for the robot at path with every default filled in.
func NewDefaultConfig(robot string) *Config {
	cfg := &Config{Robot: robot}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Physics.Substeps == 0 {
		c.Physics.Substeps = physics.DefaultSubsteps
	}
	if c.Physics.ContactThreshold == nil {
		threshold := physics.DefaultContactThreshold
		c.Physics.ContactThreshold = &threshold
	}
	if c.Physics.DefaultAngularDamping == 0 {
		c.Physics.DefaultAngularDamping = physics.DefaultAngularDamping
	}
	if c.Physics.Gravity == nil {
		g := [3]float64{physics.DefaultGravity.X, physics.DefaultGravity.Y, physics.DefaultGravity.Z}
		c.Physics.Gravity = &g
	}
	if c.Physics.RootBody == "" {
		c.Physics.RootBody = physics.Static.String()
	}
	if c.Physics.Floor.Radius == 0 {
		c.Physics.Floor.Radius = DefaultFloorRadius
	}
	if c.Physics.Floor.Height == 0 {
		c.Physics.Floor.Height = DefaultFloorHeight
	}
	if c.Render.CylinderConvention == "" {
		c.Render.CylinderConvention = string(geometry.FullLength)
	}
	if c.Render.FPS == 0 {
		c.Render.FPS = DefaultFPS
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSize
	}
}

// Validate returns every problem with the config, combined.
func (c *Config) Validate(path string) error {
	var errs error
	if c.Robot == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, "robot"))
	}
	if c.Base != nil {
		for _, v := range append(c.Base.Translation[:], c.Base.RPY[:]...) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				errs = multierr.Append(errs, utils.NewConfigValidationError(path+".base", errors.New("values must be finite")))
				break
			}
		}
	}
	errs = multierr.Append(errs, c.Physics.Validate(path+".physics"))
	errs = multierr.Append(errs, c.Render.Validate(path+".render"))
	for name, v := range c.Joints {
		if math.IsNaN(v) {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path+".joints."+name, errors.New("position is not a number")))
		}
	}
	if _, err := logging.LevelFromString(c.Log.Level); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".log.level", err))
	}
	if c.Log.MaxSizeMB < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".log.max_size_mb", errors.New("must not be negative")))
	}
	return errs
}

// Validate returns every problem with the physics config, combined.
func (pc *PhysicsConfig) Validate(path string) error {
	var errs error
	if pc.Substeps < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".substeps", errors.New("must not be negative")))
	}
	if pc.ContactThreshold != nil && *pc.ContactThreshold < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".contact_threshold", errors.New("must not be negative")))
	}
	if pc.DefaultAngularDamping < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".default_angular_damping", errors.New("must not be negative")))
	}
	if pc.RootBody != "" {
		if _, err := physics.ParseBodyType(pc.RootBody); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path+".root_body", err))
		}
	}
	if pc.Floor.Radius < 0 || pc.Floor.Height < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".floor", errors.New("radius and height must not be negative")))
	}
	return errs
}

// Validate returns every problem with the render config, combined.
func (rc *RenderConfig) Validate(path string) error {
	var errs error
	if rc.CylinderConvention != "" {
		if _, err := geometry.ParseCylinderConvention(rc.CylinderConvention); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path+".cylinder_convention", err))
		}
	}
	if rc.FPS < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path+".fps", errors.New("must not be negative")))
	}
	return errs
}

// RobotPath returns the robot description path, resolved against the directory of the config file.
func (c *Config) RobotPath() string {
	if c.ConfigFilePath == "" || filepath.IsAbs(c.Robot) {
		return c.Robot
	}
	return filepath.Join(filepath.Dir(c.ConfigFilePath), c.Robot)
}

// BasePose returns the configured base, or the default upright base.
func (c *Config) BasePose() spatialmath.Pose {
	if c.Base == nil {
		return scene.DefaultBase()
	}
	return c.Base.Pose()
}

// SceneOptions returns the instantiation options of the config. The config must be valid.
func (c *Config) SceneOptions() (scene.Options, error) {
	opts := scene.NewDefaultOptions()
	opts.Base = c.BasePose()
	if c.Physics.Enabled {
		opts.Mode = scene.PhysicsMode
	}
	var err error
	if opts.CylinderConvention, err = geometry.ParseCylinderConvention(c.Render.CylinderConvention); err != nil {
		return opts, err
	}
	if opts.RootBodyType, err = physics.ParseBodyType(c.Physics.RootBody); err != nil {
		return opts, err
	}
	opts.AnalyticColliders = c.Physics.AnalyticColliders
	opts.DefaultAngularDamping = c.Physics.DefaultAngularDamping
	if c.Physics.ContactThreshold != nil {
		opts.ContactThreshold = *c.Physics.ContactThreshold
	}
	return opts, nil
}

// WorldConfig returns the physics world settings of the config.
func (c *Config) WorldConfig() physics.WorldConfig {
	wc := physics.NewDefaultWorldConfig()
	if c.Physics.Substeps > 0 {
		wc.Substeps = c.Physics.Substeps
	}
	if g := c.Physics.Gravity; g != nil {
		wc.Gravity = r3.Vector{X: g[0], Y: g[1], Z: g[2]}
	}
	return wc
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() logging.Level {
	level, err := logging.LevelFromString(c.Log.Level)
	if err != nil {
		return logging.INFO
	}
	return level
}
