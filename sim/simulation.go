// Package sim runs an instantiated robot frame by frame: physics step, body sync, joint controller
// update and transform propagation.
package sim

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/urdfsim/assets"
	"go.viam.com/urdfsim/config"
	"go.viam.com/urdfsim/control"
	"go.viam.com/urdfsim/geometry"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/physics"
	"go.viam.com/urdfsim/scene"
	"go.viam.com/urdfsim/spatialmath"
)

// FloorColor is the color of the floor.
var FloorColor = assets.NewMaterial("floor", 0.3, 0.5, 0.3, 1, 0)

// Deps are the collaborators of a Simulation. Clock defaults to the wall clock and Input may be nil.
type Deps struct {
	Logger logging.Logger
	Clock  clock.Clock
	Input  control.InputSource
}

// Simulation owns every piece of a running robot.
type Simulation struct {
	cfg    *config.Config
	logger logging.Logger
	clock  clock.Clock
	input  control.InputSource

	Assets     *assets.Server
	World      *physics.World
	Scene      *scene.RobotScene
	Controller *control.JointController
	Recorder   *Recorder
	Floor      scene.NodeID
	FloorBody  *physics.BodyID

	frames  int
	started bool
}

// New returns a Simulation for a config. Nothing is built until Startup.
func New(cfg *config.Config, deps Deps) *Simulation {
	c := deps.Clock
	if c == nil {
		c = clock.New()
	}
	return &Simulation{
		cfg:      cfg,
		logger:   deps.Logger,
		clock:    c,
		input:    deps.Input,
		Floor:    scene.NoNode,
		Recorder: NewRecorder(),
	}
}

// Startup loads the robot, builds the world and the floor, instantiates the scene and applies the
// configured initial joint positions.
func (s *Simulation) Startup(ctx context.Context) error {
	if s.started {
		return errors.New("simulation already started")
	}
	opts, err := s.cfg.SceneOptions()
	if err != nil {
		return err
	}
	s.Assets = assets.NewServer(s.logger.Sublogger("assets"))
	graph := scene.NewGraph()

	deps := scene.Deps{Logger: s.logger.Sublogger("scene"), Assets: s.Assets, Graph: graph}
	if opts.Mode == scene.PhysicsMode {
		wc := s.cfg.WorldConfig()
		wc.Meshes = s.Assets
		s.World = physics.NewWorld(s.logger.Sublogger("physics"), wc)
		deps.Engine = s.World
	}
	if s.cfg.Physics.Floor.IsEnabled() {
		s.addFloor(graph)
	}

	s.Scene, err = scene.Load(s.cfg.RobotPath(), opts, deps)
	if err != nil {
		s.Assets.Close()
		return err
	}
	s.Controller, err = control.NewJointController(s.Scene, control.Deps{
		Logger: s.logger.Sublogger("control"),
		Input:  s.input,
	})
	if err != nil {
		s.Assets.Close()
		return err
	}
	for name, position := range s.cfg.Joints {
		if err := s.Controller.SetPosition(name, position); err != nil {
			s.logger.Warnw("ignoring initial joint position", "joint", name, "error", err)
		}
	}
	s.Controller.Update()
	s.Controller.Sync()
	graph.Propagate()
	s.started = true

	if err := s.Assets.Wait(ctx); err != nil {
		return errors.Wrap(err, "interrupted while loading meshes")
	}
	meshes, materials := s.Assets.Counts()
	s.logger.Infow("simulation started", "robot", s.Scene.Robot.Name, "mode", opts.Mode,
		"meshes", meshes, "materials", materials)
	return nil
}

func (s *Simulation) addFloor(graph *scene.Graph) {
	radius, height := s.cfg.Physics.Floor.Radius, s.cfg.Physics.Floor.Height
	pose := spatialmath.NewPoseFromOrientation(&spatialmath.R4AA{Theta: -math.Pi / 2, RX: 1})
	pose = spatialmath.Compose(spatialmath.NewPoseFromPoint(r3.Vector{Y: -height / 2}), pose)
	if s.World != nil {
		body := s.World.AddFloor(radius, height)
		s.FloorBody = &body
		pose = s.World.BodyPose(body)
	}
	s.Floor = graph.Add("floor", scene.FloorNode, scene.NoNode, scene.NewTransform(pose))
	mesh := s.Assets.AddMesh(assets.NewCylinderMesh(radius, height/2, geometry.CylinderSegments))
	graph.Node(s.Floor).Visual = &scene.VisualComponent{Mesh: mesh, Material: s.Assets.AddMaterial(FloorColor)}
}

// Frame advances the simulation by dt seconds.
func (s *Simulation) Frame(dt float64) error {
	if !s.started {
		return errors.New("simulation not started")
	}
	start := time.Now()
	if s.World != nil {
		s.World.Step(dt)
		s.Scene.SyncFromEngine()
	}
	s.Controller.Update()
	s.Controller.Sync()
	s.Scene.Graph.Propagate()
	s.frames++
	s.Recorder.Record(s.frames, float64(s.frames)*dt, time.Since(start), s.Controller.Positions())
	return nil
}

// Frames returns the number of frames run.
func (s *Simulation) Frames() int {
	return s.frames
}

// Run steps a frame on every tick of the clock at the configured rate until ctx is done or, when
// maxFrames is positive, maxFrames frames have run.
func (s *Simulation) Run(ctx context.Context, maxFrames int) error {
	fps := s.cfg.Render.FPS
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	period := time.Duration(float64(time.Second) / fps)
	ticker := s.clock.Ticker(period)
	defer ticker.Stop()
	for {
		if maxFrames > 0 && s.frames >= maxFrames {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Frame(period.Seconds()); err != nil {
				return err
			}
		}
	}
}

// Close releases the asset server.
func (s *Simulation) Close() {
	if s.Assets != nil {
		s.Assets.Close()
	}
}
