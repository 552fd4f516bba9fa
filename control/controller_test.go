package control

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/urdfsim/assets"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/physics"
	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/scene"
	"go.viam.com/urdfsim/spatialmath"
)

func loadScene(t *testing.T, path string, mode scene.Mode) (*scene.RobotScene, *physics.World) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	server := assets.NewServer(logger)
	t.Cleanup(func() {
		test.That(t, server.Wait(context.Background()), test.ShouldBeNil)
		server.Close()
	})
	world := physics.NewWorld(logger, physics.NewDefaultWorldConfig())
	opts := scene.NewDefaultOptions()
	opts.Mode = mode
	rs, err := scene.Load(path, opts, scene.Deps{Logger: logger, Assets: server, Engine: world})
	test.That(t, err, test.ShouldBeNil)
	return rs, world
}

func relative(rs *scene.RobotScene, parent, child string) spatialmath.Pose {
	p, _ := rs.LinkNode(parent)
	c, _ := rs.LinkNode(child)
	return spatialmath.PoseBetween(rs.Graph.WorldPose(p), rs.Graph.WorldPose(c))
}

func TestRevoluteRenderPath(t *testing.T) {
	rs, _ := loadScene(t, "../urdf/testdata/two_link.urdf", scene.RenderMode)
	jc, err := NewJointController(rs, Deps{Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)

	rest := spatialmath.NewPoseFromPoint(r3.Vector{Y: 1})
	test.That(t, spatialmath.PoseAlmostEqual(relative(rs, "base", "arm"), rest), test.ShouldBeTrue)

	test.That(t, jc.SetPosition("j", math.Pi/2), test.ShouldBeNil)
	jc.Update()
	expected := spatialmath.NewPose(r3.Vector{Y: 1}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
	test.That(t, spatialmath.PoseAlmostEqual(relative(rs, "base", "arm"), expected), test.ShouldBeTrue)

	arm, _ := rs.LinkNode("arm")
	test.That(t, spatialmath.PoseAlmostEqual(rs.Graph.Node(arm).Local.Pose,
		spatialmath.NewPoseFromOrientation(&spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})), test.ShouldBeTrue)

	test.That(t, jc.SetPosition("j", 0), test.ShouldBeNil)
	jc.Update()
	test.That(t, spatialmath.PoseAlmostEqual(relative(rs, "base", "arm"), rest), test.ShouldBeTrue)
}

func TestPrismaticRenderPath(t *testing.T) {
	rs, _ := loadScene(t, "../urdf/testdata/sample.urdf", scene.RenderMode)
	jc, err := NewJointController(rs, Deps{Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, jc.SetPosition("upper_arm_to_slider", 0.25), test.ShouldBeNil)
	jc.Update()
	slider, _ := rs.LinkNode("slider")
	test.That(t, spatialmath.R3VectorAlmostEqual(rs.Graph.Node(slider).Local.Pose.Point(), r3.Vector{Z: 0.25}, 1e-9),
		test.ShouldBeTrue)

	test.That(t, jc.SetPosition("upper_arm_to_slider", 0), test.ShouldBeNil)
	jc.Update()
	test.That(t, spatialmath.R3VectorAlmostEqual(rs.Graph.Node(slider).Local.Pose.Point(), r3.Vector{}, 1e-9),
		test.ShouldBeTrue)
}

func TestSetPositionClampsAndRejects(t *testing.T) {
	rs, _ := loadScene(t, "../urdf/testdata/sample.urdf", scene.RenderMode)
	jc, err := NewJointController(rs, Deps{Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, jc.SetPosition("upper_arm_to_slider", 5), test.ShouldBeNil)
	pos, err := jc.Position("upper_arm_to_slider")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, 1.)

	test.That(t, jc.SetPosition("base_to_shoulder", -10), test.ShouldBeNil)
	pos, _ = jc.Position("base_to_shoulder")
	test.That(t, pos, test.ShouldEqual, -math.Pi)

	err = jc.SetPosition("nope", 1)
	test.That(t, errors.Is(err, ErrUnknownJoint), test.ShouldBeTrue)
	_, err = jc.Position("nope")
	test.That(t, errors.Is(err, ErrUnknownJoint), test.ShouldBeTrue)

	err = jc.SetPosition("slider_to_tool", 1)
	test.That(t, errors.Is(err, ErrUnsupportedJoint), test.ShouldBeTrue)

	test.That(t, jc.Positions(), test.ShouldResemble, map[string]float64{
		"base_to_shoulder":      -math.Pi,
		"shoulder_to_upper_arm": 0,
		"upper_arm_to_slider":   1,
	})
}

func TestPanel(t *testing.T) {
	rs, _ := loadScene(t, "../urdf/testdata/sample.urdf", scene.RenderMode)
	jc, err := NewJointController(rs, Deps{Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, jc.SetPosition("shoulder_to_upper_arm", 0.5), test.ShouldBeNil)

	rows := jc.Panel()
	test.That(t, rows, test.ShouldHaveLength, 4)
	test.That(t, rows[0], test.ShouldResemble, PanelRow{
		Label: "base_to_shoulder", Type: "continuous", Kind: AngleControl,
		Range: referenceframe.RotationalRange, Enabled: true,
	})
	test.That(t, rows[1].Value, test.ShouldEqual, 0.5)
	test.That(t, rows[2].Kind, test.ShouldEqual, PositionControl)
	test.That(t, rows[2].Range, test.ShouldResemble, referenceframe.TranslationRange)
	test.That(t, rows[3].Kind, test.ShouldEqual, UnsupportedControl)
	test.That(t, rows[3].Enabled, test.ShouldBeFalse)
	test.That(t, rows[3].Kind.String(), test.ShouldEqual, "Unsupported")
}

func TestPhysicsSolverWins(t *testing.T) {
	rs, world := loadScene(t, "../urdf/testdata/two_link.urdf", scene.PhysicsMode)
	jc, err := NewJointController(rs, Deps{Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, jc.States()[0].Constraint, test.ShouldNotBeNil)

	test.That(t, jc.SetPosition("j", math.Pi/2), test.ShouldBeNil)
	jc.Update()
	jc.Sync()
	pos, _ := jc.Position("j")
	test.That(t, pos, test.ShouldAlmostEqual, 1.57)

	expected := spatialmath.NewPose(r3.Vector{Y: 1}, &spatialmath.R4AA{Theta: 1.57, RZ: 1})
	test.That(t, spatialmath.PoseAlmostEqual(
		spatialmath.PoseBetween(world.BodyPose(rs.Bodies[0]), world.BodyPose(rs.Bodies[1])), expected), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqual(relative(rs, "base", "arm"), expected), test.ShouldBeTrue)
}

func TestPhysicsPrismaticIsDrivenDirectly(t *testing.T) {
	rs, world := loadScene(t, "../urdf/testdata/sample.urdf", scene.PhysicsMode)
	jc, err := NewJointController(rs, Deps{Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)

	upper, _ := rs.Tree.LinkByName("upper_arm")
	slider, _ := rs.Tree.LinkByName("slider")
	tool, _ := rs.Tree.LinkByName("tool")

	test.That(t, jc.SetPosition("upper_arm_to_slider", 0.1), test.ShouldBeNil)
	jc.Update()
	jc.Sync()
	pos, _ := jc.Position("upper_arm_to_slider")
	test.That(t, pos, test.ShouldEqual, 0.1)

	between := spatialmath.PoseBetween(world.BodyPose(rs.Bodies[upper]), world.BodyPose(rs.Bodies[slider]))
	test.That(t, spatialmath.R3VectorAlmostEqual(between.Point(), r3.Vector{Z: 0.6}, 1e-9), test.ShouldBeTrue)
	// the fixed tool follows the slider
	between = spatialmath.PoseBetween(world.BodyPose(rs.Bodies[slider]), world.BodyPose(rs.Bodies[tool]))
	test.That(t, spatialmath.R3VectorAlmostEqual(between.Point(), r3.Vector{Z: 0.1}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqual(relative(rs, "upper_arm", "slider"), spatialmath.NewPoseFromPoint(r3.Vector{Z: 0.6})),
		test.ShouldBeTrue)
}

func TestPhysicsPrismaticFollowsParentAcrossSteps(t *testing.T) {
	rs, world := loadScene(t, "../urdf/testdata/sample.urdf", scene.PhysicsMode)
	jc, err := NewJointController(rs, Deps{Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldBeNil)

	slider, _ := rs.Tree.LinkByName("slider")
	test.That(t, world.Body(rs.Bodies[slider]).Type, test.ShouldEqual, physics.Kinematic)

	frames := func(n int) {
		for i := 0; i < n; i++ {
			world.Step(1. / 60)
			rs.SyncFromEngine()
			jc.Update()
			jc.Sync()
		}
	}
	sliderOffset := func() r3.Vector {
		return relative(rs, "upper_arm", "slider").Point()
	}

	frames(30)
	test.That(t, spatialmath.R3VectorAlmostEqual(sliderOffset(), r3.Vector{Z: 0.5}, 1e-6), test.ShouldBeTrue)

	test.That(t, jc.SetPosition("upper_arm_to_slider", 0.1), test.ShouldBeNil)
	frames(30)
	test.That(t, spatialmath.R3VectorAlmostEqual(sliderOffset(), r3.Vector{Z: 0.6}, 1e-6), test.ShouldBeTrue)

	test.That(t, jc.SetPosition("base_to_shoulder", math.Pi/2), test.ShouldBeNil)
	frames(30)
	pos, _ := jc.Position("base_to_shoulder")
	test.That(t, pos, test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, spatialmath.R3VectorAlmostEqual(sliderOffset(), r3.Vector{Z: 0.6}, 1e-6), test.ShouldBeTrue)

	// the tool is welded to the slider and comes along
	test.That(t, spatialmath.R3VectorAlmostEqual(relative(rs, "slider", "tool").Point(), r3.Vector{Z: 0.1}, 1e-6),
		test.ShouldBeTrue)
}

func TestInputSources(t *testing.T) {
	rs, _ := loadScene(t, "../urdf/testdata/sample.urdf", scene.RenderMode)
	logger, logs := logging.NewObservedTestLogger(t)
	ch := make(chan Command, 4)
	jc, err := NewJointController(rs, Deps{Logger: logger, Input: NewChannelInput(ch)})
	test.That(t, err, test.ShouldBeNil)

	ch <- Command{Joint: "base_to_shoulder", Position: 0.3}
	ch <- Command{Joint: "base_to_shoulder", Position: 0.4}
	ch <- Command{Joint: "missing", Position: 1}
	jc.Update()
	pos, _ := jc.Position("base_to_shoulder")
	test.That(t, pos, test.ShouldEqual, 0.4)
	test.That(t, logs.FilterMessage("ignoring joint command").Len(), test.ShouldEqual, 1)

	// nothing queued
	jc.Update()
	pos, _ = jc.Position("base_to_shoulder")
	test.That(t, pos, test.ShouldEqual, 0.4)

	static := NewStaticInput(Command{Joint: "upper_arm_to_slider", Position: 0.2})
	test.That(t, static.Poll(), test.ShouldHaveLength, 1)
	test.That(t, static.Poll(), test.ShouldBeEmpty)

	close(ch)
	test.That(t, NewChannelInput(ch).Poll(), test.ShouldBeEmpty)
}

func TestNewJointControllerRequiresScene(t *testing.T) {
	_, err := NewJointController(nil, Deps{Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldNotBeNil)
}
