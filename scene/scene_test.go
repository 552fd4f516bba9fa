package scene

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zapcore"
	"go.viam.com/test"

	"go.viam.com/urdfsim/assets"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/physics"
	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/spatialmath"
)

const (
	sampleURDF   = "../urdf/testdata/sample.urdf"
	twoLinkURDF  = "../urdf/testdata/two_link.urdf"
	danglingURDF = "../urdf/testdata/dangling.urdf"
)

func newDeps(t *testing.T, logger logging.Logger) Deps {
	t.Helper()
	server := assets.NewServer(logger)
	t.Cleanup(func() {
		test.That(t, server.Wait(context.Background()), test.ShouldBeNil)
		server.Close()
	})
	return Deps{Logger: logger, Assets: server}
}

func TestLoadRenderCounts(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	rs, err := Load(sampleURDF, NewDefaultOptions(), newDeps(t, logger))
	test.That(t, err, test.ShouldBeNil)

	g := rs.Graph
	test.That(t, g.Count(RobotNode), test.ShouldEqual, 1)
	test.That(t, g.Count(LinkNode), test.ShouldEqual, len(rs.Robot.Links))
	test.That(t, g.Count(JointNode), test.ShouldEqual, len(rs.Tree.Joints))
	// the capsule and cone visuals of "tool" are skipped
	test.That(t, g.Count(VisualNode), test.ShouldEqual, 4)
	test.That(t, g.Count(CollisionNode), test.ShouldEqual, 4)
	test.That(t, logs.FilterMessage("unsupported visual geometry").Len(), test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("texture materials are not supported, using the default color").Len(), test.ShouldEqual, 1)

	// render hierarchy: link -> joint -> child link
	shoulder, ok := rs.LinkNode("shoulder")
	test.That(t, ok, test.ShouldBeTrue)
	joint, ok := rs.JointNode("base_to_shoulder")
	test.That(t, ok, test.ShouldBeTrue)
	base, _ := rs.LinkNode("base_link")
	test.That(t, g.Node(shoulder).Parent, test.ShouldEqual, joint)
	test.That(t, g.Node(joint).Parent, test.ShouldEqual, base)
	test.That(t, g.Node(base).Parent, test.ShouldEqual, rs.Root)
	test.That(t, g.Node(joint).Name, test.ShouldEqual, "Joint: base_to_shoulder")
	test.That(t, spatialmath.PoseAlmostEqual(g.Node(shoulder).Local.Pose, spatialmath.NewZeroPose()), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqual(g.Node(base).Local.Pose, DefaultBase()), test.ShouldBeTrue)
}

func TestRenderAndPhysicsAgreeOnWorldPoses(t *testing.T) {
	render, err := Load(sampleURDF, NewDefaultOptions(), newDeps(t, logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldBeNil)

	opts := NewDefaultOptions()
	opts.Mode = PhysicsMode
	deps := newDeps(t, logging.NewTestLogger(t))
	deps.Engine = physics.NewWorld(deps.Logger, physics.NewDefaultWorldConfig())
	phys, err := Load(sampleURDF, opts, deps)
	test.That(t, err, test.ShouldBeNil)

	expected := referenceframe.WorldTransforms(phys.Tree, DefaultBase())
	for i := range phys.Tree.Links {
		li := referenceframe.LinkIndex(i)
		test.That(t, spatialmath.PoseAlmostEqual(phys.Graph.WorldPose(phys.Links[i]), expected.Link(li)), test.ShouldBeTrue)
		test.That(t, spatialmath.PoseAlmostEqual(render.Graph.WorldPose(render.Links[i]), expected.Link(li)), test.ShouldBeTrue)
		test.That(t, spatialmath.PoseAlmostEqual(deps.Engine.BodyPose(phys.Bodies[i]), expected.Link(li)), test.ShouldBeTrue)
	}
	for i := range phys.Tree.Joints {
		ji := referenceframe.JointIndex(i)
		test.That(t, spatialmath.PoseAlmostEqual(phys.Graph.WorldPose(phys.Joints[i]), expected.Joint(ji)), test.ShouldBeTrue)
		test.That(t, spatialmath.PoseAlmostEqual(render.Graph.WorldPose(render.Joints[i]), expected.Joint(ji)), test.ShouldBeTrue)
	}
}

func TestPhysicsBindings(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	opts := NewDefaultOptions()
	opts.Mode = PhysicsMode
	deps := newDeps(t, logger)
	world := physics.NewWorld(logger, physics.NewDefaultWorldConfig())
	deps.Engine = world

	rs, err := Load(sampleURDF, opts, deps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, world.NumBodies(), test.ShouldEqual, 5)
	test.That(t, world.Body(rs.Bodies[rs.Tree.Root]).Type, test.ShouldEqual, physics.Static)

	shoulder, _ := rs.Tree.LinkByName("shoulder")
	test.That(t, world.Body(rs.Bodies[shoulder]).Type, test.ShouldEqual, physics.Dynamic)
	test.That(t, world.Body(rs.Bodies[rs.Tree.Root]).Mass.Mass, test.ShouldEqual, 5.)
	slider, _ := rs.Tree.LinkByName("slider")
	test.That(t, world.Body(rs.Bodies[slider]).Type, test.ShouldEqual, physics.Kinematic)

	bound := map[string]bool{}
	for i, b := range rs.Bindings {
		bound[rs.Tree.Joints[i].Joint.Name] = b.Bound
	}
	test.That(t, bound, test.ShouldResemble, map[string]bool{
		"base_to_shoulder":      true,
		"shoulder_to_upper_arm": true,
		"upper_arm_to_slider":   false,
		"slider_to_tool":        true,
	})
	test.That(t, logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("prismatic joint is not enforced by physics; it is driven directly").Len(),
		test.ShouldEqual, 1)

	// physics mode keeps every link at the top level
	for _, id := range rs.Links {
		test.That(t, rs.Graph.Node(id).Parent, test.ShouldEqual, rs.Root)
		test.That(t, rs.Graph.Node(id).Body, test.ShouldNotBeNil)
	}
}

func TestPhysicsModeRequiresEngine(t *testing.T) {
	opts := NewDefaultOptions()
	opts.Mode = PhysicsMode
	_, err := Load(twoLinkURDF, opts, newDeps(t, logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Load(twoLinkURDF, NewDefaultOptions(), Deps{Logger: logging.NewTestLogger(t)})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Load("../urdf/testdata/missing.urdf", NewDefaultOptions(), newDeps(t, logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.urdf")
}

func TestDanglingJointKeepsChildLink(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	rs, err := Load(danglingURDF, NewDefaultOptions(), newDeps(t, logger))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, rs.Graph.Count(LinkNode), test.ShouldEqual, 2)
	test.That(t, rs.Graph.Count(JointNode), test.ShouldEqual, 0)
	arm, ok := rs.LinkNode("arm")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, rs.Graph.Node(arm).Parent, test.ShouldEqual, rs.Root)
	test.That(t, rs.Graph.Count(VisualNode), test.ShouldEqual, 2)
	_, ok = rs.JointNode("ghost_joint")
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("skipping joint").Len(), test.ShouldEqual, 1)
}

type nodeSummary struct {
	Name     string
	Kind     Kind
	Parent   NodeID
	Children []NodeID
	World    mgl64.Mat4
}

func summarize(g *Graph) []nodeSummary {
	g.Propagate()
	var out []nodeSummary
	for i := 0; i < g.Len(); i++ {
		n := g.Node(NodeID(i))
		out = append(out, nodeSummary{n.Name, n.Kind, n.Parent, n.Children, n.World})
	}
	return out
}

func TestInstantiateIsDeterministic(t *testing.T) {
	for _, mode := range []Mode{RenderMode, PhysicsMode} {
		t.Run(mode.String(), func(t *testing.T) {
			build := func() []nodeSummary {
				opts := NewDefaultOptions()
				opts.Mode = mode
				deps := newDeps(t, logging.NewTestLogger(t))
				deps.Engine = physics.NewWorld(deps.Logger, physics.NewDefaultWorldConfig())
				rs, err := Load(sampleURDF, opts, deps)
				test.That(t, err, test.ShouldBeNil)
				return summarize(rs.Graph)
			}
			first, second := build(), build()
			test.That(t, cmp.Diff(first, second), test.ShouldBeEmpty)
		})
	}
}

func TestGraphPropagation(t *testing.T) {
	g := NewGraph()
	root := g.Add("root", RobotNode, NoNode, NewTransform(spatialmath.NewPoseFromPoint(r3.Vector{X: 1})))
	child := g.Add("child", LinkNode, root, NewTransform(spatialmath.NewPoseFromOrientation(&spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})))
	leaf := g.Add("leaf", VisualNode, child, Transform{Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: 1}), Scale: r3.Vector{X: 2, Y: 2, Z: 2}})

	test.That(t, spatialmath.R3VectorAlmostEqual(g.WorldPose(leaf).Point(), r3.Vector{X: 1, Y: 1}, 1e-9), test.ShouldBeTrue)
	// scale is divided out of the rigid pose
	expected := spatialmath.NewPose(r3.Vector{X: 1, Y: 1}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
	test.That(t, spatialmath.PoseAlmostEqual(g.WorldPose(leaf), expected), test.ShouldBeTrue)

	g.SetLocalPose(child, spatialmath.NewZeroPose())
	test.That(t, spatialmath.R3VectorAlmostEqual(g.WorldPose(leaf).Point(), r3.Vector{X: 2}, 1e-9), test.ShouldBeTrue)

	g.SetParent(leaf, root)
	test.That(t, g.Node(child).Children, test.ShouldBeEmpty)
	test.That(t, g.Node(root).Children, test.ShouldResemble, []NodeID{child, leaf})

	var names []string
	g.Walk(func(n *Node, depth int) { names = append(names, n.Name) })
	test.That(t, names, test.ShouldResemble, []string{"root", "child", "leaf"})
	id, ok := g.Find("leaf", VisualNode)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, leaf)
}
