package physics

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/spatialmath"
)

func contactAt(pen float64) Contact {
	return Contact{BodyA: 1, BodyB: 0, Normal: r3.Vector{Y: 1}, Points: []ContactPoint{{Penetration: pen}}}
}

func TestPenetrationFilter(t *testing.T) {
	filter := PenetrationFilter(DefaultContactThreshold)
	kept := filter([]Contact{contactAt(0.005), contactAt(0.02)})
	test.That(t, len(kept), test.ShouldEqual, 1)
	test.That(t, kept[0].MaxPenetration(), test.ShouldEqual, 0.02)

	deep := Contact{Points: []ContactPoint{{Penetration: 0.001}, {Penetration: 0.03}}}
	test.That(t, len(filter([]Contact{deep})), test.ShouldEqual, 1)
	test.That(t, filter(nil), test.ShouldBeEmpty)
}

// ballOnFloor places a ball of radius 0.1 so that it sinks pen into a floor at y=0.
func ballOnFloor(t *testing.T, pen float64) (*World, BodyID) {
	t.Helper()
	w := NewWorld(logging.NewTestLogger(t), WorldConfig{Substeps: 1})
	w.AddFloor(100, 0.0001)
	ball := w.AddBody(BodySpec{
		Name:      "ball",
		Type:      Dynamic,
		Pose:      spatialmath.NewPoseFromPoint(r3.Vector{Y: 0.1 - pen}),
		Colliders: []ColliderSpec{{Shape: Ball{Radius: 0.1}}},
	})
	w.SetContactHook(PenetrationFilter(DefaultContactThreshold))
	return w, ball
}

func TestContactHookDropsShallowContacts(t *testing.T) {
	w, ball := ballOnFloor(t, 0.005)
	w.Step(0.001)
	test.That(t, w.Contacts(), test.ShouldBeEmpty)
	test.That(t, w.BodyPose(ball).Point().Y, test.ShouldAlmostEqual, 0.095)

	w, ball = ballOnFloor(t, 0.02)
	w.Step(0.001)
	test.That(t, len(w.Contacts()), test.ShouldEqual, 1)
	test.That(t, w.Contacts()[0].MaxPenetration(), test.ShouldAlmostEqual, 0.02, 1e-6)
	// the floor was added first, so the normal points from the ball down into the floor
	test.That(t, w.Contacts()[0].BodyB, test.ShouldEqual, ball)
	test.That(t, w.Contacts()[0].Normal.Y, test.ShouldAlmostEqual, -1, 1e-9)
	// pushed back onto the floor surface
	test.That(t, w.BodyPose(ball).Point().Y, test.ShouldAlmostEqual, 0.1, 1e-6)
}

func TestGravityAndFloor(t *testing.T) {
	w := NewWorld(logging.NewTestLogger(t), NewDefaultWorldConfig())
	w.AddFloor(100, 0.0001)
	ball := w.AddBody(BodySpec{
		Name:      "ball",
		Type:      Dynamic,
		Pose:      spatialmath.NewPoseFromPoint(r3.Vector{Y: 1}),
		Colliders: []ColliderSpec{{Shape: Ball{Radius: 0.1}}},
	})
	for i := 0; i < 120; i++ {
		w.Step(1. / 60)
	}
	y := w.BodyPose(ball).Point().Y
	test.That(t, y, test.ShouldBeLessThan, 0.11)
	test.That(t, y, test.ShouldBeGreaterThan, 0.09)
}

func twoBodyWorld(t *testing.T) (*World, BodyID, BodyID) {
	t.Helper()
	w := NewWorld(logging.NewTestLogger(t), WorldConfig{Substeps: 10})
	base := w.AddBody(BodySpec{Name: "base", Type: Static, Pose: spatialmath.NewZeroPose()})
	arm := w.AddBody(BodySpec{Name: "arm", Type: Dynamic, Pose: spatialmath.NewPoseFromPoint(r3.Vector{Y: 1})})
	return w, base, arm
}

func TestRevoluteConstraint(t *testing.T) {
	w, base, arm := twoBodyWorld(t)
	id, err := w.AddConstraint(RevoluteConstraint{
		Name: "j", Parent: base, Child: arm,
		Anchor:         spatialmath.NewPoseFromPoint(r3.Vector{Y: 1}),
		Axis:           r3.Vector{Z: 1},
		Limits:         &referenceframe.Limit{Min: -1, Max: 1},
		AngularDamping: DefaultAngularDamping,
	})
	test.That(t, err, test.ShouldBeNil)

	w.SetJointPosition(id, 0.5)
	test.That(t, w.JointPosition(id), test.ShouldEqual, 0.5)
	expected := spatialmath.NewPose(r3.Vector{Y: 1}, &spatialmath.R4AA{Theta: 0.5, RZ: 1})
	test.That(t, spatialmath.PoseAlmostEqual(w.BodyPose(arm), expected), test.ShouldBeTrue)

	// gravity does not pull constrained bodies
	w.Step(0.1)
	test.That(t, spatialmath.PoseAlmostEqual(w.BodyPose(arm), expected), test.ShouldBeTrue)

	// the solver clamps to the joint limits
	w.SetJointPosition(id, 3)
	test.That(t, w.JointPosition(id), test.ShouldEqual, 1.)

	// damping slows the joint down and the limit stops it
	w.SetJointPosition(id, 0)
	w.SetJointVelocity(id, 1)
	w.Step(0.1)
	test.That(t, w.JointPosition(id), test.ShouldBeGreaterThan, 0)
	test.That(t, w.JointPosition(id), test.ShouldBeLessThan, 0.001)
}

func TestConstraintChainFollowsRoot(t *testing.T) {
	w := NewWorld(logging.NewTestLogger(t), WorldConfig{Substeps: 1})
	root := w.AddBody(BodySpec{Name: "root", Type: Kinematic})
	mid := w.AddBody(BodySpec{Name: "mid", Type: Dynamic})
	tip := w.AddBody(BodySpec{Name: "tip", Type: Dynamic})
	// added child first to exercise ordering
	_, err := w.AddConstraint(FixedConstraint{Name: "b", Parent: mid, Child: tip, Anchor: spatialmath.NewPoseFromPoint(r3.Vector{X: 1})})
	test.That(t, err, test.ShouldBeNil)
	_, err = w.AddConstraint(FixedConstraint{Name: "a", Parent: root, Child: mid, Anchor: spatialmath.NewPoseFromPoint(r3.Vector{X: 1})})
	test.That(t, err, test.ShouldBeNil)

	w.SetBodyPose(root, spatialmath.NewPose(r3.Vector{Z: 1}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1}))
	test.That(t, spatialmath.R3VectorAlmostEqual(w.BodyPose(tip).Point(), r3.Vector{Y: 2, Z: 1}, 1e-9), test.ShouldBeTrue)
}

func TestAddConstraintErrors(t *testing.T) {
	w, base, arm := twoBodyWorld(t)
	_, err := w.AddConstraint(PrismaticConstraint{Name: "p", Parent: base, Child: arm, Axis: r3.Vector{Z: 1}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, w.Capabilities().Prismatic, test.ShouldBeFalse)

	_, err = w.AddConstraint(FixedConstraint{Name: "x", Parent: base, Child: 7})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = w.AddConstraint(FixedConstraint{Name: "self", Parent: arm, Child: arm})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = w.AddConstraint(FixedConstraint{Name: "f", Parent: base, Child: arm, Anchor: spatialmath.NewZeroPose()})
	test.That(t, err, test.ShouldBeNil)
	_, err = w.AddConstraint(FixedConstraint{Name: "g", Parent: base, Child: arm, Anchor: spatialmath.NewZeroPose()})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "already constrained")
}

func TestConvexColliderWaitsForMesh(t *testing.T) {
	w := NewWorld(logging.NewTestLogger(t), WorldConfig{Substeps: 1})
	w.AddFloor(100, 0.0001)
	w.AddBody(BodySpec{
		Name:      "blob",
		Type:      Dynamic,
		Pose:      spatialmath.NewZeroPose(),
		Colliders: []ColliderSpec{{Shape: ConvexDecomposition{}}},
	})
	w.Step(0.001)
	// no mesh source, so the collider never activates
	test.That(t, w.Contacts(), test.ShouldBeEmpty)
	test.That(t, ShapeName(ConvexDecomposition{}), test.ShouldEqual, "convex_decomposition")
}
