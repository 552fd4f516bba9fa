package referenceframe

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/urdfsim/spatialmath"
	"go.viam.com/urdfsim/urdf"
)

func TestRevoluteFrame(t *testing.T) {
	jf, err := NewJointFrame(&urdf.Joint{Name: "j", Type: urdf.RevoluteJoint, Axis: r3.Vector{Z: 2}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, jf.Axis(), test.ShouldResemble, r3.Vector{Z: 1})
	test.That(t, jf.Limits(), test.ShouldResemble, RotationalRange)
	test.That(t, jf.DoF(), test.ShouldEqual, 1)

	for _, theta := range []float64{0, 0.3, math.Pi / 2, -2.5} {
		pose := jf.Transform(theta)
		expected := spatialmath.NewPoseFromOrientation(&spatialmath.R4AA{Theta: theta, RZ: 1})
		test.That(t, spatialmath.PoseAlmostEqual(pose, expected), test.ShouldBeTrue)
		test.That(t, pose.Point().Norm(), test.ShouldAlmostEqual, 0)
	}

	rotated := spatialmath.RotateVector(jf.Transform(math.Pi/2), r3.Vector{X: 1})
	test.That(t, spatialmath.R3VectorAlmostEqual(rotated, r3.Vector{Y: 1}, 1e-9), test.ShouldBeTrue)
}

func TestPrismaticFrame(t *testing.T) {
	jf, err := NewJointFrame(&urdf.Joint{Name: "p", Type: urdf.PrismaticJoint, Axis: r3.Vector{X: 3, Y: 4}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, jf.Limits(), test.ShouldResemble, TranslationRange)

	pose := jf.Transform(0.5)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 0.3, Y: 0.4}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.OrientationAlmostEqual(pose.Orientation(), spatialmath.NewZeroOrientation()), test.ShouldBeTrue)
}

func TestFixedAndUnsupportedFrames(t *testing.T) {
	jf, err := NewJointFrame(&urdf.Joint{Name: "f", Type: urdf.FixedJoint})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, jf.DoF(), test.ShouldEqual, 0)
	test.That(t, spatialmath.PoseAlmostEqual(jf.Transform(1), spatialmath.NewZeroPose()), test.ShouldBeTrue)

	_, err = NewJointFrame(&urdf.Joint{Name: "r", Type: urdf.RevoluteJoint})
	test.That(t, err, test.ShouldEqual, ErrZeroAxis)

	_, err = NewJointFrame(&urdf.Joint{Name: "fl", Type: urdf.FloatingJoint, Axis: urdf.DefaultAxis})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "floating")
	_, err = NewJointFrame(&urdf.Joint{Name: "g", Type: urdf.JointType("gearbox"), Axis: urdf.DefaultAxis})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "gearbox")
}

func TestLimitClamp(t *testing.T) {
	test.That(t, RotationalRange.Clamp(4), test.ShouldEqual, math.Pi)
	test.That(t, TranslationRange.Clamp(-3), test.ShouldEqual, -1.)
	test.That(t, TranslationRange.Clamp(0.25), test.ShouldEqual, 0.25)
}
