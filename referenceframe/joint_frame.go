package referenceframe

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/urdfsim/spatialmath"
	"go.viam.com/urdfsim/urdf"
)

// Limit represents the minimum and maximum position of a joint.
type Limit struct {
	Min float64
	Max float64
}

// Clamp restricts a position to the limit.
func (l Limit) Clamp(v float64) float64 {
	return math.Max(l.Min, math.Min(l.Max, v))
}

// Ranges of the interactive joint position, in radians for rotational joints and meters for
// prismatic ones.
var (
	RotationalRange  = Limit{Min: -math.Pi, Max: math.Pi}
	TranslationRange = Limit{Min: -1, Max: 1}
)

// JointFrame gives the motion of a joint's child relative to the joint origin as a function of a
// single position value.
type JointFrame struct {
	name      string
	jointType urdf.JointType
	axis      r3.Vector
}

// NewJointFrame creates the motion frame of a supported joint. Revolute, continuous and prismatic
// joints need a non-zero axis, which is normalized.
func NewJointFrame(joint *urdf.Joint) (*JointFrame, error) {
	jf := &JointFrame{name: joint.Name, jointType: joint.Type}
	switch joint.Type {
	case urdf.RevoluteJoint, urdf.ContinuousJoint, urdf.PrismaticJoint:
		if spatialmath.R3VectorAlmostEqual(r3.Vector{}, joint.Axis, 1e-8) {
			return nil, ErrZeroAxis
		}
		jf.axis = joint.Axis.Normalize()
	case urdf.FixedJoint:
	default:
		return nil, NewUnsupportedJointTypeError(joint.Type)
	}
	return jf, nil
}

// Name is the name of the joint.
func (jf *JointFrame) Name() string {
	return jf.name
}

// Type is the type of the joint.
func (jf *JointFrame) Type() urdf.JointType {
	return jf.jointType
}

// Axis is the normalized joint axis, or the zero vector for fixed joints.
func (jf *JointFrame) Axis() r3.Vector {
	return jf.axis
}

// DoF is the number of positions the joint takes.
func (jf *JointFrame) DoF() int {
	if jf.jointType == urdf.FixedJoint {
		return 0
	}
	return 1
}

// Limits is the range of positions the joint can be set to.
func (jf *JointFrame) Limits() Limit {
	switch jf.jointType {
	case urdf.RevoluteJoint, urdf.ContinuousJoint:
		return RotationalRange
	case urdf.PrismaticJoint:
		return TranslationRange
	default:
		return Limit{}
	}
}

// Transform returns the pose of the joint's child for the given position: a rotation of position
// radians about the axis, a translation of position meters along the axis, or the identity.
func (jf *JointFrame) Transform(position float64) spatialmath.Pose {
	switch jf.jointType {
	case urdf.RevoluteJoint, urdf.ContinuousJoint:
		return spatialmath.NewPoseFromOrientation(spatialmath.NewR4AAFromAxis(jf.axis, position))
	case urdf.PrismaticJoint:
		return spatialmath.NewPoseFromPoint(jf.axis.Mul(position))
	default:
		return spatialmath.NewZeroPose()
	}
}
