package physics

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/spatialmath"
	"go.viam.com/urdfsim/urdf"
)

// DefaultAngularDamping is the damping of revolute constraints whose joint declares none. It is
// high so that joints hold their position instead of swinging under load.
const DefaultAngularDamping = 10000.

// Binder maps links to body specs and joints to constraint specs.
type Binder struct {
	logger                logging.Logger
	Capabilities          Capabilities
	DefaultAngularDamping float64
	RootBodyType          BodyType
}

// NewBinder returns a Binder for an engine with the given capabilities.
func NewBinder(logger logging.Logger, caps Capabilities) *Binder {
	return &Binder{
		logger:                logger,
		Capabilities:          caps,
		DefaultAngularDamping: DefaultAngularDamping,
		RootBodyType:          Static,
	}
}

// BindBody describes the body of a link. The root link gets RootBodyType and every other link is
// dynamic.
func (b *Binder) BindBody(name string, inertial *urdf.Inertial, isRoot bool, worldPose spatialmath.Pose,
	colliders []ColliderSpec,
) BodySpec {
	spec := BodySpec{
		Name:      name,
		Type:      Dynamic,
		Pose:      worldPose,
		Mass:      NewMassProperties(inertial),
		Colliders: colliders,
	}
	if isRoot {
		spec.Type = b.RootBodyType
		if spec.Type == Dynamic {
			spec.Type = Static
		}
	}
	return spec
}

// NewMassProperties converts the inertial block of a link. A missing block gives zero mass.
func NewMassProperties(inertial *urdf.Inertial) MassProperties {
	if inertial == nil {
		return MassProperties{Inertia: mat.NewSymDense(3, nil)}
	}
	in := inertial.Inertia
	return MassProperties{
		Mass:         inertial.Mass,
		CenterOfMass: inertial.Origin.XYZ,
		Inertia: mat.NewSymDense(3, []float64{
			in.IXX, in.IXY, in.IXZ,
			in.IXY, in.IYY, in.IYZ,
			in.IXZ, in.IYZ, in.IZZ,
		}),
	}
}

// BindJoint describes the constraint for a joint between two bodies. anchor is the joint frame in
// the parent body frame. It returns false when the joint gets no constraint: prismatic joints on
// engines without prismatic support, which are logged as warnings, and unsupported joint types,
// which are logged as errors.
func (b *Binder) BindJoint(joint *urdf.Joint, parent, child BodyID, anchor spatialmath.Pose) (ConstraintSpec, bool) {
	switch joint.Type {
	case urdf.RevoluteJoint, urdf.ContinuousJoint:
		damping := b.DefaultAngularDamping
		if joint.Dynamics != nil && joint.Dynamics.Damping != nil {
			damping = *joint.Dynamics.Damping
		}
		c := RevoluteConstraint{
			Name:           joint.Name,
			Parent:         parent,
			Child:          child,
			Anchor:         anchor,
			Axis:           joint.Axis.Normalize(),
			AngularDamping: damping,
		}
		if joint.Type == urdf.RevoluteJoint && joint.Limit != nil {
			c.Limits = &referenceframe.Limit{Min: joint.Limit.Lower, Max: joint.Limit.Upper}
		}
		return c, true
	case urdf.FixedJoint:
		return FixedConstraint{Name: joint.Name, Parent: parent, Child: child, Anchor: anchor}, true
	case urdf.PrismaticJoint:
		if b.DirectlyDriven(joint) {
			b.logger.Warnw("prismatic joint is not enforced by physics; it is driven directly",
				"joint", joint.Name)
			return nil, false
		}
		c := PrismaticConstraint{
			Name:   joint.Name,
			Parent: parent,
			Child:  child,
			Anchor: anchor,
			Axis:   joint.Axis.Normalize(),
		}
		if joint.Limit != nil {
			c.Limits = &referenceframe.Limit{Min: joint.Limit.Lower, Max: joint.Limit.Upper}
		}
		if joint.Dynamics != nil && joint.Dynamics.Damping != nil {
			c.Damping = *joint.Dynamics.Damping
		}
		return c, true
	default:
		b.logger.Errorw("unsupported joint type", "joint", joint.Name, "type", joint.Type)
		return nil, false
	}
}

// DirectlyDriven reports whether a joint is movable but gets no constraint from the engine. The child
// body of such a joint is kinematic and posed by the joint controller every frame.
func (b *Binder) DirectlyDriven(joint *urdf.Joint) bool {
	return joint.Type == urdf.PrismaticJoint && !b.Capabilities.Prismatic
}
