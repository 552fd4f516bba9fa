// Package physics turns links and joints into rigid bodies and joint constraints, and provides a
// small projection-based World that simulates them.
package physics

import (
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/urdfsim/assets"
	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/spatialmath"
)

// BodyID identifies a body in an Engine.
type BodyID int

// ConstraintID identifies a constraint in an Engine.
type ConstraintID int

// BodyType is how a body responds to the simulation.
type BodyType int

// Body types. Static bodies never move, kinematic bodies move only when posed from outside, and
// dynamic bodies are moved by the solver.
const (
	Static BodyType = iota
	Kinematic
	Dynamic
)

func (bt BodyType) String() string {
	switch bt {
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	case Dynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// ParseBodyType parses the lower case name of a body type.
func ParseBodyType(s string) (BodyType, error) {
	switch strings.ToLower(s) {
	case "static":
		return Static, nil
	case "kinematic":
		return Kinematic, nil
	case "dynamic":
		return Dynamic, nil
	default:
		return Static, errors.Errorf("unknown body type %q", s)
	}
}

// ColliderShape is one of Cuboid, Ball, CylinderShape or ConvexDecomposition.
type ColliderShape interface {
	isColliderShape()
}

// Cuboid is a box collider given by its half extents.
type Cuboid struct {
	HalfExtents r3.Vector
}

// Ball is a sphere collider.
type Ball struct {
	Radius float64
}

// CylinderShape is a cylinder collider aligned with its local Z axis.
type CylinderShape struct {
	Radius     float64
	HalfHeight float64
}

// ConvexDecomposition is a collider built from a mesh once the mesh has loaded.
type ConvexDecomposition struct {
	Mesh  assets.MeshHandle
	Scale r3.Vector
}

func (Cuboid) isColliderShape()              {}
func (Ball) isColliderShape()                {}
func (CylinderShape) isColliderShape()       {}
func (ConvexDecomposition) isColliderShape() {}

// ShapeName returns a short name for a collider shape.
func ShapeName(s ColliderShape) string {
	switch s.(type) {
	case Cuboid:
		return "cuboid"
	case Ball:
		return "ball"
	case CylinderShape:
		return "cylinder"
	case ConvexDecomposition:
		return "convex_decomposition"
	default:
		return "unknown"
	}
}

// ColliderSpec is a collider attached to a body at Offset from the body origin.
type ColliderSpec struct {
	Name   string
	Shape  ColliderShape
	Offset spatialmath.Pose
}

// MassProperties is the mass of a body, its center of mass in the body frame and its 3x3 inertia
// tensor about the center of mass.
type MassProperties struct {
	Mass         float64
	CenterOfMass r3.Vector
	Inertia      *mat.SymDense
}

// BodySpec describes a rigid body to add to an Engine.
type BodySpec struct {
	Name      string
	Type      BodyType
	Pose      spatialmath.Pose
	Mass      MassProperties
	Colliders []ColliderSpec
}

// ConstraintSpec is one of RevoluteConstraint, FixedConstraint or PrismaticConstraint. Each holds
// the child body at Parent * Anchor * motion(position), where Anchor is the joint frame in the parent
// body frame.
type ConstraintSpec interface {
	ConstraintName() string
	Bodies() (parent, child BodyID)
	AnchorPose() spatialmath.Pose
}

// RevoluteConstraint is a hinge about Axis. Limits is nil for continuous joints.
type RevoluteConstraint struct {
	Name           string
	Parent, Child  BodyID
	Anchor         spatialmath.Pose
	Axis           r3.Vector
	Limits         *referenceframe.Limit
	AngularDamping float64
	Compliance     float64
}

// FixedConstraint welds the child to the parent.
type FixedConstraint struct {
	Name          string
	Parent, Child BodyID
	Anchor        spatialmath.Pose
}

// PrismaticConstraint is a slider along Axis.
type PrismaticConstraint struct {
	Name          string
	Parent, Child BodyID
	Anchor        spatialmath.Pose
	Axis          r3.Vector
	Limits        *referenceframe.Limit
	Damping       float64
}

// ConstraintName returns the joint name.
func (c RevoluteConstraint) ConstraintName() string { return c.Name }

// Bodies returns the parent and child bodies.
func (c RevoluteConstraint) Bodies() (BodyID, BodyID) { return c.Parent, c.Child }

// AnchorPose returns the joint frame in the parent body frame.
func (c RevoluteConstraint) AnchorPose() spatialmath.Pose { return c.Anchor }

// ConstraintName returns the joint name.
func (c FixedConstraint) ConstraintName() string { return c.Name }

// Bodies returns the parent and child bodies.
func (c FixedConstraint) Bodies() (BodyID, BodyID) { return c.Parent, c.Child }

// AnchorPose returns the joint frame in the parent body frame.
func (c FixedConstraint) AnchorPose() spatialmath.Pose { return c.Anchor }

// ConstraintName returns the joint name.
func (c PrismaticConstraint) ConstraintName() string { return c.Name }

// Bodies returns the parent and child bodies.
func (c PrismaticConstraint) Bodies() (BodyID, BodyID) { return c.Parent, c.Child }

// AnchorPose returns the joint frame in the parent body frame.
func (c PrismaticConstraint) AnchorPose() spatialmath.Pose { return c.Anchor }

// Capabilities lists the optional features of an Engine.
type Capabilities struct {
	Prismatic bool
}

// Engine is a rigid body simulator the binder's output can be loaded into.
type Engine interface {
	AddBody(spec BodySpec) BodyID
	AddConstraint(spec ConstraintSpec) (ConstraintID, error)
	Step(dt float64)
	BodyPose(id BodyID) spatialmath.Pose
	SetBodyPose(id BodyID, pose spatialmath.Pose)
	JointPosition(id ConstraintID) float64
	SetJointPosition(id ConstraintID, position float64)
	Capabilities() Capabilities
	SetContactHook(hook ContactHook)
}
