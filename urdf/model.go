// Package urdf loads Unified Robot Description Format (URDF) files into an in-memory Robot model.
package urdf

import (
	"github.com/golang/geo/r3"

	"go.viam.com/urdfsim/spatialmath"
)

// Extension is the file extension associated with URDF files.
const Extension string = "urdf"

// Robot is a parsed robot description. It is built once and treated as read-only afterwards.
type Robot struct {
	Name      string
	Links     []*Link
	Joints    []*Joint
	Materials []*Material

	// BaseDir is the directory of the file the robot was read from, used to resolve relative
	// mesh filenames. Empty for in-memory descriptions.
	BaseDir string
}

// Link returns the link with the given name, or nil.
func (r *Robot) Link(name string) *Link {
	for _, l := range r.Links {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Joint returns the joint with the given name, or nil.
func (r *Robot) Joint(name string) *Joint {
	for _, j := range r.Joints {
		if j.Name == name {
			return j
		}
	}
	return nil
}

// Pose is a URDF origin: a translation plus roll, pitch, yaw in radians.
type Pose struct {
	XYZ r3.Vector
	RPY [3]float64
}

// Transform converts the origin to a spatialmath.Pose.
func (p Pose) Transform() spatialmath.Pose {
	return spatialmath.NewPose(p.XYZ, &spatialmath.EulerAngles{Roll: p.RPY[0], Pitch: p.RPY[1], Yaw: p.RPY[2]})
}

// IsZero reports whether the origin is the identity.
func (p Pose) IsZero() bool {
	return p.XYZ == (r3.Vector{}) && p.RPY == [3]float64{}
}

// Inertia holds the six independent components of a symmetric 3x3 inertia tensor.
type Inertia struct {
	IXX, IXY, IXZ, IYY, IYZ, IZZ float64
}

// Inertial is the mass data of a link.
type Inertial struct {
	Origin  Pose
	Mass    float64
	Inertia Inertia
}

// Link is a rigid segment of the robot.
type Link struct {
	Name       string
	Inertial   *Inertial
	Visuals    []*Visual
	Collisions []*Collision
}

// RGBA is a color with components in [0, 1].
type RGBA [4]float64

// Material is the appearance of a visual. Only the solid color is supported; Texture is kept so
// consumers can report it.
type Material struct {
	Name    string
	Color   *RGBA
	Texture string
}

// Visual is a renderable element of a link.
type Visual struct {
	Name     string
	Origin   Pose
	Geometry Geometry
	Material *Material
}

// Collision is a collidable element of a link.
type Collision struct {
	Name     string
	Origin   Pose
	Geometry Geometry
}

// Geometry is one of *Box, *Cylinder, *Sphere, *Mesh, *Capsule or *UnknownGeometry.
type Geometry interface {
	// Kind is the URDF element name of the geometry.
	Kind() string
	isGeometry()
}

// Box is a cuboid centered on its origin. Size holds the full extents.
type Box struct {
	Size r3.Vector
}

// Cylinder is a cylinder centered on its origin and aligned with its Z axis. Length is the full height.
type Cylinder struct {
	Radius float64
	Length float64
}

// Sphere is a sphere centered on its origin.
type Sphere struct {
	Radius float64
}

// Mesh references an external mesh file, optionally scaled per axis.
type Mesh struct {
	Filename string
	Scale    *r3.Vector
}

// Capsule is accepted by some URDF dialects; nothing downstream supports it.
type Capsule struct {
	Radius float64
	Length float64
}

// UnknownGeometry is any other geometry element, or none at all when Element is empty.
type UnknownGeometry struct {
	Element string
}

func (*Box) isGeometry()             {}
func (*Cylinder) isGeometry()        {}
func (*Sphere) isGeometry()          {}
func (*Mesh) isGeometry()            {}
func (*Capsule) isGeometry()         {}
func (*UnknownGeometry) isGeometry() {}

// Kind returns "box".
func (*Box) Kind() string { return "box" }

// Kind returns "cylinder".
func (*Cylinder) Kind() string { return "cylinder" }

// Kind returns "sphere".
func (*Sphere) Kind() string { return "sphere" }

// Kind returns "mesh".
func (*Mesh) Kind() string { return "mesh" }

// Kind returns "capsule".
func (*Capsule) Kind() string { return "capsule" }

// Kind returns the element name, or "none".
func (g *UnknownGeometry) Kind() string {
	if g.Element == "" {
		return "none"
	}
	return g.Element
}

// JointType is the kinematic type of a joint.
type JointType string

// The joint types of the description format. Only revolute, continuous, prismatic and fixed are
// supported downstream.
const (
	RevoluteJoint   JointType = "revolute"
	ContinuousJoint JointType = "continuous"
	PrismaticJoint  JointType = "prismatic"
	FixedJoint      JointType = "fixed"
	FloatingJoint   JointType = "floating"
	PlanarJoint     JointType = "planar"
)

// Supported reports whether the joint type is handled by the tree builder, physics binder and
// joint controller.
func (jt JointType) Supported() bool {
	switch jt {
	case RevoluteJoint, ContinuousJoint, PrismaticJoint, FixedJoint:
		return true
	default:
		return false
	}
}

// Rotational reports whether the joint's position is an angle.
func (jt JointType) Rotational() bool {
	return jt == RevoluteJoint || jt == ContinuousJoint
}

// Limit holds the bounds of revolute and prismatic joints. Lower and Upper are radians or meters.
type Limit struct {
	Lower    float64
	Upper    float64
	Effort   float64
	Velocity float64
}

// Dynamics holds the physical damping and friction of a joint. Damping is nil when the element does
// not set it.
type Dynamics struct {
	Damping  *float64
	Friction float64
}

// Joint is a typed connection between two links.
type Joint struct {
	Name     string
	Type     JointType
	Parent   string
	Child    string
	Origin   Pose
	Axis     r3.Vector
	Limit    *Limit
	Dynamics *Dynamics
}

// DefaultAxis is the joint axis used when a joint omits one.
var DefaultAxis = r3.Vector{X: 1}
