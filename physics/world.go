package physics

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/urdfsim/assets"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/spatialmath"
	"go.viam.com/urdfsim/utils"
)

// WorldConfig configures a World.
type WorldConfig struct {
	// Substeps is the number of solver iterations per Step.
	Substeps int
	Gravity  r3.Vector
	// Meshes resolves the meshes of convex decomposition colliders. Without it those colliders
	// never become active.
	Meshes assets.MeshSource
}

// DefaultSubsteps is the number of substeps per Step when none is configured.
const DefaultSubsteps = 200

// DefaultGravity points down the Y axis of a Y-up world.
var DefaultGravity = r3.Vector{Y: -9.81}

// NewDefaultWorldConfig returns the default world configuration.
func NewDefaultWorldConfig() WorldConfig {
	return WorldConfig{Substeps: DefaultSubsteps, Gravity: DefaultGravity}
}

type body struct {
	spec      BodySpec
	pose      spatialmath.Pose
	velocity  r3.Vector
	parent    ConstraintID
	radii     []float64
	hasParent bool
}

type constraint struct {
	spec     ConstraintSpec
	position float64
	velocity float64
}

// World is a reference Engine. Constraints are solved by projection, so joints have no compliance:
// every substep places each constrained child at its parent times the joint anchor times the joint
// motion. Bodies without a parent constraint fall under gravity and are pushed out of static and
// kinematic colliders. Contacts are generated from bounding spheres, exact against cuboids and
// cylinders, and passed through the contact hook before being resolved.
type World struct {
	logger      logging.Logger
	cfg         WorldConfig
	bodies      []*body
	constraints []*constraint
	order       []ConstraintID
	hook        ContactHook
	contacts    []Contact
}

var _ Engine = (*World)(nil)

// NewWorld returns an empty World.
func NewWorld(logger logging.Logger, cfg WorldConfig) *World {
	if cfg.Substeps <= 0 {
		cfg.Substeps = DefaultSubsteps
	}
	return &World{logger: logger, cfg: cfg}
}

// Capabilities reports that prismatic constraints are not supported.
func (w *World) Capabilities() Capabilities {
	return Capabilities{Prismatic: false}
}

// SetContactHook installs the contact post-processing hook.
func (w *World) SetContactHook(hook ContactHook) {
	w.hook = hook
}

// AddBody adds a body at spec.Pose.
func (w *World) AddBody(spec BodySpec) BodyID {
	pose := spec.Pose
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	w.bodies = append(w.bodies, &body{
		spec:  spec,
		pose:  pose,
		radii: make([]float64, len(spec.Colliders)),
	})
	return BodyID(len(w.bodies) - 1)
}

// AddFloor adds a static cylinder of the given radius and height whose axis is opposite gravity, with
// its top face at the origin plane.
func (w *World) AddFloor(radius, height float64) BodyID {
	up := w.cfg.Gravity.Mul(-1)
	if up.Norm() < 1e-12 {
		up = r3.Vector{Y: 1}
	}
	up = up.Normalize()
	z := r3.Vector{Z: 1}
	var orientation spatialmath.Orientation = spatialmath.NewZeroOrientation()
	if axis := z.Cross(up); axis.Norm() > 1e-12 {
		orientation = spatialmath.NewR4AAFromAxis(axis.Normalize(), math.Acos(utils.Clamp(z.Dot(up), -1, 1)))
	} else if z.Dot(up) < 0 {
		orientation = &spatialmath.R4AA{Theta: math.Pi, RX: 1}
	}
	return w.AddBody(BodySpec{
		Name: "floor",
		Type: Static,
		Pose: spatialmath.NewPose(up.Mul(-height/2), orientation),
		Colliders: []ColliderSpec{{
			Name:   "floor",
			Shape:  CylinderShape{Radius: radius, HalfHeight: height / 2},
			Offset: spatialmath.NewZeroPose(),
		}},
	})
}

// AddConstraint adds a joint constraint between two existing bodies.
func (w *World) AddConstraint(spec ConstraintSpec) (ConstraintID, error) {
	parent, child := spec.Bodies()
	if !w.validBody(parent) || !w.validBody(child) {
		return 0, errors.Errorf("constraint %q references unknown body", spec.ConstraintName())
	}
	if parent == child {
		return 0, errors.Errorf("constraint %q connects a body to itself", spec.ConstraintName())
	}
	switch spec.(type) {
	case RevoluteConstraint, FixedConstraint:
	case PrismaticConstraint:
		return 0, errors.Errorf("constraint %q: prismatic constraints are not supported", spec.ConstraintName())
	default:
		return 0, errors.Errorf("constraint %q: unsupported constraint %T", spec.ConstraintName(), spec)
	}
	if w.bodies[child].hasParent {
		return 0, errors.Errorf("constraint %q: body %q is already constrained", spec.ConstraintName(),
			w.bodies[child].spec.Name)
	}
	id := ConstraintID(len(w.constraints))
	w.constraints = append(w.constraints, &constraint{spec: spec})
	w.bodies[child].parent, w.bodies[child].hasParent = id, true
	w.order = nil
	return id, nil
}

func (w *World) validBody(id BodyID) bool {
	return id >= 0 && int(id) < len(w.bodies)
}

// Body returns the spec a body was added with.
func (w *World) Body(id BodyID) BodySpec {
	return w.bodies[id].spec
}

// NumBodies returns the number of bodies.
func (w *World) NumBodies() int {
	return len(w.bodies)
}

// BodyPose returns the current pose of a body.
func (w *World) BodyPose(id BodyID) spatialmath.Pose {
	return w.bodies[id].pose
}

// SetBodyPose teleports a body and clears its velocity. Constrained descendants follow.
func (w *World) SetBodyPose(id BodyID, pose spatialmath.Pose) {
	b := w.bodies[id]
	b.pose = pose
	b.velocity = r3.Vector{}
	w.project()
}

// JointPosition returns the solved position of a constraint.
func (w *World) JointPosition(id ConstraintID) float64 {
	return w.constraints[id].position
}

// SetJointPosition sets the target position of a constraint. The solver clamps it to the joint
// limits and moves the child bodies.
func (w *World) SetJointPosition(id ConstraintID, position float64) {
	c := w.constraints[id]
	c.position = clampToLimits(c.spec, position)
	c.velocity = 0
	w.project()
}

// SetJointVelocity sets the velocity of a constraint. Damping slows it down each substep.
func (w *World) SetJointVelocity(id ConstraintID, velocity float64) {
	w.constraints[id].velocity = velocity
}

// Contacts returns the contacts resolved in the last substep.
func (w *World) Contacts() []Contact {
	return w.contacts
}

// Step advances the simulation by dt seconds in Substeps substeps.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	h := dt / float64(w.cfg.Substeps)
	for i := 0; i < w.cfg.Substeps; i++ {
		w.substep(h)
	}
}

func (w *World) substep(h float64) {
	for _, c := range w.constraints {
		rc, ok := c.spec.(RevoluteConstraint)
		if !ok || c.velocity == 0 {
			continue
		}
		c.velocity /= 1 + rc.AngularDamping*h
		c.position += c.velocity * h
		if clamped := clampToLimits(rc, c.position); clamped != c.position {
			c.position, c.velocity = clamped, 0
		}
	}
	for _, b := range w.bodies {
		if b.spec.Type != Dynamic || b.hasParent {
			continue
		}
		b.velocity = b.velocity.Add(w.cfg.Gravity.Mul(h))
		b.pose = spatialmath.NewPose(b.pose.Point().Add(b.velocity.Mul(h)), b.pose.Orientation())
	}
	w.project()

	contacts := w.generateContacts()
	if w.hook != nil {
		contacts = w.hook(contacts)
	}
	w.contacts = contacts
	w.resolve(contacts)
}

func clampToLimits(spec ConstraintSpec, position float64) float64 {
	if rc, ok := spec.(RevoluteConstraint); ok && rc.Limits != nil {
		return rc.Limits.Clamp(position)
	}
	return position
}

// project places every constrained body from its parent, parents first.
func (w *World) project() {
	if w.order == nil {
		w.order = w.topologicalOrder()
	}
	for _, id := range w.order {
		c := w.constraints[id]
		parent, child := c.spec.Bodies()
		pose := spatialmath.Compose(w.bodies[parent].pose, c.spec.AnchorPose())
		if rc, ok := c.spec.(RevoluteConstraint); ok {
			pose = spatialmath.Compose(pose, spatialmath.NewPoseFromOrientation(spatialmath.NewR4AAFromAxis(rc.Axis, c.position)))
		}
		w.bodies[child].pose = pose
		w.bodies[child].velocity = r3.Vector{}
	}
}

func (w *World) topologicalOrder() []ConstraintID {
	depth := make(map[ConstraintID]int, len(w.constraints))
	var depthOf func(ConstraintID) int
	depthOf = func(id ConstraintID) int {
		if d, ok := depth[id]; ok {
			return d
		}
		depth[id] = 0
		parent, _ := w.constraints[id].spec.Bodies()
		d := 0
		if pb := w.bodies[parent]; pb.hasParent {
			d = depthOf(pb.parent) + 1
		}
		depth[id] = d
		return d
	}
	order := make([]ConstraintID, len(w.constraints))
	for i := range w.constraints {
		order[i] = ConstraintID(i)
		depthOf(ConstraintID(i))
	}
	// stable insertion sort keeps file order among equal depths
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && depth[order[j]] < depth[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

func (w *World) connected(a, b BodyID) bool {
	ba, bb := w.bodies[a], w.bodies[b]
	if ba.hasParent {
		if p, _ := w.constraints[ba.parent].spec.Bodies(); p == b {
			return true
		}
	}
	if bb.hasParent {
		if p, _ := w.constraints[bb.parent].spec.Bodies(); p == a {
			return true
		}
	}
	return false
}

// boundingRadius returns the radius of a collider's bounding sphere, or false while its mesh loads.
func (w *World) boundingRadius(b *body, i int) (float64, bool) {
	if b.radii[i] > 0 {
		return b.radii[i], true
	}
	var r float64
	switch s := b.spec.Colliders[i].Shape.(type) {
	case Ball:
		r = s.Radius
	case Cuboid:
		r = s.HalfExtents.Norm()
	case CylinderShape:
		r = math.Hypot(s.Radius, s.HalfHeight)
	case ConvexDecomposition:
		if w.cfg.Meshes == nil {
			return 0, false
		}
		mesh, state, _ := w.cfg.Meshes.Mesh(s.Mesh)
		if state != assets.Loaded {
			return 0, false
		}
		scale := s.Scale
		if scale == (r3.Vector{}) {
			scale = r3.Vector{X: 1, Y: 1, Z: 1}
		}
		r = mesh.Scaled(scale).BoundingRadius()
		w.logger.Debugw("convex collider active", "body", b.spec.Name, "radius", r)
	default:
		return 0, false
	}
	b.radii[i] = r
	return r, r > 0
}

func colliderPose(b *body, c ColliderSpec) spatialmath.Pose {
	if c.Offset == nil {
		return b.pose
	}
	return spatialmath.Compose(b.pose, c.Offset)
}

func (w *World) generateContacts() []Contact {
	var contacts []Contact
	for ai := range w.bodies {
		for bi := ai + 1; bi < len(w.bodies); bi++ {
			a, b := w.bodies[ai], w.bodies[bi]
			if a.spec.Type != Dynamic && b.spec.Type != Dynamic {
				continue
			}
			if w.connected(BodyID(ai), BodyID(bi)) {
				continue
			}
			for ci := range a.spec.Colliders {
				for cj := range b.spec.Colliders {
					if c, ok := w.collide(a, ci, b, cj); ok {
						c.BodyA, c.BodyB = BodyID(ai), BodyID(bi)
						contacts = append(contacts, c)
					}
				}
			}
		}
	}
	return contacts
}

func exactShape(s ColliderShape) bool {
	switch s.(type) {
	case Cuboid, CylinderShape:
		return true
	default:
		return false
	}
}

func (w *World) collide(a *body, ci int, b *body, cj int) (Contact, bool) {
	ra, okA := w.boundingRadius(a, ci)
	rb, okB := w.boundingRadius(b, cj)
	if !okA || !okB {
		return Contact{}, false
	}
	colA, colB := a.spec.Colliders[ci], b.spec.Colliders[cj]
	poseA, poseB := colliderPose(a, colA), colliderPose(b, colB)

	switch {
	case exactShape(colB.Shape):
		n, p, ok := sphereVsShape(poseA.Point(), ra, poseB, colB.Shape)
		return Contact{Normal: n, Points: []ContactPoint{p}}, ok
	case exactShape(colA.Shape):
		n, p, ok := sphereVsShape(poseB.Point(), rb, poseA, colA.Shape)
		return Contact{Normal: n.Mul(-1), Points: []ContactPoint{p}}, ok
	default:
		n, p, ok := sphereSphere(poseA.Point(), ra, poseB.Point(), rb)
		return Contact{Normal: n, Points: []ContactPoint{p}}, ok
	}
}

// sphereVsShape returns the contact of a sphere against a cuboid or cylinder at pose, with the
// normal pointing towards the sphere.
func sphereVsShape(center r3.Vector, radius float64, pose spatialmath.Pose, shape ColliderShape,
) (r3.Vector, ContactPoint, bool) {
	local := spatialmath.TransformPoint(spatialmath.PoseInverse(pose), center)
	var (
		n  r3.Vector
		cp ContactPoint
		ok bool
	)
	switch s := shape.(type) {
	case Cuboid:
		n, cp, ok = sphereSolid(local, radius, closestOnCuboid(local, s.HalfExtents), func() (r3.Vector, float64) {
			return cuboidExit(local, s.HalfExtents)
		})
	case CylinderShape:
		n, cp, ok = sphereSolid(local, radius, closestOnCylinder(local, s.Radius, s.HalfHeight), func() (r3.Vector, float64) {
			return cylinderExit(local, s.Radius, s.HalfHeight)
		})
	default:
		return r3.Vector{}, ContactPoint{}, false
	}
	if !ok {
		return r3.Vector{}, ContactPoint{}, false
	}
	cp.Point = spatialmath.TransformPoint(pose, cp.Point)
	return spatialmath.RotateVector(pose, n), cp, true
}

func (w *World) free(id BodyID) bool {
	b := w.bodies[id]
	return b.spec.Type == Dynamic && !b.hasParent
}

func (w *World) resolve(contacts []Contact) {
	for _, c := range contacts {
		pen := c.MaxPenetration()
		aFree, bFree := w.free(c.BodyA), w.free(c.BodyB)
		switch {
		case aFree && bFree:
			w.push(c.BodyA, c.Normal, pen/2)
			w.push(c.BodyB, c.Normal.Mul(-1), pen/2)
		case aFree:
			w.push(c.BodyA, c.Normal, pen)
		case bFree:
			w.push(c.BodyB, c.Normal.Mul(-1), pen)
		}
	}
}

func (w *World) push(id BodyID, normal r3.Vector, distance float64) {
	b := w.bodies[id]
	b.pose = spatialmath.NewPose(b.pose.Point().Add(normal.Mul(distance)), b.pose.Orientation())
	if into := b.velocity.Dot(normal); into < 0 {
		b.velocity = b.velocity.Sub(normal.Mul(into))
	}
}
