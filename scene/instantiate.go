package scene

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/urdfsim/assets"
	"go.viam.com/urdfsim/geometry"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/physics"
	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/spatialmath"
	"go.viam.com/urdfsim/urdf"
)

// Mode selects how link transforms are stored.
type Mode int

const (
	// RenderMode nests nodes as link -> joint -> child link, each holding its pose relative to its parent.
	RenderMode Mode = iota
	// PhysicsMode keeps every link at the top level holding its world pose, backed by a rigid body.
	// Joint nodes are anchors at the joint frames and carry the constraints.
	PhysicsMode
)

func (m Mode) String() string {
	if m == PhysicsMode {
		return "physics"
	}
	return "render"
}

// DefaultBase is the robot placement used when none is configured: a rotation of -90 degrees about X
// that stands a Z-up description up in a Y-up world.
func DefaultBase() spatialmath.Pose {
	return spatialmath.NewPoseFromOrientation(&spatialmath.R4AA{Theta: -math.Pi / 2, RX: 1})
}

// Options configures instantiation.
type Options struct {
	Mode                  Mode
	Base                  spatialmath.Pose
	CylinderConvention    geometry.CylinderConvention
	AnalyticColliders     bool
	RootBodyType          physics.BodyType
	DefaultAngularDamping float64
	// ContactThreshold installs a penetration filter on the engine when positive.
	ContactThreshold float64
}

// NewDefaultOptions returns render mode options with the default base.
func NewDefaultOptions() Options {
	return Options{
		Mode:                  RenderMode,
		Base:                  DefaultBase(),
		CylinderConvention:    geometry.FullLength,
		RootBodyType:          physics.Static,
		DefaultAngularDamping: physics.DefaultAngularDamping,
		ContactThreshold:      physics.DefaultContactThreshold,
	}
}

// Deps holds what instantiation writes into. Engine is required in PhysicsMode; Graph is created
// when nil.
type Deps struct {
	Logger logging.Logger
	Assets *assets.Server
	Engine physics.Engine
	Graph  *Graph
}

// JointBinding is the physics constraint of a joint, when it has one. Movable joints without one
// are posed by the joint controller.
type JointBinding struct {
	Constraint physics.ConstraintID
	Bound      bool
}

// RobotScene is an instantiated robot.
type RobotScene struct {
	Robot  *urdf.Robot
	Tree   *referenceframe.Tree
	Graph  *Graph
	Mode   Mode
	Base   spatialmath.Pose
	Engine physics.Engine
	Root   NodeID

	// Links and Joints are indexed by referenceframe.LinkIndex and referenceframe.JointIndex.
	Links      []NodeID
	Joints     []NodeID
	Visuals    []NodeID
	Collisions []NodeID
	// Bodies and Bindings are only filled in PhysicsMode.
	Bodies   []physics.BodyID
	Bindings []JointBinding
}

// Load parses a description file, builds its tree and instantiates it.
func Load(path string, opts Options, deps Deps) (*RobotScene, error) {
	robot, err := urdf.ParseFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := referenceframe.NewTree(robot, deps.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build kinematic tree for %q", path)
	}
	return Instantiate(robot, tree, opts, deps)
}

// Instantiate creates the nodes of a robot: a robot node, every link node, the visual and collision
// nodes of each link, and then the joint nodes. In PhysicsMode it also adds one body per link and
// one constraint per joint the engine supports.
func Instantiate(robot *urdf.Robot, tree *referenceframe.Tree, opts Options, deps Deps) (*RobotScene, error) {
	if deps.Assets == nil {
		return nil, errors.New("an asset server is required")
	}
	if opts.Mode == PhysicsMode && deps.Engine == nil {
		return nil, errors.New("physics mode requires an engine")
	}
	if deps.Graph == nil {
		deps.Graph = NewGraph()
	}
	base := opts.Base
	if base == nil {
		base = spatialmath.NewZeroPose()
	}
	logger := deps.Logger

	rs := &RobotScene{
		Robot:  robot,
		Tree:   tree,
		Graph:  deps.Graph,
		Mode:   opts.Mode,
		Base:   base,
		Engine: deps.Engine,
		Links:  make([]NodeID, len(tree.Links)),
		Joints: make([]NodeID, len(tree.Joints)),
	}
	g := rs.Graph
	rs.Root = g.Add(robot.Name, RobotNode, NoNode, IdentityTransform())

	for i, rec := range tree.Links {
		id := g.Add(rec.Link.Name, LinkNode, rs.Root, IdentityTransform())
		g.Node(id).Link = rec.Link
		rs.Links[i] = id
	}

	resolver := geometry.NewResolver(deps.Assets, logger)
	resolver.CylinderConvention = opts.CylinderConvention
	resolver.AnalyticColliders = opts.AnalyticColliders
	colliders := make([][]physics.ColliderSpec, len(tree.Links))
	for i, rec := range tree.Links {
		link := rec.Link
		for _, v := range link.Visuals {
			va, ok := resolver.ResolveVisual(link, v, robot.BaseDir)
			if !ok {
				continue
			}
			id := g.Add(va.Name, VisualNode, rs.Links[i], Transform{Pose: va.Origin, Scale: va.Scale})
			g.Node(id).Visual = &VisualComponent{Mesh: va.Mesh, Material: va.Material}
			rs.Visuals = append(rs.Visuals, id)
		}
		for _, c := range link.Collisions {
			ca, ok := resolver.ResolveCollision(link, c, robot.BaseDir)
			if !ok {
				continue
			}
			id := g.Add(ca.Name, CollisionNode, rs.Links[i], Transform{Pose: ca.Origin, Scale: ca.Scale})
			collider := ca.Collider
			g.Node(id).Collision = &CollisionComponent{Mesh: ca.Mesh, Collider: collider}
			rs.Collisions = append(rs.Collisions, id)
			colliders[i] = append(colliders[i], collider)
		}
	}

	switch opts.Mode {
	case RenderMode:
		rs.instantiateRender()
	case PhysicsMode:
		rs.instantiatePhysics(opts, logger, colliders)
	default:
		return nil, errors.Errorf("unknown mode %d", opts.Mode)
	}
	g.Propagate()
	logger.Infow("instantiated robot", "robot", robot.Name, "mode", opts.Mode,
		"links", len(rs.Links), "joints", len(rs.Joints), "visuals", len(rs.Visuals), "collisions", len(rs.Collisions))
	return rs, nil
}

func (rs *RobotScene) instantiateRender() {
	g := rs.Graph
	local := referenceframe.LocalTransforms(rs.Tree, rs.Base)
	for i := range rs.Tree.Links {
		g.SetLocal(rs.Links[i], NewTransform(local.Link(referenceframe.LinkIndex(i))))
	}
	for i, rec := range rs.Tree.Joints {
		id := g.Add(jointNodeName(rec.Joint), JointNode, rs.Links[rec.Parent], NewTransform(local.Joint(referenceframe.JointIndex(i))))
		g.Node(id).Joint = rec.Joint
		rs.Joints[i] = id
		g.SetParent(rs.Links[rec.Child], id)
	}
}

func (rs *RobotScene) instantiatePhysics(opts Options, logger logging.Logger, colliders [][]physics.ColliderSpec) {
	g := rs.Graph
	binder := physics.NewBinder(logger, rs.Engine.Capabilities())
	binder.RootBodyType = opts.RootBodyType
	if opts.DefaultAngularDamping > 0 {
		binder.DefaultAngularDamping = opts.DefaultAngularDamping
	}
	if opts.ContactThreshold > 0 {
		rs.Engine.SetContactHook(physics.PenetrationFilter(opts.ContactThreshold))
	}

	driven := make(map[referenceframe.LinkIndex]bool)
	for _, rec := range rs.Tree.Joints {
		if binder.DirectlyDriven(rec.Joint) {
			driven[rec.Child] = true
		}
	}

	world := referenceframe.WorldTransforms(rs.Tree, rs.Base)
	rs.Bodies = make([]physics.BodyID, len(rs.Tree.Links))
	for i, rec := range rs.Tree.Links {
		li := referenceframe.LinkIndex(i)
		pose := world.Link(li)
		g.SetLocal(rs.Links[i], NewTransform(pose))
		spec := binder.BindBody(rec.Link.Name, rec.Link.Inertial, li == rs.Tree.Root, pose, colliders[i])
		if driven[li] && spec.Type == physics.Dynamic {
			spec.Type = physics.Kinematic
		}
		rs.Bodies[i] = rs.Engine.AddBody(spec)
		body := rs.Bodies[i]
		g.Node(rs.Links[i]).Body = &body
	}

	rs.Bindings = make([]JointBinding, len(rs.Tree.Joints))
	for i, rec := range rs.Tree.Joints {
		id := g.Add(jointNodeName(rec.Joint), JointNode, rs.Root, NewTransform(world.Joint(referenceframe.JointIndex(i))))
		g.Node(id).Joint = rec.Joint
		rs.Joints[i] = id

		spec, ok := binder.BindJoint(rec.Joint, rs.Bodies[rec.Parent], rs.Bodies[rec.Child], rec.Joint.Origin.Transform())
		if !ok {
			continue
		}
		cid, err := rs.Engine.AddConstraint(spec)
		if err != nil {
			logger.Errorw("engine rejected joint constraint", "joint", rec.Joint.Name, "error", err)
			continue
		}
		rs.Bindings[i] = JointBinding{Constraint: cid, Bound: true}
		g.Node(id).Constraint = &cid
	}
}

func jointNodeName(j *urdf.Joint) string {
	return fmt.Sprintf("Joint: %s", j.Name)
}

// LinkNode returns the node of the named link.
func (rs *RobotScene) LinkNode(name string) (NodeID, bool) {
	i, ok := rs.Tree.LinkByName(name)
	if !ok {
		return NoNode, false
	}
	return rs.Links[i], true
}

// JointNode returns the node of the named joint. Skipped joints have no node.
func (rs *RobotScene) JointNode(name string) (NodeID, bool) {
	i, ok := rs.Tree.JointByName(name)
	if !ok {
		return NoNode, false
	}
	return rs.Joints[i], true
}

// SyncFromEngine copies body poses onto link nodes and moves joint anchors to their parent link
// times their origin. It does nothing in RenderMode.
func (rs *RobotScene) SyncFromEngine() {
	if rs.Mode != PhysicsMode {
		return
	}
	for i, body := range rs.Bodies {
		rs.Graph.SetLocalPose(rs.Links[i], rs.Engine.BodyPose(body))
	}
	for i, rec := range rs.Tree.Joints {
		parent := rs.Engine.BodyPose(rs.Bodies[rec.Parent])
		rs.Graph.SetLocalPose(rs.Joints[i], spatialmath.Compose(parent, rec.Joint.Origin.Transform()))
	}
}
