// Package scene builds the entity graph of a robot: one node per link, joint, visual and collision,
// with the components a renderer and a physics engine need.
package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/urdfsim/assets"
	"go.viam.com/urdfsim/physics"
	"go.viam.com/urdfsim/spatialmath"
	"go.viam.com/urdfsim/urdf"
)

// NodeID identifies a node in a Graph.
type NodeID int

// NoNode is the parent of top-level nodes.
const NoNode NodeID = -1

// Kind is what a node stands for.
type Kind int

// Node kinds.
const (
	RobotNode Kind = iota
	LinkNode
	JointNode
	VisualNode
	CollisionNode
	FloorNode
)

func (k Kind) String() string {
	switch k {
	case RobotNode:
		return "robot"
	case LinkNode:
		return "link"
	case JointNode:
		return "joint"
	case VisualNode:
		return "visual"
	case CollisionNode:
		return "collision"
	case FloorNode:
		return "floor"
	default:
		return "unknown"
	}
}

// Transform is a node's placement relative to its parent. Scale applies to the node's own mesh and
// is inherited by its children like any other matrix factor.
type Transform struct {
	Pose  spatialmath.Pose
	Scale r3.Vector
}

// NewTransform returns an unscaled transform at pose.
func NewTransform(pose spatialmath.Pose) Transform {
	return Transform{Pose: pose, Scale: r3.Vector{X: 1, Y: 1, Z: 1}}
}

// IdentityTransform is the identity.
func IdentityTransform() Transform {
	return NewTransform(spatialmath.NewZeroPose())
}

// Matrix returns translation * rotation * scale.
func (t Transform) Matrix() mgl64.Mat4 {
	pose := t.Pose
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	pt := pose.Point()
	q := pose.Orientation().Quaternion()
	rot := mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Normalize().Mat4()
	scale := t.Scale
	if scale == (r3.Vector{}) {
		scale = r3.Vector{X: 1, Y: 1, Z: 1}
	}
	return mgl64.Translate3D(pt.X, pt.Y, pt.Z).Mul4(rot).Mul4(mgl64.Scale3D(scale.X, scale.Y, scale.Z))
}

// PoseFromMatrix extracts the rigid part of a transform matrix, dividing out any scale.
func PoseFromMatrix(m mgl64.Mat4) spatialmath.Pose {
	cols := [3]mgl64.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	var rm [9]float64
	for c, col := range cols {
		if l := col.Len(); l > 0 {
			col = col.Mul(1 / l)
		}
		rm[c], rm[3+c], rm[6+c] = col[0], col[1], col[2]
	}
	q := spatialmath.NewRotationMatrix(rm).Quaternion()
	if math.IsNaN(q.Real) {
		q = quat.Number{Real: 1}
	}
	t := m.Col(3)
	return spatialmath.NewPose(r3.Vector{X: t[0], Y: t[1], Z: t[2]}, spatialmath.NewQuaternion(q))
}

// VisualComponent marks a node as drawable.
type VisualComponent struct {
	Mesh     assets.MeshHandle
	Material assets.MaterialHandle
}

// CollisionComponent marks a node as collidable.
type CollisionComponent struct {
	Mesh     assets.MeshHandle
	Collider physics.ColliderSpec
}

// Node is an entity of the graph.
type Node struct {
	ID       NodeID
	Name     string
	Kind     Kind
	Parent   NodeID
	Children []NodeID
	Local    Transform
	World    mgl64.Mat4

	Link       *urdf.Link
	Joint      *urdf.Joint
	Visual     *VisualComponent
	Collision  *CollisionComponent
	Body       *physics.BodyID
	Constraint *physics.ConstraintID
}

// Graph is an arena of nodes. World matrices are only valid after Propagate.
type Graph struct {
	nodes []*Node
	dirty bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Add creates a node under parent, which may be NoNode.
func (g *Graph) Add(name string, kind Kind, parent NodeID, local Transform) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id, Name: name, Kind: kind, Parent: NoNode, Local: local, World: mgl64.Ident4()})
	if parent != NoNode {
		g.SetParent(id, parent)
	}
	g.dirty = true
	return id
}

// Node returns a node by id.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Count returns the number of nodes of a kind.
func (g *Graph) Count(kind Kind) int {
	n := 0
	for _, node := range g.nodes {
		if node.Kind == kind {
			n++
		}
	}
	return n
}

// Find returns the first node with the given name and kind.
func (g *Graph) Find(name string, kind Kind) (NodeID, bool) {
	for _, node := range g.nodes {
		if node.Name == name && node.Kind == kind {
			return node.ID, true
		}
	}
	return NoNode, false
}

// SetParent moves a node under a new parent.
func (g *Graph) SetParent(child, parent NodeID) {
	node := g.nodes[child]
	if node.Parent != NoNode {
		old := g.nodes[node.Parent]
		for i, c := range old.Children {
			if c == child {
				old.Children = append(old.Children[:i], old.Children[i+1:]...)
				break
			}
		}
	}
	node.Parent = parent
	if parent != NoNode {
		g.nodes[parent].Children = append(g.nodes[parent].Children, child)
	}
	g.dirty = true
}

// SetLocal replaces a node's local transform.
func (g *Graph) SetLocal(id NodeID, local Transform) {
	g.nodes[id].Local = local
	g.dirty = true
}

// SetLocalPose replaces a node's local pose and keeps its scale.
func (g *Graph) SetLocalPose(id NodeID, pose spatialmath.Pose) {
	g.nodes[id].Local.Pose = pose
	g.dirty = true
}

// Propagate recomputes world matrices from local transforms, parents first. It does nothing when no
// node changed since the last call.
func (g *Graph) Propagate() {
	if !g.dirty {
		return
	}
	var visit func(id NodeID, parent mgl64.Mat4)
	visit = func(id NodeID, parent mgl64.Mat4) {
		node := g.nodes[id]
		node.World = parent.Mul4(node.Local.Matrix())
		for _, c := range node.Children {
			visit(c, node.World)
		}
	}
	for _, node := range g.nodes {
		if node.Parent == NoNode {
			visit(node.ID, mgl64.Ident4())
		}
	}
	g.dirty = false
}

// WorldPose returns the rigid world pose of a node, propagating first if needed.
func (g *Graph) WorldPose(id NodeID) spatialmath.Pose {
	g.Propagate()
	return PoseFromMatrix(g.nodes[id].World)
}

// Walk visits nodes depth first, parents before children.
func (g *Graph) Walk(fn func(node *Node, depth int)) {
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		node := g.nodes[id]
		fn(node, depth)
		for _, c := range node.Children {
			visit(c, depth+1)
		}
	}
	for _, node := range g.nodes {
		if node.Parent == NoNode {
			visit(node.ID, 0)
		}
	}
}
