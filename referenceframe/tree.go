// Package referenceframe resolves the links and joints of a robot description into a rooted
// kinematic tree and computes the transforms of its links and joints.
package referenceframe

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/urdf"
)

// LinkIndex is the position of a link in Tree.Links.
type LinkIndex int

// JointIndex is the position of a resolved joint in Tree.Joints.
type JointIndex int

// NoJoint marks a link with no parent joint.
const NoJoint JointIndex = -1

// LinkRecord is a link of the tree with its connectivity.
type LinkRecord struct {
	Link        *urdf.Link
	ParentJoint JointIndex
	ChildJoints []JointIndex
}

// JointRecord is a joint whose parent and child links were both found.
type JointRecord struct {
	Joint  *urdf.Joint
	Parent LinkIndex
	Child  LinkIndex
}

// SkippedJoint is a joint left out of the tree, with the reason it was left out.
type SkippedJoint struct {
	Joint  *urdf.Joint
	Reason string
}

// Tree is a robot's kinematic tree. Links are kept in file order; joints are the resolved subset
// of the description's joints, also in file order.
type Tree struct {
	Name        string
	Links       []LinkRecord
	Joints      []JointRecord
	Skipped     []SkippedJoint
	Root        LinkIndex
	Unconnected []LinkIndex

	linkIndex  map[string]LinkIndex
	jointIndex map[string]JointIndex
}

// NewTree builds the kinematic tree of a robot. Joints that reference unknown links, that would give
// a link a second parent, that connect a link to itself or that would close a cycle are skipped and
// logged as warnings. Links no joint attaches to the root are logged as unconnected.
func NewTree(robot *urdf.Robot, logger logging.Logger) (*Tree, error) {
	if robot == nil || len(robot.Links) == 0 {
		return nil, errors.New("robot has no links")
	}
	tree := &Tree{
		Name:       robot.Name,
		Links:      make([]LinkRecord, 0, len(robot.Links)),
		linkIndex:  make(map[string]LinkIndex, len(robot.Links)),
		jointIndex: make(map[string]JointIndex, len(robot.Joints)),
	}
	for _, l := range robot.Links {
		if _, ok := tree.linkIndex[l.Name]; ok {
			return nil, errors.Errorf("duplicate link name %q", l.Name)
		}
		tree.linkIndex[l.Name] = LinkIndex(len(tree.Links))
		tree.Links = append(tree.Links, LinkRecord{Link: l, ParentJoint: NoJoint})
	}

	for _, j := range robot.Joints {
		parent, child, reason := tree.resolve(j)
		if reason != "" {
			tree.Skipped = append(tree.Skipped, SkippedJoint{Joint: j, Reason: reason})
			logger.Warnw("skipping joint", "joint", j.Name, "parent", j.Parent, "child", j.Child, "reason", reason)
			continue
		}
		idx := JointIndex(len(tree.Joints))
		tree.Joints = append(tree.Joints, JointRecord{Joint: j, Parent: parent, Child: child})
		tree.jointIndex[j.Name] = idx
		tree.Links[parent].ChildJoints = append(tree.Links[parent].ChildJoints, idx)
		tree.Links[child].ParentJoint = idx
	}

	roots := lo.Filter(lo.Range(len(tree.Links)), func(i, _ int) bool {
		return tree.Links[i].ParentJoint == NoJoint
	})
	if len(roots) == 0 {
		// unreachable while cycles are rejected above
		tree.Root = 0
	} else {
		tree.Root = LinkIndex(roots[0])
		for _, i := range roots[1:] {
			tree.Unconnected = append(tree.Unconnected, LinkIndex(i))
			logger.Warnw("link is not connected to the root link", "link", tree.Links[i].Link.Name,
				"root", tree.Links[roots[0]].Link.Name)
		}
	}
	logger.Debugw("built kinematic tree", "robot", tree.Name, "root", tree.RootLink().Name,
		"links", len(tree.Links), "joints", len(tree.Joints), "skipped", len(tree.Skipped))
	return tree, nil
}

func (t *Tree) resolve(j *urdf.Joint) (LinkIndex, LinkIndex, string) {
	parent, ok := t.linkIndex[j.Parent]
	if !ok {
		return 0, 0, fmt.Sprintf("parent link %q does not exist", j.Parent)
	}
	child, ok := t.linkIndex[j.Child]
	if !ok {
		return 0, 0, fmt.Sprintf("child link %q does not exist", j.Child)
	}
	if _, ok := t.jointIndex[j.Name]; ok {
		return 0, 0, fmt.Sprintf("duplicate joint name %q", j.Name)
	}
	if parent == child {
		return 0, 0, "parent and child are the same link"
	}
	if existing := t.Links[child].ParentJoint; existing != NoJoint {
		return 0, 0, fmt.Sprintf("child link %q already has parent joint %q", j.Child, t.Joints[existing].Joint.Name)
	}
	for i := parent; ; {
		pj := t.Links[i].ParentJoint
		if pj == NoJoint {
			break
		}
		i = t.Joints[pj].Parent
		if i == child {
			return 0, 0, "joint would create a cycle"
		}
	}
	return parent, child, ""
}

// RootLink returns the root link.
func (t *Tree) RootLink() *urdf.Link {
	return t.Links[t.Root].Link
}

// LinkByName returns the index of the named link.
func (t *Tree) LinkByName(name string) (LinkIndex, bool) {
	i, ok := t.linkIndex[name]
	return i, ok
}

// JointByName returns the index of the named resolved joint. Skipped joints are not found.
func (t *Tree) JointByName(name string) (JointIndex, bool) {
	i, ok := t.jointIndex[name]
	return i, ok
}

// IsUnconnected reports whether a link is a root other than Root.
func (t *Tree) IsUnconnected(i LinkIndex) bool {
	return lo.Contains(t.Unconnected, i)
}

// Path returns the joints from the top of the link's subtree down to the link, in that order.
func (t *Tree) Path(i LinkIndex) []JointIndex {
	var path []JointIndex
	for pj := t.Links[i].ParentJoint; pj != NoJoint; pj = t.Links[t.Joints[pj].Parent].ParentJoint {
		path = append([]JointIndex{pj}, path...)
	}
	return path
}

// Depth returns the number of joints between a link and the top of its subtree.
func (t *Tree) Depth(i LinkIndex) int {
	return len(t.Path(i))
}

// Walk visits links depth first, parents before children, starting at Root and then at each
// unconnected link. Children are visited in joint file order.
func (t *Tree) Walk(fn func(LinkIndex)) {
	var visit func(LinkIndex)
	visit = func(i LinkIndex) {
		fn(i)
		for _, ji := range t.Links[i].ChildJoints {
			visit(t.Joints[ji].Child)
		}
	}
	visit(t.Root)
	for _, u := range t.Unconnected {
		visit(u)
	}
}
