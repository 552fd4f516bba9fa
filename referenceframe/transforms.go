package referenceframe

import (
	"go.viam.com/urdfsim/spatialmath"
)

// Transforms holds one pose per link and per resolved joint of a Tree, indexed by LinkIndex and
// JointIndex.
type Transforms struct {
	Links  []spatialmath.Pose
	Joints []spatialmath.Pose
}

// Link returns the pose of a link.
func (ts Transforms) Link(i LinkIndex) spatialmath.Pose {
	return ts.Links[i]
}

// Joint returns the pose of a joint.
func (ts Transforms) Joint(i JointIndex) spatialmath.Pose {
	return ts.Joints[i]
}

// LocalTransforms returns each node's pose relative to its parent in a hierarchy of
// link -> joint -> child link. Top-level links (the root and any unconnected link) are placed at
// base; every other link sits at its joint with the identity; each joint sits at its origin
// relative to the parent link.
func LocalTransforms(tree *Tree, base spatialmath.Pose) Transforms {
	if base == nil {
		base = spatialmath.NewZeroPose()
	}
	ts := Transforms{
		Links:  make([]spatialmath.Pose, len(tree.Links)),
		Joints: make([]spatialmath.Pose, len(tree.Joints)),
	}
	for i, rec := range tree.Links {
		if rec.ParentJoint == NoJoint {
			ts.Links[i] = base
		} else {
			ts.Links[i] = spatialmath.NewZeroPose()
		}
	}
	for i, rec := range tree.Joints {
		ts.Joints[i] = rec.Joint.Origin.Transform()
	}
	return ts
}

// WorldTransforms returns each node's absolute pose at rest: a link is at
// base * origin(j1) * ... * origin(jn) along the joints leading to it, and a joint is at its
// parent link's pose times its origin. Unconnected links are placed at base.
func WorldTransforms(tree *Tree, base spatialmath.Pose) Transforms {
	if base == nil {
		base = spatialmath.NewZeroPose()
	}
	ts := Transforms{
		Links:  make([]spatialmath.Pose, len(tree.Links)),
		Joints: make([]spatialmath.Pose, len(tree.Joints)),
	}
	tree.Walk(func(i LinkIndex) {
		rec := tree.Links[i]
		if rec.ParentJoint == NoJoint {
			ts.Links[i] = base
		} else {
			ts.Links[i] = ts.Joints[rec.ParentJoint]
		}
		for _, ji := range rec.ChildJoints {
			ts.Joints[ji] = spatialmath.Compose(ts.Links[i], tree.Joints[ji].Joint.Origin.Transform())
		}
	})
	return ts
}
