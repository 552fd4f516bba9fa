// Package control applies joint positions to an instantiated robot, either by moving render nodes
// directly or by driving the physics constraints that own the joints.
package control

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/physics"
	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/scene"
	"go.viam.com/urdfsim/spatialmath"
	"go.viam.com/urdfsim/urdf"
)

var (
	// ErrUnknownJoint is returned when a command names a joint the robot does not have.
	ErrUnknownJoint = errors.New("unknown joint")
	// ErrUnsupportedJoint is returned when a command names a joint that cannot be moved.
	ErrUnsupportedJoint = errors.New("joint type cannot be controlled")
)

// JointState is the controllable state of one joint. Frame is nil for joint types that cannot be
// moved.
type JointState struct {
	Name      string
	Type      urdf.JointType
	Index     referenceframe.JointIndex
	Frame     *referenceframe.JointFrame
	Limits    referenceframe.Limit
	Position  float64
	ChildNode scene.NodeID
	// Constraint is set when a physics constraint owns the joint.
	Constraint *physics.ConstraintID

	dirty bool
}

// Controllable reports whether the joint takes a position.
func (js *JointState) Controllable() bool {
	return js.Frame != nil && js.Frame.DoF() > 0
}

// Deps are the collaborators of a JointController. Input may be nil.
type Deps struct {
	Logger logging.Logger
	Input  InputSource
}

// JointController is the single writer of joint positions. In render mode it sets the local
// transform of each child link node. In physics mode it writes targets into the engine and reads
// the solved positions back, so the solver has the final say.
type JointController struct {
	rs     *scene.RobotScene
	logger logging.Logger
	input  InputSource
	states []*JointState
	byName map[string]*JointState
	// direct holds the joints posed by the controller in physics mode, parents first.
	direct []*JointState
}

// NewJointController creates one JointState per joint of the scene, every one at position 0.
func NewJointController(rs *scene.RobotScene, deps Deps) (*JointController, error) {
	if rs == nil {
		return nil, errors.New("a robot scene is required")
	}
	jc := &JointController{
		rs:     rs,
		logger: deps.Logger,
		input:  deps.Input,
		byName: make(map[string]*JointState, len(rs.Tree.Joints)),
	}
	for i, rec := range rs.Tree.Joints {
		js := &JointState{
			Name:      rec.Joint.Name,
			Type:      rec.Joint.Type,
			Index:     referenceframe.JointIndex(i),
			ChildNode: rs.Links[rec.Child],
		}
		frame, err := referenceframe.NewJointFrame(rec.Joint)
		if err != nil {
			jc.logger.Warnw("joint cannot be controlled", "joint", rec.Joint.Name, "type", rec.Joint.Type, "error", err)
		} else {
			js.Frame = frame
			js.Limits = frame.Limits()
		}
		if rs.Mode == scene.PhysicsMode {
			switch b := rs.Bindings[i]; {
			case b.Bound:
				cid := b.Constraint
				js.Constraint = &cid
			case js.Controllable():
				jc.direct = append(jc.direct, js)
			}
		}
		jc.states = append(jc.states, js)
		jc.byName[js.Name] = js
	}
	sort.SliceStable(jc.direct, func(a, b int) bool {
		return rs.Tree.Depth(rs.Tree.Joints[jc.direct[a].Index].Child) < rs.Tree.Depth(rs.Tree.Joints[jc.direct[b].Index].Child)
	})
	return jc, nil
}

// SetPosition sets the position of a joint, clamped to its range. It takes effect on the next Update.
func (jc *JointController) SetPosition(name string, position float64) error {
	js, ok := jc.byName[name]
	if !ok {
		return errors.Wrapf(ErrUnknownJoint, "%q", name)
	}
	if !js.Controllable() {
		return errors.Wrapf(ErrUnsupportedJoint, "%q is %s", name, js.Type)
	}
	js.Position = js.Limits.Clamp(position)
	js.dirty = true
	return nil
}

// Position returns the current position of a joint.
func (jc *JointController) Position(name string) (float64, error) {
	js, ok := jc.byName[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownJoint, "%q", name)
	}
	return js.Position, nil
}

// Positions returns the position of every controllable joint by name.
func (jc *JointController) Positions() map[string]float64 {
	controllable := lo.Filter(jc.states, func(js *JointState, _ int) bool { return js.Controllable() })
	return lo.SliceToMap(controllable, func(js *JointState) (string, float64) { return js.Name, js.Position })
}

// States returns the joint states in joint order.
func (jc *JointController) States() []*JointState {
	return jc.states
}

// Update drains the input source and applies every changed joint. Commands that cannot be applied
// are logged and dropped. In physics mode the children of direct joints are posed from their parent
// body on every call, so they follow the bodies the engine moved since the last frame.
func (jc *JointController) Update() {
	if jc.input != nil {
		for _, cmd := range jc.input.Poll() {
			if err := jc.SetPosition(cmd.Joint, cmd.Position); err != nil {
				jc.logger.Warnw("ignoring joint command", "joint", cmd.Joint, "error", err)
			}
		}
	}
	applied := false
	for _, js := range jc.states {
		if !js.dirty {
			continue
		}
		js.dirty = false
		applied = true
		switch {
		case jc.rs.Mode != scene.PhysicsMode:
			jc.rs.Graph.SetLocalPose(js.ChildNode, js.Frame.Transform(js.Position))
		case js.Constraint != nil:
			jc.rs.Engine.SetJointPosition(*js.Constraint, js.Position)
		}
	}
	if jc.rs.Mode != scene.PhysicsMode {
		return
	}
	for _, js := range jc.direct {
		jc.poseChild(js)
	}
	if applied || len(jc.direct) > 0 {
		jc.rs.SyncFromEngine()
	}
}

// poseChild places the child body of a direct joint at parent body * origin * joint motion.
func (jc *JointController) poseChild(js *JointState) {
	engine := jc.rs.Engine
	rec := jc.rs.Tree.Joints[js.Index]
	parent := engine.BodyPose(jc.rs.Bodies[rec.Parent])
	pose := spatialmath.ComposeAll(parent, rec.Joint.Origin.Transform(), js.Frame.Transform(js.Position))
	engine.SetBodyPose(jc.rs.Bodies[rec.Child], pose)
}

// Sync reads the solved position of every constraint-owned joint back from the engine.
func (jc *JointController) Sync() {
	if jc.rs.Mode != scene.PhysicsMode {
		return
	}
	for _, js := range jc.states {
		if js.Constraint != nil && js.Controllable() {
			js.Position = jc.rs.Engine.JointPosition(*js.Constraint)
		}
	}
}
