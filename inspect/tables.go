// Package inspect prints and exports the structure of a robot: link and joint tables, the joint
// panel, a graphviz rendering of the kinematic tree, and a file watcher to redo it on change.
package inspect

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"go.viam.com/urdfsim/control"
	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/spatialmath"
	"go.viam.com/urdfsim/urdf"
	"go.viam.com/urdfsim/utils"
)

// LinkTable prints one row per link in tree order with its world pose for the given base.
func LinkTable(tree *referenceframe.Tree, base spatialmath.Pose) string {
	world := referenceframe.WorldTransforms(tree, base)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Link", "Parent joint", "Depth", "Translation", "Orientation", "Visuals", "Collisions"})
	n := 0
	tree.Walk(func(i referenceframe.LinkIndex) {
		n++
		rec := tree.Links[i]
		parent := ""
		if rec.ParentJoint != referenceframe.NoJoint {
			parent = tree.Joints[rec.ParentJoint].Joint.Name
		} else if tree.IsUnconnected(i) {
			parent = "(unconnected)"
		}
		pose := world.Link(i)
		tra := pose.Point()
		ori := pose.Orientation().EulerAngles()
		t.AppendRow(table.Row{
			n,
			strings.Repeat("  ", tree.Depth(i)) + rec.Link.Name,
			parent,
			tree.Depth(i),
			fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", tra.X, tra.Y, tra.Z),
			fmt.Sprintf(
				"Roll:%.2f, Pitch:%.2f, Yaw:%.2f",
				utils.RadToDeg(ori.Roll),
				utils.RadToDeg(ori.Pitch),
				utils.RadToDeg(ori.Yaw),
			),
			geometryKinds(visualKinds(rec.Link)),
			geometryKinds(collisionKinds(rec.Link)),
		})
	})
	return t.Render()
}

func visualKinds(l *urdf.Link) []string {
	kinds := make([]string, 0, len(l.Visuals))
	for _, v := range l.Visuals {
		kinds = append(kinds, v.Geometry.Kind())
	}
	return kinds
}

func collisionKinds(l *urdf.Link) []string {
	kinds := make([]string, 0, len(l.Collisions))
	for _, c := range l.Collisions {
		kinds = append(kinds, c.Geometry.Kind())
	}
	return kinds
}

func geometryKinds(kinds []string) string {
	return strings.Join(kinds, ", ")
}

// JointTable prints the resolved joints followed by the skipped ones.
func JointTable(tree *referenceframe.Tree) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Joint", "Type", "Parent", "Child", "Axis", "Limits", "Status"})
	for _, rec := range tree.Joints {
		j := rec.Joint
		t.AppendRow(table.Row{j.Name, j.Type, j.Parent, j.Child, axisString(j), limitString(j), "ok"})
	}
	for _, s := range tree.Skipped {
		j := s.Joint
		t.AppendRow(table.Row{j.Name, j.Type, j.Parent, j.Child, axisString(j), limitString(j), "skipped: " + s.Reason})
	}
	return t.Render()
}

func axisString(j *urdf.Joint) string {
	if j.Type == urdf.FixedJoint {
		return ""
	}
	return fmt.Sprintf("%g %g %g", j.Axis.X, j.Axis.Y, j.Axis.Z)
}

func limitString(j *urdf.Joint) string {
	if j.Limit == nil || j.Type == urdf.ContinuousJoint || j.Type == urdf.FixedJoint {
		return ""
	}
	return fmt.Sprintf("[%g, %g]", j.Limit.Lower, j.Limit.Upper)
}

// PanelTable prints the joint panel.
func PanelTable(rows []control.PanelRow) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Joint", "Control", "Range", "Value"})
	for _, r := range rows {
		if !r.Enabled {
			t.AppendRow(table.Row{r.Label, r.Kind, "", fmt.Sprintf("unsupported joint type: %s", r.Type)})
			continue
		}
		t.AppendRow(table.Row{r.Label, r.Kind, fmt.Sprintf("[%.3f, %.3f]", r.Range.Min, r.Range.Max), fmt.Sprintf("%.4f", r.Value)})
	}
	return t.Render()
}
