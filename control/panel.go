package control

import (
	"github.com/samber/lo"

	"go.viam.com/urdfsim/referenceframe"
	"go.viam.com/urdfsim/urdf"
)

// PanelKind is the kind of control shown for a joint.
type PanelKind int

// Panel kinds.
const (
	AngleControl PanelKind = iota
	PositionControl
	UnsupportedControl
)

func (k PanelKind) String() string {
	switch k {
	case AngleControl:
		return "Angle"
	case PositionControl:
		return "Position"
	default:
		return "Unsupported"
	}
}

// PanelRow is one row of the joint panel. Disabled rows are informational.
type PanelRow struct {
	Label   string
	Type    urdf.JointType
	Kind    PanelKind
	Range   referenceframe.Limit
	Value   float64
	Enabled bool
}

// Panel returns one row per joint in joint order.
func (jc *JointController) Panel() []PanelRow {
	return lo.Map(jc.states, func(js *JointState, _ int) PanelRow {
		row := PanelRow{Label: js.Name, Type: js.Type, Kind: UnsupportedControl}
		if !js.Controllable() {
			return row
		}
		row.Enabled = true
		row.Range = js.Limits
		row.Value = js.Position
		if js.Type.Rotational() {
			row.Kind = AngleControl
		} else {
			row.Kind = PositionControl
		}
		return row
	})
}
