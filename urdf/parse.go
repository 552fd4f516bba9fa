package urdf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrNoModelInformation is returned when the input holds nothing to parse.
var ErrNoModelInformation = errors.New("no model information")

// ParseFile reads the URDF file at path. Returned errors name the path.
func ParseFile(path string) (*Robot, error) {
	//nolint:gosec
	xmlData, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read URDF file %q", path)
	}
	robot, err := Unmarshal(xmlData)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse URDF file %q", path)
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		robot.BaseDir = abs
	} else {
		robot.BaseDir = filepath.Dir(path)
	}
	return robot, nil
}

// Unmarshal converts URDF XML data into a Robot. Joint references are not checked here.
func Unmarshal(xmlData []byte) (*Robot, error) {
	// empty data probably means that the read URDF has no actionable information
	if len(bytes.TrimSpace(xmlData)) == 0 {
		return nil, ErrNoModelInformation
	}
	doc := &robotXML{}
	if err := xml.Unmarshal(xmlData, doc); err != nil {
		return nil, errors.Wrap(err, "failed to convert URDF data to Robot")
	}
	if len(doc.Links) == 0 {
		return nil, errors.Errorf("robot %q has no links", doc.Name)
	}

	robot := &Robot{Name: doc.Name}
	named := map[string]*Material{}
	for _, m := range doc.Materials {
		mat, err := m.parse(fmt.Sprintf("robot material %q", m.Name))
		if err != nil {
			return nil, err
		}
		robot.Materials = append(robot.Materials, mat)
		if mat.Name != "" {
			named[mat.Name] = mat
		}
	}

	seen := make(map[string]struct{}, len(doc.Links))
	for _, l := range doc.Links {
		if _, dup := seen[l.Name]; dup {
			return nil, errors.Errorf("duplicate link name %q", l.Name)
		}
		seen[l.Name] = struct{}{}
		link, err := l.parse(named)
		if err != nil {
			return nil, err
		}
		robot.Links = append(robot.Links, link)
	}

	for _, j := range doc.Joints {
		joint, err := j.parse()
		if err != nil {
			return nil, err
		}
		robot.Joints = append(robot.Joints, joint)
	}
	return robot, nil
}

func (l *linkXML) parse(named map[string]*Material) (*Link, error) {
	what := fmt.Sprintf("link %q", l.Name)
	link := &Link{Name: l.Name}
	if l.Inertial != nil {
		origin, err := l.Inertial.Origin.parse(what + " inertial")
		if err != nil {
			return nil, err
		}
		in := &Inertial{Origin: origin}
		if l.Inertial.Mass != nil {
			in.Mass = l.Inertial.Mass.Value
		}
		if i := l.Inertial.Inertia; i != nil {
			in.Inertia = Inertia{IXX: i.IXX, IXY: i.IXY, IXZ: i.IXZ, IYY: i.IYY, IYZ: i.IYZ, IZZ: i.IZZ}
		}
		link.Inertial = in
	}
	for i := range l.Visuals {
		v := &l.Visuals[i]
		origin, err := v.Origin.parse(what + " visual")
		if err != nil {
			return nil, err
		}
		geom, err := v.Geometry.parse(what + " visual")
		if err != nil {
			return nil, err
		}
		mat, err := v.Material.parse(what)
		if err != nil {
			return nil, err
		}
		// a material reference by name only picks up the robot-level definition
		if mat != nil && mat.Color == nil && mat.Texture == "" {
			if def, ok := named[mat.Name]; ok {
				mat = def
			}
		}
		link.Visuals = append(link.Visuals, &Visual{Name: v.Name, Origin: origin, Geometry: geom, Material: mat})
	}
	for i := range l.Collisions {
		c := &l.Collisions[i]
		origin, err := c.Origin.parse(what + " collision")
		if err != nil {
			return nil, err
		}
		geom, err := c.Geometry.parse(what + " collision")
		if err != nil {
			return nil, err
		}
		link.Collisions = append(link.Collisions, &Collision{Name: c.Name, Origin: origin, Geometry: geom})
	}
	return link, nil
}

func (j *jointXML) parse() (*Joint, error) {
	what := fmt.Sprintf("joint %q", j.Name)
	origin, err := j.Origin.parse(what)
	if err != nil {
		return nil, err
	}
	joint := &Joint{
		Name:   j.Name,
		Type:   JointType(j.Type),
		Parent: j.Parent.Link,
		Child:  j.Child.Link,
		Origin: origin,
		Axis:   DefaultAxis,
	}
	if j.Axis != nil && j.Axis.XYZ != "" {
		axis, err := parseVector(j.Axis.XYZ, what+" axis")
		if err != nil {
			return nil, err
		}
		joint.Axis = axis
	}
	if j.Limit != nil {
		joint.Limit = &Limit{Lower: j.Limit.Lower, Upper: j.Limit.Upper, Effort: j.Limit.Effort, Velocity: j.Limit.Velocity}
	}
	if j.Dynamics != nil {
		joint.Dynamics = &Dynamics{Damping: j.Dynamics.Damping, Friction: j.Dynamics.Friction}
	}
	return joint, nil
}

// Marshal serializes a Robot back into URDF XML. Unmarshal(Marshal(r)) reproduces r.
func Marshal(robot *Robot) ([]byte, error) {
	if robot == nil {
		return nil, ErrNoModelInformation
	}
	doc := &robotXML{Name: robot.Name}
	for _, m := range robot.Materials {
		doc.Materials = append(doc.Materials, *newMaterialXML(m))
	}
	for _, l := range robot.Links {
		lx := linkXML{Name: l.Name}
		if in := l.Inertial; in != nil {
			lx.Inertial = &inertialXML{
				Origin: newPoseXML(in.Origin),
				Mass:   &massXML{Value: in.Mass},
				Inertia: &inertiaXML{
					IXX: in.Inertia.IXX, IXY: in.Inertia.IXY, IXZ: in.Inertia.IXZ,
					IYY: in.Inertia.IYY, IYZ: in.Inertia.IYZ, IZZ: in.Inertia.IZZ,
				},
			}
		}
		for _, v := range l.Visuals {
			lx.Visuals = append(lx.Visuals, visualXML{
				Name:     v.Name,
				Origin:   newPoseXML(v.Origin),
				Geometry: newGeometryXML(v.Geometry),
				Material: newMaterialXML(v.Material),
			})
		}
		for _, c := range l.Collisions {
			lx.Collisions = append(lx.Collisions, collisionXML{
				Name:     c.Name,
				Origin:   newPoseXML(c.Origin),
				Geometry: newGeometryXML(c.Geometry),
			})
		}
		doc.Links = append(doc.Links, lx)
	}
	for _, j := range robot.Joints {
		jx := jointXML{
			Name:   j.Name,
			Type:   string(j.Type),
			Origin: newPoseXML(j.Origin),
			Parent: frameXML{Link: j.Parent},
			Child:  frameXML{Link: j.Child},
		}
		if j.Axis != DefaultAxis {
			jx.Axis = &axisXML{XYZ: formatVector(j.Axis)}
		}
		if j.Limit != nil {
			jx.Limit = &limitXML{Lower: j.Limit.Lower, Upper: j.Limit.Upper, Effort: j.Limit.Effort, Velocity: j.Limit.Velocity}
		}
		if j.Dynamics != nil {
			jx.Dynamics = &dynamicsXML{Damping: j.Dynamics.Damping, Friction: j.Dynamics.Friction}
		}
		doc.Joints = append(doc.Joints, jx)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal robot")
	}
	return append([]byte(xml.Header), out...), nil
}
