package urdf

import (
	"encoding/xml"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/urdfsim/utils"
)

// robotXML represents all supported fields in a URDF file.
type robotXML struct {
	XMLName   xml.Name      `xml:"robot"`
	Name      string        `xml:"name,attr"`
	Materials []materialXML `xml:"material"`
	Links     []linkXML     `xml:"link"`
	Joints    []jointXML    `xml:"joint"`
}

type linkXML struct {
	Name       string         `xml:"name,attr"`
	Inertial   *inertialXML   `xml:"inertial,omitempty"`
	Visuals    []visualXML    `xml:"visual"`
	Collisions []collisionXML `xml:"collision"`
}

type inertialXML struct {
	Origin  *poseXML    `xml:"origin,omitempty"`
	Mass    *massXML    `xml:"mass,omitempty"`
	Inertia *inertiaXML `xml:"inertia,omitempty"`
}

type massXML struct {
	Value float64 `xml:"value,attr"`
}

type inertiaXML struct {
	IXX float64 `xml:"ixx,attr"`
	IXY float64 `xml:"ixy,attr"`
	IXZ float64 `xml:"ixz,attr"`
	IYY float64 `xml:"iyy,attr"`
	IYZ float64 `xml:"iyz,attr"`
	IZZ float64 `xml:"izz,attr"`
}

type visualXML struct {
	Name     string       `xml:"name,attr,omitempty"`
	Origin   *poseXML     `xml:"origin,omitempty"`
	Geometry geometryXML  `xml:"geometry"`
	Material *materialXML `xml:"material,omitempty"`
}

type collisionXML struct {
	Name     string      `xml:"name,attr,omitempty"`
	Origin   *poseXML    `xml:"origin,omitempty"`
	Geometry geometryXML `xml:"geometry"`
}

type geometryXML struct {
	Box      *boxXML      `xml:"box,omitempty"`
	Cylinder *cylinderXML `xml:"cylinder,omitempty"`
	Sphere   *sphereXML   `xml:"sphere,omitempty"`
	Mesh     *meshXML     `xml:"mesh,omitempty"`
	Capsule  *cylinderXML `xml:"capsule,omitempty"`
	Other    []anyXML     `xml:",any"`
}

type anyXML struct {
	XMLName xml.Name
}

type boxXML struct {
	Size string `xml:"size,attr"` // "x y z" format, in meters
}

type cylinderXML struct {
	Radius float64 `xml:"radius,attr"`
	Length float64 `xml:"length,attr"`
}

type sphereXML struct {
	Radius float64 `xml:"radius,attr"` // in meters
}

type meshXML struct {
	Filename string `xml:"filename,attr"`
	Scale    string `xml:"scale,attr,omitempty"`
}

type materialXML struct {
	Name    string      `xml:"name,attr,omitempty"`
	Color   *colorXML   `xml:"color,omitempty"`
	Texture *textureXML `xml:"texture,omitempty"`
}

type colorXML struct {
	RGBA string `xml:"rgba,attr"`
}

type textureXML struct {
	Filename string `xml:"filename,attr"`
}

type jointXML struct {
	Name     string       `xml:"name,attr"`
	Type     string       `xml:"type,attr"`
	Origin   *poseXML     `xml:"origin,omitempty"`
	Parent   frameXML     `xml:"parent"`
	Child    frameXML     `xml:"child"`
	Axis     *axisXML     `xml:"axis,omitempty"`
	Limit    *limitXML    `xml:"limit,omitempty"`
	Dynamics *dynamicsXML `xml:"dynamics,omitempty"`
}

type frameXML struct {
	Link string `xml:"link,attr"`
}

type axisXML struct {
	XYZ string `xml:"xyz,attr"`
}

type limitXML struct {
	Lower    float64 `xml:"lower,attr"` // translation limits are in meters, revolute limits are in radians
	Upper    float64 `xml:"upper,attr"` // translation limits are in meters, revolute limits are in radians
	Effort   float64 `xml:"effort,attr,omitempty"`
	Velocity float64 `xml:"velocity,attr,omitempty"`
}

type dynamicsXML struct {
	Damping  *float64 `xml:"damping,attr,omitempty"`
	Friction float64  `xml:"friction,attr"`
}

type poseXML struct {
	XYZ string `xml:"xyz,attr,omitempty"` // "x y z" format, in meters
	RPY string `xml:"rpy,attr,omitempty"` // intrinsic "r p y" format, in radians
}

func parseVector(s, what string) (r3.Vector, error) {
	vals, err := parseFloats(s, 3, what)
	if err != nil {
		return r3.Vector{}, err
	}
	return r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

func formatVector(v r3.Vector) string {
	return utils.FloatSliceToSpaceDelimitedString(v.X, v.Y, v.Z)
}

func parseFloats(s string, n int, what string) ([]float64, error) {
	vals := utils.SpaceDelimitedStringToFloatSlice(s)
	if len(vals) != n {
		return nil, errors.Errorf("%s: expected %d values, got %q", what, n, s)
	}
	for _, v := range vals {
		if math.IsNaN(v) {
			return nil, errors.Errorf("%s: invalid number in %q", what, s)
		}
	}
	return vals, nil
}

func (p *poseXML) parse(what string) (Pose, error) {
	var out Pose
	if p == nil {
		return out, nil
	}
	if p.XYZ != "" {
		xyz, err := parseVector(p.XYZ, what+" origin xyz")
		if err != nil {
			return out, err
		}
		out.XYZ = xyz
	}
	if p.RPY != "" {
		rpy, err := parseFloats(p.RPY, 3, what+" origin rpy")
		if err != nil {
			return out, err
		}
		copy(out.RPY[:], rpy)
	}
	return out, nil
}

func newPoseXML(p Pose) *poseXML {
	if p.IsZero() {
		return nil
	}
	return &poseXML{
		XYZ: formatVector(p.XYZ),
		RPY: utils.FloatSliceToSpaceDelimitedString(p.RPY[0], p.RPY[1], p.RPY[2]),
	}
}

func (g *geometryXML) parse(what string) (Geometry, error) {
	switch {
	case g.Box != nil:
		size, err := parseVector(g.Box.Size, what+" box size")
		if err != nil {
			return nil, err
		}
		return &Box{Size: size}, nil
	case g.Cylinder != nil:
		return &Cylinder{Radius: g.Cylinder.Radius, Length: g.Cylinder.Length}, nil
	case g.Sphere != nil:
		return &Sphere{Radius: g.Sphere.Radius}, nil
	case g.Mesh != nil:
		m := &Mesh{Filename: g.Mesh.Filename}
		if g.Mesh.Scale != "" {
			scale, err := parseVector(g.Mesh.Scale, what+" mesh scale")
			if err != nil {
				return nil, err
			}
			m.Scale = &scale
		}
		return m, nil
	case g.Capsule != nil:
		return &Capsule{Radius: g.Capsule.Radius, Length: g.Capsule.Length}, nil
	case len(g.Other) > 0:
		return &UnknownGeometry{Element: g.Other[0].XMLName.Local}, nil
	default:
		return &UnknownGeometry{}, nil
	}
}

func newGeometryXML(g Geometry) geometryXML {
	var out geometryXML
	switch geom := g.(type) {
	case *Box:
		out.Box = &boxXML{Size: formatVector(geom.Size)}
	case *Cylinder:
		out.Cylinder = &cylinderXML{Radius: geom.Radius, Length: geom.Length}
	case *Sphere:
		out.Sphere = &sphereXML{Radius: geom.Radius}
	case *Mesh:
		out.Mesh = &meshXML{Filename: geom.Filename}
		if geom.Scale != nil {
			out.Mesh.Scale = formatVector(*geom.Scale)
		}
	case *Capsule:
		out.Capsule = &cylinderXML{Radius: geom.Radius, Length: geom.Length}
	case *UnknownGeometry:
		if geom.Element != "" {
			out.Other = []anyXML{{XMLName: xml.Name{Local: geom.Element}}}
		}
	default:
		panic(fmt.Sprintf("unreachable geometry %T", g))
	}
	return out
}

func (m *materialXML) parse(what string) (*Material, error) {
	if m == nil {
		return nil, nil
	}
	out := &Material{Name: m.Name}
	if m.Color != nil {
		vals, err := parseFloats(m.Color.RGBA, 4, what+" material rgba")
		if err != nil {
			return nil, err
		}
		var c RGBA
		copy(c[:], vals)
		out.Color = &c
	}
	if m.Texture != nil {
		out.Texture = m.Texture.Filename
	}
	return out, nil
}

func newMaterialXML(m *Material) *materialXML {
	if m == nil {
		return nil
	}
	out := &materialXML{Name: m.Name}
	if m.Color != nil {
		out.Color = &colorXML{RGBA: utils.FloatSliceToSpaceDelimitedString(m.Color[:]...)}
	}
	if m.Texture != "" {
		out.Texture = &textureXML{Filename: m.Texture}
	}
	return out
}
