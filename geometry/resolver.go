// Package geometry turns the visual and collision elements of links into meshes, materials and
// collider descriptions.
package geometry

import (
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/urdfsim/assets"
	"go.viam.com/urdfsim/logging"
	"go.viam.com/urdfsim/physics"
	"go.viam.com/urdfsim/spatialmath"
	"go.viam.com/urdfsim/urdf"
)

// CylinderConvention says how a description's cylinder length maps to the half height of the
// generated mesh.
type CylinderConvention string

const (
	// FullLength treats length as the full height, so the half height is length/2.
	FullLength CylinderConvention = "full"
	// HalfLength passes length through as the half height, doubling the cylinder.
	HalfLength CylinderConvention = "half"
)

// ParseCylinderConvention parses a convention name; "" means FullLength.
func ParseCylinderConvention(s string) (CylinderConvention, error) {
	switch CylinderConvention(strings.ToLower(s)) {
	case "", FullLength:
		return FullLength, nil
	case HalfLength:
		return HalfLength, nil
	default:
		return "", errors.Errorf("unknown cylinder convention %q (must be %q or %q)", s, FullLength, HalfLength)
	}
}

// HalfHeight returns the half height of a cylinder of the given length.
func (c CylinderConvention) HalfHeight(length float64) float64 {
	if c == HalfLength {
		return length
	}
	return length / 2
}

// Default appearance for visuals without a usable color.
var (
	DefaultColor    = urdf.RGBA{0.8, 0.8, 0.8, 1}
	DefaultMetallic = 0.7
)

// Tessellation of generated primitive meshes.
const (
	SphereSectors    = 32
	SphereStacks     = 16
	CylinderSegments = 32
)

// VisualAsset is a resolved visual: the mesh and material to draw at Origin, relative to the link,
// with Scale applied to the mesh only.
type VisualAsset struct {
	Name     string
	Mesh     assets.MeshHandle
	Material assets.MaterialHandle
	Origin   spatialmath.Pose
	Scale    r3.Vector
}

// CollisionAsset is a resolved collision element.
type CollisionAsset struct {
	Name     string
	Mesh     assets.MeshHandle
	Collider physics.ColliderSpec
	Origin   spatialmath.Pose
	Scale    r3.Vector
}

// Resolver resolves geometry into assets held by an asset server.
type Resolver struct {
	assets             *assets.Server
	logger             logging.Logger
	CylinderConvention CylinderConvention
	AnalyticColliders  bool
}

// NewResolver returns a Resolver using the full length cylinder convention and convex
// decomposition colliders.
func NewResolver(server *assets.Server, logger logging.Logger) *Resolver {
	return &Resolver{assets: server, logger: logger, CylinderConvention: FullLength}
}

var unitScale = r3.Vector{X: 1, Y: 1, Z: 1}

// meshFor returns the mesh of a supported geometry and its render scale.
func (r *Resolver) meshFor(g urdf.Geometry, baseDir string) (assets.MeshHandle, r3.Vector, bool) {
	switch geom := g.(type) {
	case *urdf.Box:
		return r.assets.AddMesh(assets.NewCuboidMesh(geom.Size)), unitScale, true
	case *urdf.Sphere:
		return r.assets.AddMesh(assets.NewSphereMesh(geom.Radius, SphereSectors, SphereStacks)), unitScale, true
	case *urdf.Cylinder:
		halfHeight := r.CylinderConvention.HalfHeight(geom.Length)
		return r.assets.AddMesh(assets.NewCylinderMesh(geom.Radius, halfHeight, CylinderSegments)), unitScale, true
	case *urdf.Mesh:
		scale := unitScale
		if geom.Scale != nil {
			scale = *geom.Scale
		}
		return r.assets.LoadMesh(urdf.ResolveMeshPath(geom.Filename, baseDir)), scale, true
	case *urdf.Capsule, *urdf.UnknownGeometry:
		return assets.MeshHandle{}, r3.Vector{}, false
	default:
		return assets.MeshHandle{}, r3.Vector{}, false
	}
}

// ResolveVisual resolves a visual of a link. Unsupported geometry is logged and reported with false,
// and the visual should be skipped.
func (r *Resolver) ResolveVisual(link *urdf.Link, visual *urdf.Visual, baseDir string) (VisualAsset, bool) {
	mesh, scale, ok := r.meshFor(visual.Geometry, baseDir)
	if !ok {
		r.logger.Warnw("unsupported visual geometry", "link", link.Name, "geometry", visual.Geometry.Kind())
		return VisualAsset{}, false
	}
	name := visual.Name
	if name == "" {
		name = link.Name
	}
	return VisualAsset{
		Name:     name,
		Mesh:     mesh,
		Material: r.assets.AddMaterial(r.material(link, visual.Material)),
		Origin:   visual.Origin.Transform(),
		Scale:    scale,
	}, true
}

func (r *Resolver) material(link *urdf.Link, m *urdf.Material) assets.Material {
	color := DefaultColor
	name := "default"
	if m != nil {
		name = m.Name
		switch {
		case m.Color != nil:
			color = *m.Color
		case m.Texture != "":
			r.logger.Warnw("texture materials are not supported, using the default color",
				"link", link.Name, "texture", m.Texture)
		}
	}
	return assets.NewMaterial(name, color[0], color[1], color[2], color[3], DefaultMetallic)
}

// ResolveCollision resolves a collision element of a link. The collider is a convex decomposition
// of the mesh unless AnalyticColliders is set, in which case boxes, spheres and cylinders get exact
// shapes.
func (r *Resolver) ResolveCollision(link *urdf.Link, collision *urdf.Collision, baseDir string) (CollisionAsset, bool) {
	mesh, scale, ok := r.meshFor(collision.Geometry, baseDir)
	if !ok {
		r.logger.Warnw("unsupported collision geometry", "link", link.Name, "geometry", collision.Geometry.Kind())
		return CollisionAsset{}, false
	}
	name := collision.Name
	if name == "" {
		name = link.Name
	}
	origin := collision.Origin.Transform()
	var shape physics.ColliderShape = physics.ConvexDecomposition{Mesh: mesh, Scale: scale}
	if r.AnalyticColliders {
		switch geom := collision.Geometry.(type) {
		case *urdf.Box:
			shape = physics.Cuboid{HalfExtents: geom.Size.Mul(0.5)}
		case *urdf.Sphere:
			shape = physics.Ball{Radius: geom.Radius}
		case *urdf.Cylinder:
			shape = physics.CylinderShape{Radius: geom.Radius, HalfHeight: r.CylinderConvention.HalfHeight(geom.Length)}
		}
	}
	return CollisionAsset{
		Name:     name,
		Mesh:     mesh,
		Collider: physics.ColliderSpec{Name: name, Shape: shape, Offset: origin},
		Origin:   origin,
		Scale:    scale,
	}, true
}
