// Package assets stores the meshes and materials of a scene behind opaque handles and loads mesh
// files in the background.
package assets

import (
	"math"

	"github.com/golang/geo/r3"
)

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Label     string
	Vertices  []r3.Vector
	Triangles [][3]int
}

// Bounds returns the axis-aligned bounding box of the mesh.
func (m *Mesh) Bounds() (r3.Vector, r3.Vector) {
	if len(m.Vertices) == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	lo, hi := m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		lo = r3.Vector{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vector{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return lo, hi
}

// Extents returns the size of the bounding box along each axis.
func (m *Mesh) Extents() r3.Vector {
	lo, hi := m.Bounds()
	return hi.Sub(lo)
}

// BoundingRadius is the distance from the mesh origin to its farthest vertex.
func (m *Mesh) BoundingRadius() float64 {
	var r float64
	for _, v := range m.Vertices {
		r = math.Max(r, v.Norm())
	}
	return r
}

// Scaled returns a copy of the mesh with each vertex scaled per axis.
func (m *Mesh) Scaled(scale r3.Vector) *Mesh {
	out := &Mesh{Label: m.Label, Vertices: make([]r3.Vector, len(m.Vertices)), Triangles: m.Triangles}
	for i, v := range m.Vertices {
		out.Vertices[i] = r3.Vector{X: v.X * scale.X, Y: v.Y * scale.Y, Z: v.Z * scale.Z}
	}
	return out
}

// Ordered list of cuboid vertices on the unit cube.
var cuboidVertices = [8]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// The sets of indices of the cuboid vertices that tile the cuboid exterior.
var cuboidTriangles = [12][3]int{
	{0, 1, 3},
	{0, 2, 3},
	{0, 1, 5},
	{0, 4, 5},
	{0, 2, 6},
	{0, 4, 6},
	{7, 1, 3},
	{7, 2, 3},
	{7, 1, 5},
	{7, 4, 5},
	{7, 2, 6},
	{7, 4, 6},
}

// NewCuboidMesh returns a cuboid centered on the origin. size holds the full extents.
func NewCuboidMesh(size r3.Vector) *Mesh {
	half := size.Mul(0.5)
	m := &Mesh{Label: "cuboid", Vertices: make([]r3.Vector, 0, 8), Triangles: cuboidTriangles[:]}
	for _, v := range cuboidVertices {
		m.Vertices = append(m.Vertices, r3.Vector{X: v.X * half.X, Y: v.Y * half.Y, Z: v.Z * half.Z})
	}
	return m
}

// NewSphereMesh returns a UV sphere centered on the origin.
func NewSphereMesh(radius float64, sectors, stacks int) *Mesh {
	sectors = max(sectors, 3)
	stacks = max(stacks, 2)
	m := &Mesh{Label: "sphere"}
	for i := 0; i <= stacks; i++ {
		phi := math.Pi * float64(i) / float64(stacks)
		for j := 0; j <= sectors; j++ {
			theta := 2 * math.Pi * float64(j) / float64(sectors)
			m.Vertices = append(m.Vertices, r3.Vector{
				X: radius * math.Sin(phi) * math.Cos(theta),
				Y: radius * math.Sin(phi) * math.Sin(theta),
				Z: radius * math.Cos(phi),
			})
		}
	}
	row := sectors + 1
	for i := 0; i < stacks; i++ {
		for j := 0; j < sectors; j++ {
			a, b := i*row+j, (i+1)*row+j
			if i != 0 {
				m.Triangles = append(m.Triangles, [3]int{a, b, a + 1})
			}
			if i != stacks-1 {
				m.Triangles = append(m.Triangles, [3]int{a + 1, b, b + 1})
			}
		}
	}
	return m
}

// NewCylinderMesh returns a capped cylinder centered on the origin and aligned with Z, spanning
// [-halfHeight, halfHeight].
func NewCylinderMesh(radius, halfHeight float64, segments int) *Mesh {
	segments = max(segments, 3)
	m := &Mesh{Label: "cylinder"}
	// cap centers first, then the bottom and top rings
	m.Vertices = append(m.Vertices, r3.Vector{Z: -halfHeight}, r3.Vector{Z: halfHeight})
	for _, z := range []float64{-halfHeight, halfHeight} {
		for j := 0; j < segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			m.Vertices = append(m.Vertices, r3.Vector{X: radius * math.Cos(theta), Y: radius * math.Sin(theta), Z: z})
		}
	}
	bottom := func(j int) int { return 2 + j%segments }
	top := func(j int) int { return 2 + segments + j%segments }
	for j := 0; j < segments; j++ {
		m.Triangles = append(m.Triangles,
			[3]int{0, bottom(j + 1), bottom(j)},
			[3]int{1, top(j), top(j + 1)},
			[3]int{bottom(j), bottom(j + 1), top(j + 1)},
			[3]int{bottom(j), top(j + 1), top(j)},
		)
	}
	return m
}
