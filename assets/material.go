package assets

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Material is the surface description used to render a mesh.
type Material struct {
	Name      string
	BaseColor colorful.Color
	Alpha     float64
	Metallic  float64
}

// NewMaterial returns a material with the given RGBA components in [0, 1].
func NewMaterial(name string, r, g, b, a, metallic float64) Material {
	return Material{Name: name, BaseColor: colorful.Color{R: r, G: g, B: b}, Alpha: a, Metallic: metallic}
}

// RGBA returns the color components of the material in [0, 1].
func (m Material) RGBA() [4]float64 {
	return [4]float64{m.BaseColor.R, m.BaseColor.G, m.BaseColor.B, m.Alpha}
}

// Hex returns the base color as a #rrggbb string.
func (m Material) Hex() string {
	return m.BaseColor.Clamped().Hex()
}
