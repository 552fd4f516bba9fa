package physics

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
)

// ContactPoint is a point where two colliders overlap.
type ContactPoint struct {
	Point       r3.Vector
	Penetration float64
}

// Contact is the contact manifold of a pair of bodies. Normal points from B towards A.
type Contact struct {
	BodyA, BodyB BodyID
	Normal       r3.Vector
	Points       []ContactPoint
}

// MaxPenetration returns the deepest penetration of the manifold.
func (c Contact) MaxPenetration() float64 {
	return lo.Max(lo.Map(c.Points, func(p ContactPoint, _ int) float64 { return p.Penetration }))
}

// ContactHook post-processes the contacts generated in a substep before they are resolved. The
// returned slice replaces the input.
type ContactHook func(contacts []Contact) []Contact

// DefaultContactThreshold is the penetration below which contacts are ignored.
const DefaultContactThreshold = 0.01

// PenetrationFilter drops manifolds whose deepest point penetrates less than threshold.
func PenetrationFilter(threshold float64) ContactHook {
	return func(contacts []Contact) []Contact {
		return lo.Filter(contacts, func(c Contact, _ int) bool {
			return c.MaxPenetration() >= threshold
		})
	}
}

// sphereSphere returns the contact between two spheres, if any.
func sphereSphere(ca r3.Vector, ra float64, cb r3.Vector, rb float64) (r3.Vector, ContactPoint, bool) {
	d := ca.Sub(cb)
	dist := d.Norm()
	pen := ra + rb - dist
	if pen <= 0 {
		return r3.Vector{}, ContactPoint{}, false
	}
	normal := r3.Vector{Y: 1}
	if dist > 1e-12 {
		normal = d.Mul(1 / dist)
	}
	return normal, ContactPoint{Point: cb.Add(normal.Mul(rb - pen/2)), Penetration: pen}, true
}

// closestOnCuboid returns the closest point to p on a box centered at the origin.
func closestOnCuboid(p, half r3.Vector) r3.Vector {
	return r3.Vector{
		X: math.Max(-half.X, math.Min(half.X, p.X)),
		Y: math.Max(-half.Y, math.Min(half.Y, p.Y)),
		Z: math.Max(-half.Z, math.Min(half.Z, p.Z)),
	}
}

// closestOnCylinder returns the closest point to p on a Z aligned cylinder centered at the origin.
func closestOnCylinder(p r3.Vector, radius, halfHeight float64) r3.Vector {
	out := r3.Vector{Z: math.Max(-halfHeight, math.Min(halfHeight, p.Z))}
	radial := math.Hypot(p.X, p.Y)
	if radial <= radius {
		out.X, out.Y = p.X, p.Y
	} else {
		out.X, out.Y = p.X*radius/radial, p.Y*radius/radial
	}
	return out
}

// sphereSolid returns the contact between a sphere (center in the solid's local frame) and a solid
// whose closest point function is given. Normal and point are in the solid's local frame.
func sphereSolid(center r3.Vector, radius float64, closest r3.Vector, inside func() (r3.Vector, float64),
) (r3.Vector, ContactPoint, bool) {
	d := center.Sub(closest)
	dist := d.Norm()
	if dist > 1e-12 {
		pen := radius - dist
		if pen <= 0 {
			return r3.Vector{}, ContactPoint{}, false
		}
		normal := d.Mul(1 / dist)
		return normal, ContactPoint{Point: closest, Penetration: pen}, true
	}
	// center is inside the solid: push out through the nearest face
	normal, depth := inside()
	return normal, ContactPoint{Point: center, Penetration: radius + depth}, true
}

func cuboidExit(p, half r3.Vector) (r3.Vector, float64) {
	type face struct {
		n r3.Vector
		d float64
	}
	faces := []face{
		{r3.Vector{X: 1}, half.X - p.X}, {r3.Vector{X: -1}, half.X + p.X},
		{r3.Vector{Y: 1}, half.Y - p.Y}, {r3.Vector{Y: -1}, half.Y + p.Y},
		{r3.Vector{Z: 1}, half.Z - p.Z}, {r3.Vector{Z: -1}, half.Z + p.Z},
	}
	best := lo.MinBy(faces, func(a, b face) bool { return a.d < b.d })
	return best.n, best.d
}

func cylinderExit(p r3.Vector, radius, halfHeight float64) (r3.Vector, float64) {
	n, d := r3.Vector{Z: 1}, halfHeight-p.Z
	if bottom := halfHeight + p.Z; bottom < d {
		n, d = r3.Vector{Z: -1}, bottom
	}
	radial := math.Hypot(p.X, p.Y)
	if side := radius - radial; side < d && radial > 1e-12 {
		n, d = r3.Vector{X: p.X / radial, Y: p.Y / radial}, side
	}
	return n, d
}
