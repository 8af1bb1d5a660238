package physics

import (
	"math"

	"github.com/lixenwraith/tickforge/vmath"
)

// ShapeKind tags the closed set of collider shapes
type ShapeKind uint8

const (
	ShapeBox ShapeKind = iota
	ShapeSphere
	ShapeCapsule
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	case ShapeCapsule:
		return "capsule"
	}
	return "unknown"
}

// Shape is a tagged variant; only the fields for Kind are meaningful
// Shapes are axis aligned: colliders ignore entity rotation and scale
// Capsules run along Y, HalfHeight being the half length of the inner segment
type Shape struct {
	Kind        ShapeKind
	HalfExtents vmath.Vec3
	Radius      float64
	HalfHeight  float64
}

// Box returns a box shape
func Box(halfExtents vmath.Vec3) Shape {
	return Shape{Kind: ShapeBox, HalfExtents: halfExtents}
}

// Sphere returns a sphere shape
func Sphere(radius float64) Shape {
	return Shape{Kind: ShapeSphere, Radius: radius}
}

// Capsule returns a Y-aligned capsule shape
func Capsule(halfHeight, radius float64) Shape {
	return Shape{Kind: ShapeCapsule, HalfHeight: halfHeight, Radius: radius}
}

// sanitized returns the shape with every extent clamped to a finite non-negative value
func (s Shape) sanitized() Shape {
	s.HalfExtents = vmath.V3(safeExtent(s.HalfExtents.X()), safeExtent(s.HalfExtents.Y()), safeExtent(s.HalfExtents.Z()))
	s.Radius = safeExtent(s.Radius)
	s.HalfHeight = safeExtent(s.HalfHeight)
	return s
}

func safeExtent(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// BoundingRadius is the radius of a sphere enclosing the shape
func (s Shape) BoundingRadius() float64 {
	s = s.sanitized()
	switch s.Kind {
	case ShapeSphere:
		return s.Radius
	case ShapeCapsule:
		return s.HalfHeight + s.Radius
	default:
		return s.HalfExtents.Len()
	}
}

// Collider attaches a shape and its layer filter to an entity
type Collider struct {
	Shape Shape
	Layer CollisionLayer
	Mask  CollisionMask
}

// NewCollider uses the default layer and a mask accepting everything
func NewCollider(s Shape) Collider {
	return Collider{Shape: s, Layer: LayerDefault, Mask: MaskAll}
}

// BoxCollider is shorthand for NewCollider(Box(h))
func BoxCollider(halfExtents vmath.Vec3) Collider {
	return NewCollider(Box(halfExtents))
}

// SphereCollider is shorthand for NewCollider(Sphere(r))
func SphereCollider(radius float64) Collider {
	return NewCollider(Sphere(radius))
}

// CapsuleCollider is shorthand for NewCollider(Capsule(hh, r))
func CapsuleCollider(halfHeight, radius float64) Collider {
	return NewCollider(Capsule(halfHeight, radius))
}

func (c Collider) WithLayer(l CollisionLayer) Collider {
	c.Layer = l
	return c
}

func (c Collider) WithMask(m CollisionMask) Collider {
	c.Mask = m
	return c
}

// ShouldCollideWith applies the symmetric layer/mask gate
func (c Collider) ShouldCollideWith(other Collider) bool {
	return Interacts(c.Layer, c.Mask, other.Layer, other.Mask)
}

// AABB is an axis-aligned bounding box
type AABB struct {
	Min vmath.Vec3
	Max vmath.Vec3
}

// AABBFromCenter builds a box from its center and half extents
func AABBFromCenter(center, halfExtents vmath.Vec3) AABB {
	return AABB{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
}

// Intersects is inclusive: touching faces count as overlap
func (a AABB) Intersects(b AABB) bool {
	return a.Min.X() <= b.Max.X() && a.Max.X() >= b.Min.X() &&
		a.Min.Y() <= b.Max.Y() && a.Max.Y() >= b.Min.Y() &&
		a.Min.Z() <= b.Max.Z() && a.Max.Z() >= b.Min.Z()
}

func (a AABB) ContainsPoint(p vmath.Vec3) bool {
	return p.X() >= a.Min.X() && p.X() <= a.Max.X() &&
		p.Y() >= a.Min.Y() && p.Y() <= a.Max.Y() &&
		p.Z() >= a.Min.Z() && p.Z() <= a.Max.Z()
}

func (a AABB) Center() vmath.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) HalfExtents() vmath.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Expand grows the box by margin on every side
func (a AABB) Expand(margin float64) AABB {
	m := vmath.V3(margin, margin, margin)
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Union returns the smallest box holding both
func (a AABB) Union(b AABB) AABB {
	return AABB{Min: vmath.Min3(a.Min, b.Min), Max: vmath.Max3(a.Max, b.Max)}
}

// IsFinite reports whether both corners are finite
func (a AABB) IsFinite() bool {
	return vmath.IsFinite3(a.Min) && vmath.IsFinite3(a.Max)
}

// ClosestPoint clamps p into the box
func (a AABB) ClosestPoint(p vmath.Vec3) vmath.Vec3 {
	return vmath.Clamp3(p, a.Min, a.Max)
}

// ComputeAABB bounds the collider placed at position
// Degenerate extents collapse to a point instead of producing inverted boxes
func ComputeAABB(c Collider, position vmath.Vec3) AABB {
	s := c.Shape.sanitized()
	switch s.Kind {
	case ShapeSphere:
		return AABBFromCenter(position, vmath.V3(s.Radius, s.Radius, s.Radius))
	case ShapeCapsule:
		return AABBFromCenter(position, vmath.V3(s.Radius, s.HalfHeight+s.Radius, s.Radius))
	default:
		return AABBFromCenter(position, s.HalfExtents)
	}
}
