package physics

import (
	"math"
	"slices"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/vmath"
)

// Ray is a half line clipped at MaxDistance
// A zero direction produces a ray that never hits
type Ray struct {
	Origin      vmath.Vec3
	Direction   vmath.Vec3
	MaxDistance float64
}

// NewRay normalizes direction
func NewRay(origin, direction vmath.Vec3, maxDistance float64) Ray {
	return Ray{Origin: origin, Direction: vmath.SafeNormalize(direction), MaxDistance: maxDistance}
}

func (r Ray) PointAt(t float64) vmath.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

func (r Ray) valid() bool {
	return r.Direction != vmath.Zero3 && vmath.IsFinite3(r.Origin) && r.MaxDistance >= 0
}

// RaycastHit is the closest intersection found by a cast
type RaycastHit struct {
	Entity   core.Entity
	Point    vmath.Vec3
	Normal   vmath.Vec3
	Distance float64
}

// RaycastAABB is the slab test; a ray starting inside reports distance 0
func RaycastAABB(r Ray, box AABB) (float64, bool) {
	if !r.valid() {
		return 0, false
	}
	tmin, tmax := 0.0, r.MaxDistance
	for i := 0; i < 3; i++ {
		o, d := r.Origin[i], r.Direction[i]
		if math.Abs(d) < 1e-12 {
			if o < box.Min[i] || o > box.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / d
		t1, t2 := (box.Min[i]-o)*inv, (box.Max[i]-o)*inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// RaycastSphere returns the nearest non-negative root within range
func RaycastSphere(r Ray, center vmath.Vec3, radius float64) (float64, bool) {
	if !r.valid() {
		return 0, false
	}
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Direction)
	c := oc.Dot(oc) - radius*radius
	if c <= 0 {
		return 0, true
	}
	disc := b*b - c
	if disc < 0 || b > 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t > r.MaxDistance {
		return 0, false
	}
	return math.Max(t, 0), true
}

// RaycastBox reports the face normal of the hit
func RaycastBox(r Ray, center, halfExtents vmath.Vec3) (float64, vmath.Vec3, bool) {
	t, ok := RaycastAABB(r, AABBFromCenter(center, halfExtents))
	if !ok {
		return 0, vmath.Vec3{}, false
	}
	local := r.PointAt(t).Sub(center)
	n := vmath.Vec3{}
	best := math.Inf(1)
	for i := 0; i < 3; i++ {
		if d := math.Abs(halfExtents[i] - local[i]); d < best {
			best = d
			n = vmath.Vec3{}
			n[i] = 1
		}
		if d := math.Abs(halfExtents[i] + local[i]); d < best {
			best = d
			n = vmath.Vec3{}
			n[i] = -1
		}
	}
	return t, n, true
}

// RaycastCapsule tests the vertical cylinder body and both hemispheres
func RaycastCapsule(r Ray, center vmath.Vec3, halfHeight, radius float64) (float64, vmath.Vec3, bool) {
	if !r.valid() {
		return 0, vmath.Vec3{}, false
	}
	best := math.Inf(1)
	var normal vmath.Vec3

	// Cylinder: solve in the XZ plane, then keep hits inside the segment height
	ox, oz := r.Origin.X()-center.X(), r.Origin.Z()-center.Z()
	dx, dz := r.Direction.X(), r.Direction.Z()
	a := dx*dx + dz*dz
	if a > 1e-12 {
		b := ox*dx + oz*dz
		c := ox*ox + oz*oz - radius*radius
		if disc := b*b - a*c; disc >= 0 {
			t := (-b - math.Sqrt(disc)) / a
			if c <= 0 {
				t = 0
			}
			y := r.Origin.Y() + r.Direction.Y()*t - center.Y()
			if t >= 0 && t <= r.MaxDistance && math.Abs(y) <= halfHeight {
				best = t
				p := r.PointAt(t)
				normal = vmath.SafeNormalize(vmath.V3(p.X()-center.X(), 0, p.Z()-center.Z()))
			}
		}
	}

	for _, tip := range [2]vmath.Vec3{center.Add(vmath.V3(0, halfHeight, 0)), center.Sub(vmath.V3(0, halfHeight, 0))} {
		if t, ok := RaycastSphere(r, tip, radius); ok && t < best {
			best = t
			normal = vmath.SafeNormalize(r.PointAt(t).Sub(tip))
		}
	}
	if math.IsInf(best, 1) {
		return 0, vmath.Vec3{}, false
	}
	if normal == vmath.Zero3 {
		normal = r.Direction.Mul(-1)
	}
	return best, normal, true
}

// RaycastShape dispatches on the shape kind
func RaycastShape(r Ray, s Shape, position vmath.Vec3) (float64, vmath.Vec3, bool) {
	s = s.sanitized()
	switch s.Kind {
	case ShapeSphere:
		t, ok := RaycastSphere(r, position, s.Radius)
		if !ok {
			return 0, vmath.Vec3{}, false
		}
		n := vmath.SafeNormalize(r.PointAt(t).Sub(position))
		if n == vmath.Zero3 {
			n = r.Direction.Mul(-1)
		}
		return t, n, true
	case ShapeCapsule:
		return RaycastCapsule(r, position, s.HalfHeight, s.Radius)
	default:
		return RaycastBox(r, position, s.HalfExtents)
	}
}

// RayFilter narrows which colliders a world cast considers
// The ray's own layer is checked with the same two-way gate as collider pairs
type RayFilter struct {
	Layer        CollisionLayer
	Mask         CollisionMask
	Exclude      []core.Entity
	SkipTriggers bool
}

// DefaultRayFilter hits everything
func DefaultRayFilter() RayFilter {
	return RayFilter{Layer: LayerDefault, Mask: MaskAll}
}

func (f RayFilter) accepts(e core.Entity, c Collider, trigger bool) bool {
	if trigger && f.SkipTriggers {
		return false
	}
	if !Interacts(f.Layer, f.Mask, c.Layer, c.Mask) {
		return false
	}
	return !slices.Contains(f.Exclude, e)
}

// RaycastWorld returns the closest collider hit, ties going to the lower entity handle
func RaycastWorld(w *engine.World, r Ray, filter RayFilter) (RaycastHit, bool) {
	colliders := engine.StoreOf[Collider](w)
	triggers := engine.StoreOf[Trigger](w)

	var hit RaycastHit
	found := false
	closest := r.MaxDistance
	for _, e := range w.Query().With(colliders).Execute() {
		c := colliders.Ptr(e)
		if !filter.accepts(e, *c, triggers.Has(e)) {
			continue
		}
		pos, ok := WorldPosition(w, e)
		if !ok {
			continue
		}
		t, n, ok := RaycastShape(r, c.Shape, pos)
		if !ok || t > closest || (found && t == closest) {
			continue
		}
		closest = t
		hit = RaycastHit{Entity: e, Point: r.PointAt(t), Normal: n, Distance: t}
		found = true
	}
	return hit, found
}
