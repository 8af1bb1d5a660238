package physics

import (
	"math"

	"github.com/lixenwraith/tickforge/vmath"
)

// Contact describes an overlap between A and B
// Normal points from A toward B; moving B by Normal*Depth (or A by the opposite) separates them
type Contact struct {
	Normal vmath.Vec3
	Depth  float64
	Point  vmath.Vec3
}

// flipped swaps the roles of A and B
func (c Contact) flipped() Contact {
	c.Normal = c.Normal.Mul(-1)
	return c
}

// Overlap is the narrow-phase test for two placed shapes
// It is the only arbiter of a true collision; broad-phase candidates are filtered through it
func Overlap(a Shape, pa vmath.Vec3, b Shape, pb vmath.Vec3) (Contact, bool) {
	a, b = a.sanitized(), b.sanitized()
	switch a.Kind {
	case ShapeSphere:
		switch b.Kind {
		case ShapeSphere:
			return sphereSphere(pa, a.Radius, pb, b.Radius)
		case ShapeBox:
			return sphereBox(pa, a.Radius, AABBFromCenter(pb, b.HalfExtents))
		case ShapeCapsule:
			c, ok := capsuleSphere(pb, b.HalfHeight, b.Radius, pa, a.Radius)
			return c.flipped(), ok
		}
	case ShapeBox:
		box := AABBFromCenter(pa, a.HalfExtents)
		switch b.Kind {
		case ShapeSphere:
			c, ok := sphereBox(pb, b.Radius, box)
			return c.flipped(), ok
		case ShapeBox:
			return boxBox(box, AABBFromCenter(pb, b.HalfExtents))
		case ShapeCapsule:
			c, ok := capsuleBox(pb, b.HalfHeight, b.Radius, box)
			return c.flipped(), ok
		}
	case ShapeCapsule:
		switch b.Kind {
		case ShapeSphere:
			return capsuleSphere(pa, a.HalfHeight, a.Radius, pb, b.Radius)
		case ShapeBox:
			return capsuleBox(pa, a.HalfHeight, a.Radius, AABBFromCenter(pb, b.HalfExtents))
		case ShapeCapsule:
			return capsuleCapsule(pa, a.HalfHeight, a.Radius, pb, b.HalfHeight, b.Radius)
		}
	}
	return Contact{}, false
}

// OverlapColliders applies the layer gate before the shape test
func OverlapColliders(a Collider, pa vmath.Vec3, b Collider, pb vmath.Vec3) (Contact, bool) {
	if !a.ShouldCollideWith(b) {
		return Contact{}, false
	}
	return Overlap(a.Shape, pa, b.Shape, pb)
}

func sphereSphere(pa vmath.Vec3, ra float64, pb vmath.Vec3, rb float64) (Contact, bool) {
	d := pb.Sub(pa)
	distSq := d.Dot(d)
	r := ra + rb
	if distSq > r*r {
		return Contact{}, false
	}
	dist := math.Sqrt(distSq)
	n := vmath.UnitY
	if dist > vmath.Epsilon {
		n = d.Mul(1 / dist)
	}
	return Contact{Normal: n, Depth: r - dist, Point: pa.Add(n.Mul(ra - (r-dist)/2))}, true
}

// sphereBox treats the sphere as A
func sphereBox(c vmath.Vec3, r float64, box AABB) (Contact, bool) {
	q := box.ClosestPoint(c)
	d := q.Sub(c)
	distSq := d.Dot(d)
	if distSq > r*r {
		return Contact{}, false
	}
	if distSq > vmath.Epsilon*vmath.Epsilon {
		dist := math.Sqrt(distSq)
		return Contact{Normal: d.Mul(1 / dist), Depth: r - dist, Point: q}, true
	}
	// Center inside the box: leave through the nearest face
	axis, sign, depth := nearestFace(c, box)
	n := vmath.Vec3{}
	n[axis] = -sign
	return Contact{Normal: n, Depth: depth + r, Point: c}, true
}

// nearestFace returns the axis and outward sign of the box face closest to an interior point
func nearestFace(p vmath.Vec3, box AABB) (axis int, sign, depth float64) {
	depth = math.Inf(1)
	for i := 0; i < 3; i++ {
		if d := box.Max[i] - p[i]; d < depth {
			axis, sign, depth = i, 1, d
		}
		if d := p[i] - box.Min[i]; d < depth {
			axis, sign, depth = i, -1, d
		}
	}
	return axis, sign, depth
}

// boxBox separates along the axis of minimum penetration
// Ties prefer Y so stacked boxes resolve vertically
func boxBox(a, b AABB) (Contact, bool) {
	if !a.Intersects(b) {
		return Contact{}, false
	}
	ca, cb := a.Center(), b.Center()
	best, bestAxis := math.Inf(1), 1
	for _, i := range [3]int{1, 0, 2} {
		pen := math.Min(a.Max[i], b.Max[i]) - math.Max(a.Min[i], b.Min[i])
		if pen < best {
			best, bestAxis = pen, i
		}
	}
	n := vmath.Vec3{}
	if cb[bestAxis] >= ca[bestAxis] {
		n[bestAxis] = 1
	} else {
		n[bestAxis] = -1
	}
	lo := vmath.Max3(a.Min, b.Min)
	hi := vmath.Min3(a.Max, b.Max)
	return Contact{Normal: n, Depth: best, Point: lo.Add(hi).Mul(0.5)}, true
}

// segmentPoint is the point on a Y-aligned segment closest to p
func segmentPoint(center vmath.Vec3, halfHeight float64, p vmath.Vec3) vmath.Vec3 {
	y := math.Max(center.Y()-halfHeight, math.Min(center.Y()+halfHeight, p.Y()))
	return vmath.V3(center.X(), y, center.Z())
}

func capsuleSphere(pa vmath.Vec3, hh, ra float64, pb vmath.Vec3, rb float64) (Contact, bool) {
	return sphereSphere(segmentPoint(pa, hh, pb), ra, pb, rb)
}

// capsuleCapsule relies on both segments being vertical: the closest points share a y inside the interval overlap
func capsuleCapsule(pa vmath.Vec3, hha, ra float64, pb vmath.Vec3, hhb, rb float64) (Contact, bool) {
	ya, yb := closestY(pa.Y()-hha, pa.Y()+hha, pb.Y()-hhb, pb.Y()+hhb)
	return sphereSphere(vmath.V3(pa.X(), ya, pa.Z()), ra, vmath.V3(pb.X(), yb, pb.Z()), rb)
}

// closestY returns the y on each interval where the vertical gap is smallest
func closestY(loA, hiA, loB, hiB float64) (float64, float64) {
	lo, hi := math.Max(loA, loB), math.Min(hiA, hiB)
	if lo <= hi {
		mid := (lo + hi) / 2
		return mid, mid
	}
	if hiA < loB {
		return hiA, loB
	}
	return loA, hiB
}

// capsuleBox picks the segment point nearest the box slab, then runs the sphere test from there
func capsuleBox(pa vmath.Vec3, hh, r float64, box AABB) (Contact, bool) {
	y, _ := closestY(pa.Y()-hh, pa.Y()+hh, box.Min.Y(), box.Max.Y())
	return sphereBox(vmath.V3(pa.X(), y, pa.Z()), r, box)
}
