// Package transform holds local and world poses, the parent/child hierarchy
// and the PostUpdate systems that derive GlobalTransform from them
package transform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/vmath"
)

// Transform is an entity's pose relative to its parent, or to the world for roots
type Transform struct {
	Position vmath.Vec3
	Rotation vmath.Quat
	Scale    vmath.Vec3
}

// Identity returns the transform at the origin with no rotation and unit scale
func Identity() Transform {
	return Transform{Rotation: vmath.QuatIdent(), Scale: vmath.One3}
}

// FromPosition returns an identity transform moved to p
func FromPosition(p vmath.Vec3) Transform {
	t := Identity()
	t.Position = p
	return t
}

// FromXYZ is FromPosition with components
func FromXYZ(x, y, z float64) Transform {
	return FromPosition(vmath.V3(x, y, z))
}

// FromRotation returns an identity transform with rotation r
func FromRotation(r vmath.Quat) Transform {
	t := Identity()
	t.Rotation = r.Normalize()
	return t
}

// FromScale returns an identity transform with scale s
func FromScale(s vmath.Vec3) Transform {
	t := Identity()
	t.Scale = s
	return t
}

// FromPRS builds a transform from all three parts
func FromPRS(p vmath.Vec3, r vmath.Quat, s vmath.Vec3) Transform {
	return Transform{Position: p, Rotation: r.Normalize(), Scale: s}
}

// Translate moves the transform by d in parent space
func (t *Transform) Translate(d vmath.Vec3) {
	t.Position = t.Position.Add(d)
}

// Rotate applies q on top of the current rotation
func (t *Transform) Rotate(q vmath.Quat) {
	t.Rotation = q.Mul(t.Rotation).Normalize()
}

// RotateAxis rotates by angle radians about axis
func (t *Transform) RotateAxis(axis vmath.Vec3, angle float64) {
	t.Rotate(vmath.QuatAxisAngle(axis, angle))
}

func (t *Transform) RotateX(angle float64) { t.RotateAxis(vmath.UnitX, angle) }
func (t *Transform) RotateY(angle float64) { t.RotateAxis(vmath.UnitY, angle) }
func (t *Transform) RotateZ(angle float64) { t.RotateAxis(vmath.UnitZ, angle) }

// Forward returns the local -Z axis in parent space
func (t Transform) Forward() vmath.Vec3 {
	return t.Rotation.Rotate(vmath.V3(0, 0, -1))
}

// Right returns the local +X axis in parent space
func (t Transform) Right() vmath.Vec3 {
	return t.Rotation.Rotate(vmath.UnitX)
}

// Up returns the local +Y axis in parent space
func (t Transform) Up() vmath.Vec3 {
	return t.Rotation.Rotate(vmath.UnitY)
}

// Matrix composes translation * rotation * scale
func (t Transform) Matrix() vmath.Mat4 {
	return vmath.ComposeTRS(t.Position, t.Rotation, t.Scale)
}

// LookAt turns the transform so Forward points at target
// A target at the current position leaves the rotation unchanged; a forward parallel to up picks another up
func (t *Transform) LookAt(target, up vmath.Vec3) {
	f := vmath.SafeNormalize(target.Sub(t.Position))
	if f == vmath.Zero3 {
		return
	}
	r := vmath.SafeNormalize(f.Cross(up))
	if r == vmath.Zero3 {
		r = vmath.SafeNormalize(f.Cross(vmath.UnitZ))
		if r == vmath.Zero3 {
			r = vmath.SafeNormalize(f.Cross(vmath.UnitX))
		}
	}
	u := r.Cross(f)

	var m vmath.Mat4
	m.SetCol(0, r.Vec4(0))
	m.SetCol(1, u.Vec4(0))
	m.SetCol(2, f.Mul(-1).Vec4(0))
	m.SetCol(3, vmath.Vec4{0, 0, 0, 1})
	t.Rotation = mgl64.Mat4ToQuat(m).Normalize()
}

// IsFinite reports whether every component is a finite number
func (t Transform) IsFinite() bool {
	if !vmath.IsFinite3(t.Position) || !vmath.IsFinite3(t.Scale) || !vmath.IsFinite3(t.Rotation.V) {
		return false
	}
	return !math.IsNaN(t.Rotation.W) && !math.IsInf(t.Rotation.W, 0)
}

// GlobalTransform is the derived world matrix of an entity
// Only the propagation systems in this package write it
type GlobalTransform struct {
	matrix vmath.Mat4
}

// NewGlobalTransform returns the identity world pose
func NewGlobalTransform() GlobalTransform {
	return GlobalTransform{matrix: mgl64.Ident4()}
}

func globalFrom(m vmath.Mat4) GlobalTransform {
	return GlobalTransform{matrix: m}
}

// Matrix returns the world matrix
func (g GlobalTransform) Matrix() vmath.Mat4 {
	return g.matrix
}

// Position returns the world translation
func (g GlobalTransform) Position() vmath.Vec3 {
	return vmath.MatTranslation(g.matrix)
}

// Rotation returns the world rotation with scale removed
func (g GlobalTransform) Rotation() vmath.Quat {
	return vmath.MatRotation(g.matrix)
}

// Scale returns the world scale
func (g GlobalTransform) Scale() vmath.Vec3 {
	return vmath.MatScale(g.matrix)
}

// TransformPoint maps a local point into world space
func (g GlobalTransform) TransformPoint(p vmath.Vec3) vmath.Vec3 {
	return vmath.TransformPoint(g.matrix, p)
}

// Spawn creates an entity with t and a matching GlobalTransform
func Spawn(w *engine.World, t Transform) core.Entity {
	e := w.Spawn()
	Attach(w, e, t)
	return e
}

// Attach sets an entity's Transform and seeds its GlobalTransform as if it were a root
func Attach(w *engine.World, e core.Entity, t Transform) bool {
	if !engine.Insert(w, e, t) {
		return false
	}
	engine.Insert(w, e, globalFrom(t.Matrix()))
	return true
}
