package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ComposeTRS builds translation * rotation * scale
func ComposeTRS(t Vec3, r Quat, s Vec3) Mat4 {
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

// MatTranslation extracts the translation column
func MatTranslation(m Mat4) Vec3 {
	return m.Col(3).Vec3()
}

// MatScale extracts per-axis scale from the basis column lengths
// A mirrored basis reports a negative X scale
func MatScale(m Mat4) Vec3 {
	s := Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
	if m.Det() < 0 {
		s[0] = -s[0]
	}
	return s
}

// MatRotation extracts the rotation after removing scale
// Degenerate (zero scale) bases return the identity
func MatRotation(m Mat4) Quat {
	s := MatScale(m)
	for _, c := range s {
		if math.Abs(c) < Epsilon {
			return mgl64.QuatIdent()
		}
	}
	var r Mat4
	for col := 0; col < 3; col++ {
		basis := m.Col(col).Vec3().Mul(1 / s[col])
		r.SetCol(col, basis.Vec4(0))
	}
	r.SetCol(3, Vec4{0, 0, 0, 1})
	return mgl64.Mat4ToQuat(r).Normalize()
}

// TransformPoint applies m to point p (w = 1)
func TransformPoint(m Mat4, p Vec3) Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformVector applies m to direction v (w = 0)
func TransformVector(m Mat4, v Vec3) Vec3 {
	return m.Mul4x1(v.Vec4(0)).Vec3()
}

// MatApproxEqual compares matrices element-wise within eps
func MatApproxEqual(a, b Mat4, eps float64) bool {
	return a.ApproxEqualThreshold(b, eps)
}
