// Package vmath wraps mgl64 with the small set of helpers the engine needs:
// component-wise vector ops, safe normalization and TRS matrix compose/decompose
package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type (
	Vec2 = mgl64.Vec2
	Vec3 = mgl64.Vec3
	Vec4 = mgl64.Vec4
	Quat = mgl64.Quat
	Mat4 = mgl64.Mat4
)

// Epsilon is the default tolerance for approximate comparisons
const Epsilon = 1e-9

var (
	Zero3 = Vec3{0, 0, 0}
	One3  = Vec3{1, 1, 1}
	UnitX = Vec3{1, 0, 0}
	UnitY = Vec3{0, 1, 0}
	UnitZ = Vec3{0, 0, 1}
)

// V3 builds a vector from components
func V3(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

// QuatIdent returns the identity rotation
func QuatIdent() Quat {
	return mgl64.QuatIdent()
}

// SafeNormalize returns the unit vector of v, or zero when v has no length
func SafeNormalize(v Vec3) Vec3 {
	l := v.Len()
	if l < Epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec3{}
	}
	return v.Mul(1 / l)
}

// QuatAxisAngle builds a rotation of angle radians about axis
// A zero axis yields the identity
func QuatAxisAngle(axis Vec3, angle float64) Quat {
	n := SafeNormalize(axis)
	if n == Zero3 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(angle, n)
}

// IsFinite3 reports whether every component is neither NaN nor Inf
func IsFinite3(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Min3 returns the component-wise minimum
func Min3(a, b Vec3) Vec3 {
	return Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

// Max3 returns the component-wise maximum
func Max3(a, b Vec3) Vec3 {
	return Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}

// Abs3 returns the component-wise absolute value
func Abs3(v Vec3) Vec3 {
	return Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}

// MulElem returns the component-wise product
func MulElem(a, b Vec3) Vec3 {
	return Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// Clamp3 clamps each component of v to [lo, hi]
func Clamp3(v, lo, hi Vec3) Vec3 {
	return Max3(lo, Min3(v, hi))
}

// Lerp3 interpolates linearly between a and b
func Lerp3(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Slerp interpolates rotations along the shortest arc
func Slerp(a, b Quat, t float64) Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

// ApproxEqual3 compares vectors component-wise within eps
func ApproxEqual3(a, b Vec3, eps float64) bool {
	return a.ApproxEqualThreshold(b, eps)
}
