package gamemath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis. Tracks are laid out on the XY plane with height in Z.
var Up = mgl64.Vec3{0, 0, 1}

// ProjectOnPlane removes the component of v along the plane normal n (unit length).
func ProjectOnPlane(v, n mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(n.Mul(v.Dot(n)))
}

// Horizontal drops the Z component.
func Horizontal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], 0}
}

// Length2D is the length of the XY component.
func Length2D(v mgl64.Vec3) float64 {
	return math.Hypot(v[0], v[1])
}

// ClampLength2D scales the XY component of v down to max, leaving Z untouched.
func ClampLength2D(v mgl64.Vec3, max float64) mgl64.Vec3 {
	l := Length2D(v)
	if l <= max || l == 0 {
		return v
	}
	s := max / l
	return mgl64.Vec3{v[0] * s, v[1] * s, v[2]}
}

// SafeNormal returns v normalized, or fallback if v is (nearly) zero.
func SafeNormal(v, fallback mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return fallback
	}
	return v.Mul(1 / l)
}

// LerpVec3 linearly interpolates between a and b.
func LerpVec3(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
